// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"sync"

	"github.com/lesismal/nbpipe"
	"github.com/lesismal/nbpipe/logging"
)

var (
	crlf      = []byte("\r\n")
	lastChunk = []byte("0\r\n\r\n")

	chunkLinePool = sync.Pool{
		New: func() interface{} {
			return bytes.NewBuffer(make([]byte, 0, DefaultMaxChunkSizeLength))
		},
	}
)

// NewChunkedDecoder decodes in on a producer task and returns the decoded stream.
func NewChunkedDecoder(ctx context.Context, in nbpipe.ByteReadChannel, conf Config) nbpipe.ByteReadChannel {
	conf = conf.normalize()
	return nbpipe.WriterWith(ctx, conf.Pipe, func(ctx context.Context, w nbpipe.ByteWriteChannel) error {
		return decodeChunked(in, w, conf)
	})
}

// DecodeChunked decodes a chunked transfer-encoded stream from in into out.
// out is closed when the terminal chunk has been read, on failure out is
// closed and in is cancelled with the error. Trailer fields are not supported.
func DecodeChunked(in nbpipe.ByteReadChannel, out nbpipe.ByteWriteChannel) error {
	return decodeChunked(in, out, Config{}.normalize())
}

func decodeChunked(in nbpipe.ByteReadChannel, out nbpipe.ByteWriteChannel, conf Config) error {
	err := decodeChunks(nbpipe.NewStringReader(in), out, conf)
	if err != nil {
		logging.Debug("chunked decoding failed: %v", err)
		out.Close(err)
		in.Cancel(err)
		return err
	}
	out.Close(nil)
	return nil
}

func chunkSizeTooLong(limit int) error {
	return fmt.Errorf("%w: size line is longer than %d characters", ErrInvalidChunkSize, limit)
}

func chunkCRLFTooLong(limit int) error {
	return ErrChunkCRLFExpected
}

func decodeChunks(reader *nbpipe.StringReader, out nbpipe.ByteWriteChannel, conf Config) error {
	line := chunkLinePool.Get().(*bytes.Buffer)
	defer func() {
		line.Reset()
		chunkLinePool.Put(line)
	}()

	for {
		line.Reset()
		ok, err := reader.ReadLineToWith(line, conf.MaxChunkSizeLength, chunkSizeTooLong)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: chunked stream has ended before a chunk size", io.ErrUnexpectedEOF)
		}

		size, err := parseChunkSize(line.Bytes())
		if err != nil {
			return err
		}
		if size > 0 {
			n, err := nbpipe.CopyTo(reader, out, size)
			if err != nil {
				return err
			}
			if n < size {
				return fmt.Errorf("%w: chunk of size %d has ended after %d bytes", io.ErrUnexpectedEOF, size, n)
			}
		}

		line.Reset()
		ok, err = reader.ReadLineToWith(line, 2, chunkCRLFTooLong)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: chunk of size %d has ended before CR+LF", io.ErrUnexpectedEOF, size)
		}
		if line.Len() > 0 {
			return ErrChunkCRLFExpected
		}

		if size == 0 {
			return nil
		}
	}
}

// parseChunkSize parses the hex size of a chunk size line, chunk extensions are ignored.
func parseChunkSize(line []byte) (int64, error) {
	if i := bytes.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	for len(line) > 0 && isSpace(line[len(line)-1]) {
		line = line[:len(line)-1]
	}
	if len(line) == 0 {
		return -1, fmt.Errorf("%w: empty", ErrInvalidChunkSize)
	}
	if len(line) == 1 && line[0] == '0' {
		return 0, nil
	}

	var size int64
	for _, c := range line {
		if !isHex(c) {
			return -1, fmt.Errorf("%w: %q", ErrInvalidChunkSize, line)
		}
		if size > math.MaxInt64>>4 {
			return -1, fmt.Errorf("%w: %q overflows", ErrInvalidChunkSize, line)
		}
		size = size<<4 | hexValueMap[c]
	}
	return size, nil
}

// NewChunkedEncoder returns a channel whose bytes are chunk-encoded into out by a consumer task.
// out is flushed after the terminal chunk but stays open.
func NewChunkedEncoder(ctx context.Context, out nbpipe.ByteWriteChannel, conf Config) nbpipe.ByteWriteChannel {
	conf = conf.normalize()
	return nbpipe.ReaderWith(ctx, conf.Pipe, func(ctx context.Context, r nbpipe.ByteReadChannel) error {
		return EncodeChunked(out, r)
	})
}

// EncodeChunked writes in to out with chunked transfer encoding, one chunk
// per Buffer received, followed by the terminal chunk. On failure out is
// closed and in is cancelled with the error.
func EncodeChunked(out nbpipe.ByteWriteChannel, in nbpipe.ByteReadChannel) error {
	err := encodeChunks(out, in)
	if err != nil {
		logging.Debug("chunked encoding failed: %v", err)
		out.Close(err)
		in.Cancel(err)
	}
	return err
}

func encodeChunks(out nbpipe.ByteWriteChannel, in nbpipe.ByteReadChannel) error {
	var sizeLine [20]byte
	for {
		ok, err := in.AwaitBytes(nil)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		rp := in.ReadablePacket()
		for b := rp.ReadBuffer(); b != nil; b = rp.ReadBuffer() {
			if b.IsEmpty() {
				b.Close()
				continue
			}
			wp := out.WritablePacket()
			head := strconv.AppendInt(sizeLine[:0], int64(b.AvailableForRead()), 16)
			head = append(head, crlf...)
			wp.Write(head)
			wp.WriteBuffer(b)
			wp.Write(crlf)
			if err := out.Flush(); err != nil {
				return err
			}
		}
	}
	out.WritablePacket().Write(lastChunk)
	return out.Flush()
}
