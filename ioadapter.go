// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbpipe

import (
	"context"
	"io"
)

type ioReader struct {
	ch ByteReadChannel
}

// NewIOReader exposes ch as an io.ReadCloser, Close cancels ch.
func NewIOReader(ch ByteReadChannel) io.ReadCloser {
	return &ioReader{ch: ch}
}

func (r *ioReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.ch.ReadablePacket().IsEmpty() {
		ok, err := r.ch.AwaitBytes(nil)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, io.EOF
		}
	}
	return r.ch.ReadablePacket().Read(p)
}

func (r *ioReader) Close() error {
	r.ch.Cancel(nil)
	return nil
}

type ioWriter struct {
	ch ByteWriteChannel
}

// NewIOWriter exposes ch as an io.WriteCloser, every Write is flushed.
func NewIOWriter(ch ByteWriteChannel) io.WriteCloser {
	return &ioWriter{ch: ch}
}

func (w *ioWriter) Write(p []byte) (int, error) {
	w.ch.WritablePacket().Write(p)
	if err := w.ch.Flush(); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *ioWriter) Close() error {
	w.ch.Close(nil)
	return nil
}

// FromReader pumps r into a new channel on a producer task until r returns io.EOF.
// A blocked r.Read is not interrupted by ctx.
func FromReader(ctx context.Context, r io.Reader, conf Config) ByteReadChannel {
	return WriterWith(ctx, conf, func(ctx context.Context, w ByteWriteChannel) error {
		for {
			n, err := w.WritablePacket().FillFrom(r)
			if n > 0 {
				if ferr := w.Flush(); ferr != nil {
					return ferr
				}
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
		}
	})
}

// WriteTo drains ch into w and returns the number of bytes written.
func WriteTo(ch ByteReadChannel, w io.Writer) (int64, error) {
	var total int64
	for {
		rp := ch.ReadablePacket()
		if rp.IsEmpty() {
			ok, err := ch.AwaitBytes(nil)
			if err != nil {
				return total, err
			}
			if !ok {
				return total, nil
			}
			continue
		}
		n, err := rp.WriteTo(w)
		total += n
		if err != nil {
			ch.Cancel(err)
			return total, err
		}
	}
}
