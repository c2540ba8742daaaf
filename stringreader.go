// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbpipe

import (
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/lesismal/nbpipe/packet"
)

// NoLimit disables the line length check.
const NoLimit = math.MaxInt32

// StringReader reads UTF-8 lines from a channel. It is a ByteReadChannel
// itself, so line reads and byte reads can be mixed: the bytes after a
// line terminator stay in the channel.
type StringReader struct {
	input ByteReadChannel
	line  []byte
}

// NewStringReader wraps input, wrapping a StringReader returns it unchanged.
func NewStringReader(input ByteReadChannel) *StringReader {
	if r, ok := input.(*StringReader); ok {
		return r
	}
	return &StringReader{input: input}
}

// ReadablePacket .
func (r *StringReader) ReadablePacket() *packet.Packet {
	return r.input.ReadablePacket()
}

// AwaitBytes .
func (r *StringReader) AwaitBytes(predicate func() bool) (bool, error) {
	return r.input.AwaitBytes(predicate)
}

// Cancel .
func (r *StringReader) Cancel(cause error) bool {
	return r.input.Cancel(cause)
}

// ClosedCause .
func (r *StringReader) ClosedCause() error {
	return r.input.ClosedCause()
}

// IsClosedForRead .
func (r *StringReader) IsClosedForRead() bool {
	return r.input.IsClosedForRead()
}

// ReadLineTo appends the next line to out without its "\n" or "\r\n" terminator.
// It returns false when the input ended before a terminator; the text read
// so far is still appended. limit is counted in characters, a line longer
// than limit fails with ErrTooLongLine and the input is cancelled.
func (r *StringReader) ReadLineTo(out io.StringWriter, limit int) (bool, error) {
	return r.ReadLineToWith(out, limit, nil)
}

// ReadLineToWith is ReadLineTo with the error for an over-long line built by
// onTooLong, the input is cancelled with that same error.
func (r *StringReader) ReadLineToWith(out io.StringWriter, limit int, onTooLong func(limit int) error) (bool, error) {
	if limit < 0 {
		return false, ErrNegativeLimit
	}
	line := r.line[:0]
	defer func() {
		if cap(line) <= 4096 {
			r.line = line[:0]
		}
	}()

	for {
		ok, err := r.input.AwaitBytes(nil)
		if err != nil {
			return false, err
		}
		if !ok {
			if len(line) == 0 {
				return false, nil
			}
			if utf8.RuneCount(line) > limit {
				return false, r.tooLong(limit, onTooLong)
			}
			out.WriteString(string(line))
			return false, nil
		}

		rp := r.input.ReadablePacket()
		if i := rp.IndexByte('\n'); i >= 0 {
			line = appendFrom(line, rp, i)
			rp.Discard(1)
			if n := len(line); n > 0 && line[n-1] == '\r' {
				line = line[:n-1]
			}
			if utf8.RuneCount(line) > limit {
				return false, r.tooLong(limit, onTooLong)
			}
			out.WriteString(string(line))
			return true, nil
		}
		line = appendFrom(line, rp, rp.AvailableForRead())
		if pendingChars(line) > limit {
			return false, r.tooLong(limit, onTooLong)
		}
	}
}

// ReadLine returns the next line, io.EOF means the input ended with nothing left to read.
func (r *StringReader) ReadLine(limit int) (string, error) {
	var sb strings.Builder
	ok, err := r.ReadLineTo(&sb, limit)
	if err != nil {
		return "", err
	}
	if !ok && sb.Len() == 0 {
		return "", io.EOF
	}
	return sb.String(), nil
}

func (r *StringReader) tooLong(limit int, onTooLong func(limit int) error) error {
	var err error
	if onTooLong != nil {
		err = onTooLong(limit)
	} else {
		err = fmt.Errorf("%w: more than %d characters", ErrTooLongLine, limit)
	}
	r.input.Cancel(err)
	return err
}

func appendFrom(line []byte, p *packet.Packet, n int) []byte {
	for n > 0 {
		chunk := p.Peek()
		if len(chunk) > n {
			chunk = chunk[:n]
		}
		line = append(line, chunk...)
		p.Discard(len(chunk))
		n -= len(chunk)
	}
	return line
}

// pendingChars counts the characters of an unterminated line. A trailing
// '\r' may belong to the terminator and a trailing partial UTF-8 sequence
// is still incomplete, neither is counted yet.
func pendingChars(line []byte) int {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	for i := 1; i < utf8.UTFMax && i <= len(line); i++ {
		if utf8.RuneStart(line[len(line)-i]) {
			if !utf8.FullRune(line[len(line)-i:]) {
				line = line[:len(line)-i]
			}
			break
		}
	}
	return utf8.RuneCount(line)
}
