// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbpipe

import (
	"fmt"
	"io"
	"math"

	"github.com/lesismal/nbpipe/packet"
)

// awaitAtLeast waits for n readable bytes, a clean end before that is io.ErrUnexpectedEOF.
func awaitAtLeast(ch ByteReadChannel, n int) error {
	ok, err := ch.AwaitBytes(func() bool {
		return ch.ReadablePacket().AvailableForRead() >= n
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: expected %d bytes, got %d", io.ErrUnexpectedEOF, n, ch.ReadablePacket().AvailableForRead())
	}
	return nil
}

// ReadPacket reads exactly n bytes.
func ReadPacket(ch ByteReadChannel, n int) (*packet.Packet, error) {
	if n < 0 {
		return nil, ErrNegativeLimit
	}
	if err := awaitAtLeast(ch, n); err != nil {
		return nil, err
	}
	return ch.ReadablePacket().ReadPacket(n)
}

// ReadByte .
func ReadByte(ch ByteReadChannel) (byte, error) {
	if err := awaitAtLeast(ch, 1); err != nil {
		return 0, err
	}
	return ch.ReadablePacket().ReadByte()
}

// ReadInt16 reads a big-endian int16.
func ReadInt16(ch ByteReadChannel) (int16, error) {
	if err := awaitAtLeast(ch, 2); err != nil {
		return 0, err
	}
	return ch.ReadablePacket().ReadInt16()
}

// ReadInt32 reads a big-endian int32.
func ReadInt32(ch ByteReadChannel) (int32, error) {
	if err := awaitAtLeast(ch, 4); err != nil {
		return 0, err
	}
	return ch.ReadablePacket().ReadInt32()
}

// ReadInt64 reads a big-endian int64.
func ReadInt64(ch ByteReadChannel) (int64, error) {
	if err := awaitAtLeast(ch, 8); err != nil {
		return 0, err
	}
	return ch.ReadablePacket().ReadInt64()
}

// CopyTo moves up to limit bytes from src to dst, a negative limit means no limit.
// dst is flushed whenever src has to be waited for, and once at the end.
func CopyTo(src ByteReadChannel, dst ByteWriteChannel, limit int64) (int64, error) {
	if limit < 0 {
		limit = math.MaxInt64
	}
	remaining := limit
	for remaining > 0 {
		sp := src.ReadablePacket()
		if sp.IsEmpty() {
			if err := dst.Flush(); err != nil {
				return limit - remaining, err
			}
			ok, err := src.AwaitBytes(nil)
			if err != nil {
				return limit - remaining, err
			}
			if !ok {
				break
			}
			continue
		}
		n := int64(sp.AvailableForRead())
		if n <= remaining {
			dst.WritablePacket().WritePacket(sp)
			remaining -= n
			continue
		}
		head, _ := sp.ReadPacket(int(remaining))
		dst.WritablePacket().WritePacket(head)
		remaining = 0
	}
	return limit - remaining, dst.Flush()
}

// CopyAndClose copies all of src into dst, then closes dst with the copy's outcome.
// A failure of dst cancels src.
func CopyAndClose(src ByteReadChannel, dst ByteWriteChannel) (int64, error) {
	n, err := CopyTo(src, dst, -1)
	if err != nil && dst.IsClosedForWrite() {
		src.Cancel(err)
	}
	dst.Close(err)
	return n, err
}

// ReadRemaining reads until the end of ch or until limit bytes, a negative limit means no limit.
func ReadRemaining(ch ByteReadChannel, limit int64) (*packet.Packet, error) {
	if limit < 0 {
		limit = math.MaxInt64
	}
	result := packet.New()
	for remaining := limit; remaining > 0; {
		rp := ch.ReadablePacket()
		if rp.IsEmpty() {
			ok, err := ch.AwaitBytes(nil)
			if err != nil {
				result.Close()
				return nil, err
			}
			if !ok {
				break
			}
			continue
		}
		n := int64(rp.AvailableForRead())
		if n > remaining {
			n = remaining
		}
		p, _ := rp.ReadPacket(int(n))
		result.WritePacket(p)
		remaining -= n
	}
	return result, nil
}

// ReadAll reads ch to its end.
func ReadAll(ch ByteReadChannel) ([]byte, error) {
	p, err := ReadRemaining(ch, -1)
	if err != nil {
		return nil, err
	}
	return p.ToByteArray(), nil
}

// Discard skips up to max bytes, waiting for more input while the stream lasts.
func Discard(ch ByteReadChannel, max int64) (int64, error) {
	var total int64
	for total < max {
		rp := ch.ReadablePacket()
		if rp.IsEmpty() {
			ok, err := ch.AwaitBytes(nil)
			if err != nil {
				return total, err
			}
			if !ok {
				break
			}
			continue
		}
		n := int64(rp.AvailableForRead())
		if n > max-total {
			n = max - total
		}
		rp.Discard(int(n))
		total += n
	}
	return total, nil
}

// DiscardExact skips exactly n bytes.
func DiscardExact(ch ByteReadChannel, n int64) error {
	skipped, err := Discard(ch, n)
	if err != nil {
		return err
	}
	if skipped < n {
		return fmt.Errorf("%w: discarded %d of %d bytes", io.ErrUnexpectedEOF, skipped, n)
	}
	return nil
}
