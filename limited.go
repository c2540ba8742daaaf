// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbpipe

import (
	"github.com/lesismal/nbpipe/packet"
)

type limitedChannel struct {
	src       ByteReadChannel
	remaining int64
	readable  *packet.Packet
	cancelled bool
	cause     error
}

// Limited returns a read channel yielding at most n bytes of src.
// The bytes of src past the limit stay in src. If src ends before n bytes,
// the limited channel ends cleanly as well.
func Limited(src ByteReadChannel, n int64) ByteReadChannel {
	if n < 0 {
		n = 0
	}
	return &limitedChannel{
		src:       src,
		remaining: n,
		readable:  packet.New(),
	}
}

func (l *limitedChannel) ReadablePacket() *packet.Packet {
	return l.readable
}

func (l *limitedChannel) AwaitBytes(predicate func() bool) (bool, error) {
	if l.cause != nil {
		return false, l.cause
	}
	if predicate == nil {
		predicate = func() bool { return !l.readable.IsEmpty() }
	}
	for !predicate() {
		if l.remaining <= 0 || l.cancelled {
			return false, nil
		}
		sp := l.src.ReadablePacket()
		if sp.IsEmpty() {
			ok, err := l.src.AwaitBytes(nil)
			if err != nil {
				l.cause = err
				l.readable.Close()
				return false, err
			}
			if !ok {
				return false, nil
			}
			continue
		}
		l.take(l.src.ReadablePacket())
	}
	return true, nil
}

func (l *limitedChannel) take(sp *packet.Packet) {
	n := int64(sp.AvailableForRead())
	if n <= l.remaining {
		l.remaining -= n
		l.readable.WritePacket(sp)
		return
	}
	head, _ := sp.ReadPacket(int(l.remaining))
	l.remaining = 0
	l.readable.WritePacket(head)
}

func (l *limitedChannel) Cancel(cause error) bool {
	if l.cancelled {
		return false
	}
	l.cancelled = true
	l.cause = cause
	l.readable.Close()
	l.src.Cancel(cause)
	return true
}

func (l *limitedChannel) ClosedCause() error {
	return l.cause
}

func (l *limitedChannel) IsClosedForRead() bool {
	if !l.readable.IsEmpty() {
		return false
	}
	return l.cancelled || l.remaining <= 0 || l.src.IsClosedForRead()
}
