// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbpipe

import (
	"github.com/lesismal/nbpipe/packet"
)

// packetChannel is a read channel over bytes that are all available up front.
type packetChannel struct {
	readable  *packet.Packet
	cancelled bool
	cause     error
}

// FromPacket returns a read channel that yields p then ends, it takes ownership of p.
func FromPacket(p *packet.Packet) ByteReadChannel {
	return &packetChannel{readable: p}
}

// FromBytes returns a read channel over b, b is not copied and must not be modified.
func FromBytes(b []byte) ByteReadChannel {
	return FromPacket(packet.FromBytes(b))
}

// FromString .
func FromString(s string) ByteReadChannel {
	return FromPacket(packet.FromString(s))
}

// Empty returns a read channel that is already at its end.
func Empty() ByteReadChannel {
	return FromPacket(packet.New())
}

// Failed returns a read channel that fails every read with cause.
func Failed(cause error) ByteReadChannel {
	c := &packetChannel{readable: packet.New()}
	c.Cancel(cause)
	return c
}

func (c *packetChannel) ReadablePacket() *packet.Packet {
	return c.readable
}

func (c *packetChannel) AwaitBytes(predicate func() bool) (bool, error) {
	if c.cause != nil {
		return false, c.cause
	}
	if predicate == nil {
		return !c.readable.IsEmpty(), nil
	}
	return predicate(), nil
}

func (c *packetChannel) Cancel(cause error) bool {
	if c.cancelled {
		return false
	}
	c.cancelled = true
	c.cause = cause
	c.readable.Close()
	return true
}

func (c *packetChannel) ClosedCause() error {
	return c.cause
}

func (c *packetChannel) IsClosedForRead() bool {
	return c.readable.IsEmpty()
}
