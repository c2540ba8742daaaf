// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbpipe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lesismal/nbpipe/packet"
)

// ConflatedChannel is a single-producer single-consumer pipe that hands
// whole Packets from writer to reader. At most one flushed Packet is in
// transit: Flush blocks until the reader has merged the previous one.
//
// Close and Flush belong to the writer, AwaitBytes to the reader. Cancel may
// be called from any goroutine, the readable Packet is released by the
// reader at its next AwaitBytes or IsClosedForRead.
type ConflatedChannel struct {
	readable *packet.Packet
	writable *packet.Packet

	ch      chan *packet.Packet
	done    chan struct{}
	abandon chan struct{}

	closing     int32
	cancelled   int32
	abandonOnce sync.Once

	mux          sync.Mutex
	cause        error
	abandonCause error
}

// NewConflatedChannel .
func NewConflatedChannel(conf Config) *ConflatedChannel {
	conf = conf.normalize()
	return &ConflatedChannel{
		readable: packet.NewWith(conf.Allocator),
		writable: packet.NewWith(conf.Allocator),
		ch:       make(chan *packet.Packet),
		done:     make(chan struct{}),
		abandon:  make(chan struct{}),
	}
}

// ReadablePacket .
func (c *ConflatedChannel) ReadablePacket() *packet.Packet {
	return c.readable
}

// WritablePacket .
func (c *ConflatedChannel) WritablePacket() *packet.Packet {
	return c.writable
}

// ClosedCause .
func (c *ConflatedChannel) ClosedCause() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.cause
}

// IsClosedForWrite .
func (c *ConflatedChannel) IsClosedForWrite() bool {
	return atomic.LoadInt32(&c.closing) == 1
}

// IsClosedForRead .
func (c *ConflatedChannel) IsClosedForRead() bool {
	if c.isCancelled() {
		<-c.done
		c.readable.Close()
		return true
	}
	select {
	case <-c.done:
		return c.readable.IsEmpty()
	default:
		return false
	}
}

// Done is closed once the channel has been terminated and the last flush, if any, was delivered.
func (c *ConflatedChannel) Done() <-chan struct{} {
	return c.done
}

// AwaitBytes .
func (c *ConflatedChannel) AwaitBytes(predicate func() bool) (bool, error) {
	if predicate == nil {
		predicate = c.hasBytes
	}
	for {
		if c.isCancelled() {
			// done follows the cancel flag once the cause is set
			<-c.done
			c.readable.Close()
			return false, c.ClosedCause()
		}
		if predicate() {
			return true, nil
		}
		select {
		case p := <-c.ch:
			c.readable.WritePacket(p)
		case <-c.done:
			if cause := c.ClosedCause(); cause != nil {
				c.readable.Close()
				return false, cause
			}
			if c.isCancelled() {
				c.readable.Close()
			}
			return false, nil
		}
	}
}

func (c *ConflatedChannel) hasBytes() bool {
	return !c.readable.IsEmpty()
}

func (c *ConflatedChannel) isCancelled() bool {
	return atomic.LoadInt32(&c.cancelled) == 1
}

// Flush .
func (c *ConflatedChannel) Flush() error {
	if c.IsClosedForWrite() {
		c.writable.Close()
		<-c.done
		return closedErr(c.ClosedCause())
	}
	if c.writable.IsEmpty() {
		return nil
	}
	return c.send(c.writable.Steal(), nil)
}

func (c *ConflatedChannel) send(p *packet.Packet, abandon <-chan struct{}) error {
	select {
	case c.ch <- p:
		return nil
	case <-c.done:
		p.Close()
		return closedErr(c.ClosedCause())
	case <-abandon:
		p.Close()
		return ErrChannelClosed
	}
}

// Close .
func (c *ConflatedChannel) Close(cause error) bool {
	if !atomic.CompareAndSwapInt32(&c.closing, 0, 1) {
		c.writable.Close()
		return false
	}
	c.setCause(cause)
	if cause == nil && !c.writable.IsEmpty() {
		// a Cancel or a context termination arriving now abandons this delivery
		// and its cause replaces the clean end
		if err := c.send(c.writable.Steal(), c.abandon); err != nil {
			c.setCause(c.abandonedBy())
		}
	}
	c.writable.Close()
	close(c.done)
	return true
}

// Cancel .
func (c *ConflatedChannel) Cancel(cause error) bool {
	atomic.StoreInt32(&c.cancelled, 1)
	return c.terminate(cause)
}

// terminate ends the channel from any goroutine. Each side releases its
// own Packet at its next suspend point.
func (c *ConflatedChannel) terminate(cause error) bool {
	if !atomic.CompareAndSwapInt32(&c.closing, 0, 1) {
		c.abandonWith(cause)
		return false
	}
	c.setCause(cause)
	close(c.done)
	return true
}

func (c *ConflatedChannel) abandonWith(cause error) {
	c.abandonOnce.Do(func() {
		c.mux.Lock()
		c.abandonCause = cause
		c.mux.Unlock()
		close(c.abandon)
	})
}

func (c *ConflatedChannel) abandonedBy() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.abandonCause
}

func (c *ConflatedChannel) setCause(cause error) {
	c.mux.Lock()
	c.cause = cause
	c.mux.Unlock()
}

// bind terminates c with ctx's error once ctx is done.
func (c *ConflatedChannel) bind(ctx context.Context) {
	if ctx == nil || ctx.Done() == nil {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			c.terminate(ctx.Err())
		case <-c.done:
		}
	}()
}
