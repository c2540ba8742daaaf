// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbpipe

import (
	"github.com/lesismal/nbpipe/packet"
)

// ByteReadChannel is the read side of an asynchronous byte pipe.
// It has a single reader: its methods must not be called concurrently,
// except for the close-related methods documented on implementations.
type ByteReadChannel interface {
	// ReadablePacket holds the bytes received so far.
	ReadablePacket() *packet.Packet

	// AwaitBytes blocks until predicate returns true or the channel is closed.
	// A nil predicate waits for at least one readable byte.
	// It returns false if the stream ended cleanly with predicate unsatisfied,
	// and the close cause if the channel failed.
	AwaitBytes(predicate func() bool) (bool, error)

	// Cancel closes the channel and releases the readable bytes.
	// Only the first call has an effect and returns true.
	Cancel(cause error) bool

	// ClosedCause returns the failure the channel was closed with, if any.
	ClosedCause() error

	// IsClosedForRead reports whether no more bytes will ever be readable.
	IsClosedForRead() bool
}

// ByteWriteChannel is the write side of an asynchronous byte pipe.
// It has a single writer.
type ByteWriteChannel interface {
	// WritablePacket stages outgoing bytes until Flush.
	WritablePacket() *packet.Packet

	// Flush hands the staged bytes to the reader, blocking while the reader
	// has not taken the previous ones.
	Flush() error

	// Close with a nil cause flushes the staged bytes and ends the stream,
	// a non-nil cause drops them and fails the reader with it.
	// Only the first call has an effect and returns true.
	Close(cause error) bool

	// IsClosedForWrite .
	IsClosedForWrite() bool
}

// ByteChannel is both sides of a pipe.
type ByteChannel interface {
	ByteReadChannel
	ByteWriteChannel
}

func closedErr(cause error) error {
	if cause != nil {
		return cause
	}
	return ErrChannelClosed
}
