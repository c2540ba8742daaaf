// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package packet

import (
	"fmt"

	"github.com/lesismal/nbpipe/mempool"
)

// BufferSize is the capacity of Buffers allocated by Packet writes.
var BufferSize = 1024 * 16

// Buffer is a fixed-capacity byte region with independent read and write cursors:
//
//	0 <= ReadIndex() <= WriteIndex() <= Capacity()
//
// A Buffer belongs to exactly one Packet at a time.
type Buffer struct {
	data       []byte
	readIndex  int
	writeIndex int
	allocator  mempool.Allocator
}

// NewBuffer allocates an empty Buffer from mempool.DefaultMemPool.
func NewBuffer(capacity int) *Buffer {
	return NewBufferWith(mempool.DefaultMemPool, capacity)
}

// NewBufferWith allocates an empty Buffer from allocator.
func NewBufferWith(allocator mempool.Allocator, capacity int) *Buffer {
	data := allocator.Malloc(capacity)
	return &Buffer{
		data:      data[:cap(data)],
		allocator: allocator,
	}
}

// WrapBuffer makes a full Buffer over b without copying, b is never recycled
// and must not be modified by the caller any more.
func WrapBuffer(b []byte) *Buffer {
	return &Buffer{
		data:       b,
		writeIndex: len(b),
	}
}

// Capacity .
func (b *Buffer) Capacity() int {
	return len(b.data)
}

// ReadIndex .
func (b *Buffer) ReadIndex() int {
	return b.readIndex
}

// WriteIndex .
func (b *Buffer) WriteIndex() int {
	return b.writeIndex
}

// AvailableForRead .
func (b *Buffer) AvailableForRead() int {
	return b.writeIndex - b.readIndex
}

// AvailableForWrite .
func (b *Buffer) AvailableForWrite() int {
	return len(b.data) - b.writeIndex
}

// IsEmpty reports whether there is nothing to read.
func (b *Buffer) IsEmpty() bool {
	return b.writeIndex == b.readIndex
}

// Bytes returns the readable region without consuming it.
func (b *Buffer) Bytes() []byte {
	return b.data[b.readIndex:b.writeIndex]
}

// free returns the writable region.
func (b *Buffer) free() []byte {
	return b.data[b.writeIndex:]
}

// Write copies as much of p as fits and returns the number of bytes copied.
func (b *Buffer) Write(p []byte) int {
	n := copy(b.data[b.writeIndex:], p)
	b.writeIndex += n
	return n
}

// Read moves up to len(p) readable bytes into p.
func (b *Buffer) Read(p []byte) int {
	n := copy(p, b.data[b.readIndex:b.writeIndex])
	b.readIndex += n
	return n
}

// Discard skips n readable bytes.
func (b *Buffer) Discard(n int) {
	if n < 0 || n > b.AvailableForRead() {
		panic(fmt.Sprintf("packet: can't discard %d bytes, available %d", n, b.AvailableForRead()))
	}
	b.readIndex += n
}

// Split detaches the first n readable bytes into a new Buffer.
// The bytes are copied, so both Buffers keep a single owner.
func (b *Buffer) Split(n int) *Buffer {
	if n < 0 || n > b.AvailableForRead() {
		panic(fmt.Sprintf("packet: can't split %d bytes, available %d", n, b.AvailableForRead()))
	}
	head := b.newSibling(n)
	head.Write(b.data[b.readIndex : b.readIndex+n])
	b.readIndex += n
	return head
}

// Clone copies the readable bytes into a new Buffer.
func (b *Buffer) Clone() *Buffer {
	n := b.AvailableForRead()
	c := b.newSibling(n)
	c.Write(b.Bytes())
	return c
}

func (b *Buffer) newSibling(n int) *Buffer {
	allocator := b.allocator
	if allocator == nil {
		allocator = mempool.DefaultMemPool
	}
	return NewBufferWith(allocator, n)
}

// Close resets the cursors and returns the backing array to its allocator.
// Calling Close more than once is safe.
func (b *Buffer) Close() {
	if b.data == nil {
		return
	}
	b.readIndex = 0
	b.writeIndex = 0
	if b.allocator != nil {
		b.allocator.Free(b.data)
	}
	b.data = nil
}

func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer(capacity=%d, readIndex=%d, writeIndex=%d)", b.Capacity(), b.readIndex, b.writeIndex)
}
