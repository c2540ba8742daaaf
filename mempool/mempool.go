// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mempool

import (
	"sync"
)

// Allocator hands out byte slices that back packet Buffers.
// A slice passed to Free must not be referenced by its previous owner any more.
type Allocator interface {
	Malloc(size int) []byte
	Free(buf []byte)
}

// DefaultMemPool .
var DefaultMemPool = New(1024*16, 1024*1024)

// MemPool .
type MemPool struct {
	*debugger

	bufSize  int
	freeSize int
	pool     *sync.Pool
}

// New creates a pool whose slices have at least bufSize capacity,
// slices larger than freeSize are neither pooled nor recycled.
func New(bufSize, freeSize int) *MemPool {
	if bufSize <= 0 {
		bufSize = 64
	}
	if freeSize <= 0 {
		freeSize = 64 * 1024
	}
	if freeSize < bufSize {
		freeSize = bufSize
	}

	mp := &MemPool{
		debugger: &debugger{},
		bufSize:  bufSize,
		freeSize: freeSize,
		pool:     &sync.Pool{},
	}
	mp.pool.New = func() interface{} {
		buf := make([]byte, bufSize)
		return &buf
	}

	return mp
}

// Malloc .
func (mp *MemPool) Malloc(size int) []byte {
	if size > mp.freeSize {
		return make([]byte, size)
	}
	pbuf := mp.pool.Get().(*[]byte)
	buf := *pbuf
	if cap(buf) < size {
		buf = append(buf[:cap(buf)], make([]byte, size-cap(buf))...)
	}
	buf = buf[:size]
	mp.onMalloc(buf)
	return buf
}

// Free .
func (mp *MemPool) Free(buf []byte) {
	if cap(buf) > mp.freeSize || cap(buf) < mp.bufSize {
		return
	}
	if !mp.onFree(buf) {
		return
	}
	buf = buf[:cap(buf)]
	mp.pool.Put(&buf)
}

// stdAllocator .
type stdAllocator struct{}

// Malloc .
func (a *stdAllocator) Malloc(size int) []byte {
	return make([]byte, size)
}

// Free .
func (a *stdAllocator) Free(buf []byte) {}

// NewSTD returns an Allocator which never recycles.
func NewSTD() Allocator {
	return &stdAllocator{}
}

// Malloc exports default package method.
func Malloc(size int) []byte {
	return DefaultMemPool.Malloc(size)
}

// Free exports default package method.
func Free(buf []byte) {
	DefaultMemPool.Free(buf)
}

// Init replaces DefaultMemPool.
func Init(bufSize, freeSize int) {
	DefaultMemPool = New(bufSize, freeSize)
}
