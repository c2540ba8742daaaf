// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbpipe

import (
	"context"
	"sync"

	"github.com/lesismal/llib/bytes"
)

// MemoryCache lets a body be received twice. The first Read relays the
// original body while a copy of every delivered chunk is kept, once the
// body has been relayed completely later Reads replay the copy.
type MemoryCache struct {
	mux    sync.Mutex
	cache  *bytes.Buffer
	body   []byte
	done   bool
	cause  error
	taken  bool
	reader ByteReadChannel
}

// NewMemoryCache starts relaying body.
func NewMemoryCache(ctx context.Context, body ByteReadChannel) *MemoryCache {
	m := &MemoryCache{cache: bytes.NewBuffer()}
	m.reader = Writer(ctx, func(ctx context.Context, w ByteWriteChannel) error {
		for {
			ok, err := body.AwaitBytes(nil)
			if err != nil {
				m.finish(err)
				return err
			}
			if !ok {
				break
			}
			bp := body.ReadablePacket()
			for b := bp.ReadBuffer(); b != nil; b = bp.ReadBuffer() {
				m.push(b.Bytes())
				w.WritablePacket().WriteBuffer(b)
			}
			if err := w.Flush(); err != nil {
				body.Cancel(err)
				m.finish(err)
				return err
			}
		}
		m.finish(nil)
		return nil
	})
	return m
}

func (m *MemoryCache) push(b []byte) {
	m.mux.Lock()
	m.cache.Push(append([]byte(nil), b...))
	m.mux.Unlock()
}

func (m *MemoryCache) finish(cause error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.cause = cause
	if cause == nil {
		if n := m.cache.Len(); n > 0 {
			m.body, _ = m.cache.Pop(n)
		}
		m.done = true
	}
	m.cache = bytes.NewBuffer()
}

// Read returns a channel over the body. Until the first relay completes
// there is only one channel, the original relay, and every call returns it.
func (m *MemoryCache) Read() ByteReadChannel {
	m.mux.Lock()
	defer m.mux.Unlock()
	switch {
	case m.cause != nil:
		return Failed(m.cause)
	case m.done && m.taken:
		return FromBytes(m.body)
	}
	m.taken = true
	return m.reader
}

// Bytes returns the cached body once it has been relayed completely.
func (m *MemoryCache) Bytes() ([]byte, bool) {
	m.mux.Lock()
	defer m.mux.Unlock()
	return m.body, m.done
}
