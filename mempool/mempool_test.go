package mempool

import (
	"testing"
)

func TestMemPool(t *testing.T) {
	const minMemSize = 64
	pool := New(minMemSize, 1024*1024)
	for i := 0; i < 1024*64; i++ {
		buf := pool.Malloc(i)
		if len(buf) != i {
			t.Fatalf("invalid length: %v != %v", len(buf), i)
		}
		pool.Free(buf)
	}
	for i := 1024 * 1024; i < 1024*1024*8; i += 1024 * 1024 {
		buf := pool.Malloc(i)
		if len(buf) != i {
			t.Fatalf("invalid length: %v != %v", len(buf), i)
		}
		pool.Free(buf)
	}
}

func TestMemPoolDebug(t *testing.T) {
	pool := New(64, 1024)
	pool.SetDebug(true)
	defer pool.SetDebug(false)

	a := pool.Malloc(100)
	b := pool.Malloc(10)
	if n := pool.Outstanding(); n != 2 {
		t.Fatalf("invalid outstanding: %v != 2", n)
	}
	pool.Free(a)
	if n := pool.Outstanding(); n != 1 {
		t.Fatalf("invalid outstanding: %v != 1", n)
	}

	// double free must be refused
	pool.Free(a)
	if n := pool.Outstanding(); n != 1 {
		t.Fatalf("double free changed outstanding: %v != 1", n)
	}

	// foreign slices are not recycled
	pool.Free(make([]byte, 128))
	if n := pool.Outstanding(); n != 1 {
		t.Fatalf("foreign free changed outstanding: %v != 1", n)
	}

	pool.Free(b)
	if n := pool.Outstanding(); n != 0 {
		t.Fatalf("invalid outstanding: %v != 0", n)
	}
	if pool.String() == "" {
		t.Fatalf("debug stats should not be empty")
	}
}

func TestSTD(t *testing.T) {
	a := NewSTD()
	buf := a.Malloc(10)
	if len(buf) != 10 {
		t.Fatalf("invalid length: %v != 10", len(buf))
	}
	a.Free(buf)
}
