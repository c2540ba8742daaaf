package taskpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

const testLoopNum = 1024

func TestCall(t *testing.T) {
	errTask := errors.New("task failed")
	if err := Call(func() error { return errTask }); !errors.Is(err, errTask) {
		t.Fatalf("invalid error: %v", err)
	}

	err := Call(func() error {
		panic("boom")
	})
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("panic should be returned as *PanicError, got %v", err)
	}
	if pe.Value != "boom" || pe.Stack == "" {
		t.Fatalf("invalid panic error: %v", pe)
	}
}

func TestFixedPool(t *testing.T) {
	p := NewFixedPool(8, 64)

	var n int64
	wg := sync.WaitGroup{}
	wg.Add(testLoopNum)
	for i := 0; i < testLoopNum; i++ {
		ok := p.Go(func() {
			defer wg.Done()
			atomic.AddInt64(&n, 1)
		})
		if !ok {
			t.Fatalf("task %d not accepted", i)
		}
	}
	// a panicking task must not kill the runner
	wg.Add(1)
	p.Go(func() {
		defer wg.Done()
		panic("runner survives")
	})
	wg.Wait()
	if n != testLoopNum {
		t.Fatalf("invalid count: %v != %v", n, testLoopNum)
	}

	p.Stop()
	if p.Go(func() {}) {
		t.Fatalf("stopped pool should refuse tasks")
	}
	p.Stop()
}

func TestGoExecutor(t *testing.T) {
	var exec Executor = GoExecutor
	done := make(chan struct{})
	if !exec(func() { close(done) }) {
		t.Fatalf("GoExecutor refused a task")
	}
	<-done
}

func BenchmarkFixedPoolGo(b *testing.B) {
	p := NewFixedPool(32, 512)
	defer p.Stop()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		wg := sync.WaitGroup{}
		wg.Add(testLoopNum)
		for j := 0; j < testLoopNum; j++ {
			p.Go(func() {
				wg.Done()
			})
		}
		wg.Wait()
	}
}
