// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package taskpool

import (
	"sync"
	"sync/atomic"
)

// fixedRunner .
type fixedRunner struct {
	wg *sync.WaitGroup

	chTask  chan func()
	chClose chan struct{}
}

func (r *fixedRunner) taskLoop() {
	defer r.wg.Done()

	// run all queued tasks before exiting
	defer func() {
		for {
			select {
			case f := <-r.chTask:
				call(f)
			default:
				return
			}
		}
	}()

	for {
		select {
		case f := <-r.chTask:
			call(f)
		case <-r.chClose:
			return
		}
	}
}

// FixedPool runs tasks on a fixed number of goroutines.
//
// Pipe tasks block on each other: a producer bound to a channel waits for its
// consumer. The pool must have at least as many runners as tasks that can be
// blocked at the same time, otherwise the queued peer never runs.
type FixedPool struct {
	wg      *sync.WaitGroup
	stopped int32

	chTask  chan func()
	chClose chan struct{}

	runners []*fixedRunner
}

func (tp *FixedPool) push(f func()) error {
	select {
	case tp.chTask <- f:
	case <-tp.chClose:
		return ErrStopped
	}
	return nil
}

// Go queues f, it returns false if the pool has been stopped.
func (tp *FixedPool) Go(f func()) bool {
	if f == nil || atomic.LoadInt32(&tp.stopped) == 1 {
		return false
	}
	return tp.push(f) == nil
}

// Executor returns tp.Go as an Executor.
func (tp *FixedPool) Executor() Executor {
	return tp.Go
}

// Stop stops the pool after the queued tasks are done.
func (tp *FixedPool) Stop() {
	if atomic.CompareAndSwapInt32(&tp.stopped, 0, 1) {
		close(tp.chClose)
		tp.wg.Wait()
	}
}

// NewFixedPool .
func NewFixedPool(size int, bufferSize int) *FixedPool {
	if size <= 0 {
		size = 1
	}
	tp := &FixedPool{
		wg:      &sync.WaitGroup{},
		chTask:  make(chan func(), bufferSize),
		chClose: make(chan struct{}),
		runners: make([]*fixedRunner, size),
	}

	for i := 0; i < size; i++ {
		r := &fixedRunner{
			wg:      tp.wg,
			chTask:  tp.chTask,
			chClose: tp.chClose,
		}
		tp.runners[i] = r
		tp.wg.Add(1)
		go r.taskLoop()
	}

	return tp
}
