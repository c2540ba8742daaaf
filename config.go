// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbpipe

import (
	"github.com/lesismal/nbpipe/mempool"
	"github.com/lesismal/nbpipe/taskpool"
)

// Config configures channels and the tasks bound to them.
// The zero value is ready to use.
type Config struct {
	// Name is used in logs, it's set to "NBPIPE" by default.
	Name string

	// Executor runs producer and consumer tasks, a new goroutine per task by default.
	// Bridged tasks block on each other, a bounded pool must be large enough
	// to hold every task that may wait at the same time.
	Executor taskpool.Executor

	// Allocator backs the Packets of new channels, mempool.DefaultMemPool by default.
	Allocator mempool.Allocator
}

func (conf Config) normalize() Config {
	if conf.Name == "" {
		conf.Name = "NBPIPE"
	}
	if conf.Executor == nil {
		conf.Executor = taskpool.GoExecutor
	}
	if conf.Allocator == nil {
		conf.Allocator = mempool.DefaultMemPool
	}
	return conf
}
