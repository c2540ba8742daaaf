// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package taskpool

import "errors"

// ErrStopped .
var ErrStopped = errors.New("taskpool stopped")

// Executor runs f asynchronously, it returns false if f was not accepted.
type Executor func(f func()) bool

// GoExecutor runs every task on its own goroutine.
func GoExecutor(f func()) bool {
	go call(f)
	return true
}
