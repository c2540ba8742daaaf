// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package taskpool

import (
	"fmt"
	"runtime"

	"github.com/lesismal/nbpipe/logging"
)

// PanicError is returned by Call when the task panicked.
type PanicError struct {
	Value interface{}
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Call runs f and turns a panic into a *PanicError so that the caller can
// hand it to whatever the task was bound to.
func Call(f func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			logging.Error("taskpool call failed: %v\n%v\n", v, string(buf))
			err = &PanicError{Value: v, Stack: string(buf)}
		}
	}()
	return f()
}

func call(f func()) {
	_ = Call(func() error {
		f()
		return nil
	})
}
