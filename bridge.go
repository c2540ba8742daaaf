// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbpipe

import (
	"context"

	"github.com/lesismal/nbpipe/logging"
	"github.com/lesismal/nbpipe/taskpool"
)

// WriterFunc produces bytes into w.
type WriterFunc func(ctx context.Context, w ByteWriteChannel) error

// ReaderFunc consumes bytes from r.
type ReaderFunc func(ctx context.Context, r ByteReadChannel) error

// Writer runs block as a producer task and returns the read side of its channel.
func Writer(ctx context.Context, block WriterFunc) ByteReadChannel {
	return WriterWith(ctx, Config{}, block)
}

// WriterWith is Writer with an explicit Config.
// The channel is closed with block's error or panic, or cleanly when block returns nil.
func WriterWith(ctx context.Context, conf Config, block WriterFunc) ByteReadChannel {
	conf = conf.normalize()
	if ctx == nil {
		ctx = context.Background()
	}
	c := NewConflatedChannel(conf)
	c.bind(ctx)
	ok := conf.Executor(func() {
		err := taskpool.Call(func() error {
			return block(ctx, c)
		})
		if err != nil {
			logging.Debug("%v writer task failed: %v", conf.Name, err)
		}
		c.Close(err)
	})
	if !ok {
		logging.Error("%v writer task rejected: %v", conf.Name, taskpool.ErrStopped)
		c.Close(taskpool.ErrStopped)
	}
	return c
}

// Reader runs block as a consumer task and returns the write side of its channel.
func Reader(ctx context.Context, block ReaderFunc) ByteWriteChannel {
	return ReaderWith(ctx, Config{}, block)
}

// ReaderWith is Reader with an explicit Config.
// The channel is cancelled with block's error or panic; when block returns nil
// it is cancelled without a cause so the producer never hangs on a reader that left.
func ReaderWith(ctx context.Context, conf Config, block ReaderFunc) ByteWriteChannel {
	conf = conf.normalize()
	if ctx == nil {
		ctx = context.Background()
	}
	c := NewConflatedChannel(conf)
	c.bind(ctx)
	ok := conf.Executor(func() {
		err := taskpool.Call(func() error {
			return block(ctx, c)
		})
		if err != nil {
			logging.Debug("%v reader task failed: %v", conf.Name, err)
		}
		c.Cancel(err)
	})
	if !ok {
		logging.Error("%v reader task rejected: %v", conf.Name, taskpool.ErrStopped)
		c.Cancel(taskpool.ErrStopped)
	}
	return c
}
