package nbpipe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lesismal/nbpipe/taskpool"
)

func TestWriterReadAll(t *testing.T) {
	ch := Writer(context.Background(), func(ctx context.Context, w ByteWriteChannel) error {
		for _, s := range []string{"hello", " ", "world"} {
			w.WritablePacket().WriteString(s)
			if err := w.Flush(); err != nil {
				return err
			}
		}
		return nil
	})
	b, err := ReadAll(ch)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(b) != "hello world" {
		t.Fatalf("invalid body: %q", b)
	}
	if !ch.IsClosedForRead() {
		t.Fatalf("channel should be closed for read")
	}
	if ch.ClosedCause() != nil {
		t.Fatalf("unexpected cause: %v", ch.ClosedCause())
	}
}

func TestWriterError(t *testing.T) {
	errBoom := errors.New("boom")
	ch := Writer(context.Background(), func(ctx context.Context, w ByteWriteChannel) error {
		w.WritablePacket().WriteString("partial")
		if err := w.Flush(); err != nil {
			return err
		}
		w.WritablePacket().WriteString("dropped")
		return errBoom
	})
	_, err := ReadAll(ch)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected %v, got %v", errBoom, err)
	}
	if !errors.Is(ch.ClosedCause(), errBoom) {
		t.Fatalf("expected cause %v, got %v", errBoom, ch.ClosedCause())
	}
	if !ch.ReadablePacket().IsEmpty() {
		t.Fatalf("readable packet should be released")
	}
}

func TestWriterPanic(t *testing.T) {
	ch := Writer(context.Background(), func(ctx context.Context, w ByteWriteChannel) error {
		panic("oops")
	})
	_, err := ReadAll(ch)
	var pe *taskpool.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected a panic error, got %v", err)
	}
	if pe.Value != "oops" {
		t.Fatalf("invalid panic value: %v", pe.Value)
	}
}

func TestReaderReturnReleasesWriter(t *testing.T) {
	got := make(chan []byte, 1)
	w := Reader(context.Background(), func(ctx context.Context, r ByteReadChannel) error {
		p, err := ReadPacket(r, 3)
		if err != nil {
			return err
		}
		got <- p.ToByteArray()
		return nil
	})

	var err error
	for i := 0; i < 1000 && err == nil; i++ {
		w.WritablePacket().WriteString("x")
		err = w.Flush()
	}
	if !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected %v, got %v", ErrChannelClosed, err)
	}
	if s := string(<-got); s != "xxx" {
		t.Fatalf("invalid read: %q", s)
	}
	if w.Close(nil) {
		t.Fatalf("Close after the reader left should return false")
	}
}

func TestReaderError(t *testing.T) {
	errBad := errors.New("bad input")
	w := Reader(context.Background(), func(ctx context.Context, r ByteReadChannel) error {
		return errBad
	})
	var err error
	for err == nil {
		w.WritablePacket().WriteString("data")
		err = w.Flush()
	}
	if !errors.Is(err, errBad) {
		t.Fatalf("expected %v, got %v", errBad, err)
	}
}

func TestContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := Writer(ctx, func(ctx context.Context, w ByteWriteChannel) error {
		<-ctx.Done()
		w.WritablePacket().WriteString("late")
		return w.Flush()
	})
	cancel()
	_, err := ReadAll(ch)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected %v, got %v", context.Canceled, err)
	}
}

func TestCancelIdempotent(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	c := NewConflatedChannel(Config{})
	if !c.Cancel(errA) {
		t.Fatalf("first Cancel should return true")
	}
	if c.Cancel(errB) {
		t.Fatalf("second Cancel should return false")
	}
	if c.Close(errB) {
		t.Fatalf("Close after Cancel should return false")
	}
	if c.ClosedCause() != errA {
		t.Fatalf("cause changed: %v", c.ClosedCause())
	}
	ok, err := c.AwaitBytes(nil)
	if ok || err != errA {
		t.Fatalf("expected (false, %v), got (%v, %v)", errA, ok, err)
	}
	c.WritablePacket().WriteString("x")
	if err := c.Flush(); err != errA {
		t.Fatalf("expected %v, got %v", errA, err)
	}
}

func TestCancelWithoutCause(t *testing.T) {
	c := NewConflatedChannel(Config{})
	c.Cancel(nil)
	ok, err := c.AwaitBytes(nil)
	if ok || err != nil {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
	if err := c.Flush(); err != ErrChannelClosed {
		t.Fatalf("expected %v, got %v", ErrChannelClosed, err)
	}
}

func TestCloseFlushesRemaining(t *testing.T) {
	c := NewConflatedChannel(Config{})
	c.WritablePacket().WriteString("tail")
	go c.Close(nil)
	b, err := ReadAll(c)
	if err != nil || string(b) != "tail" {
		t.Fatalf("expected tail, got %q, %v", b, err)
	}
}

func TestLateCancelUnblocksClose(t *testing.T) {
	c := NewConflatedChannel(Config{})
	c.WritablePacket().WriteString("never read")
	closed := make(chan struct{})
	go func() {
		c.Close(nil)
		close(closed)
	}()
	time.Sleep(time.Millisecond * 20)
	c.Cancel(nil)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatalf("Close is still blocked")
	}
	if c.ClosedCause() != nil {
		t.Fatalf("unexpected cause: %v", c.ClosedCause())
	}
}

func TestLateCancelCauseReplacesCleanEnd(t *testing.T) {
	errGone := errors.New("reader gone")
	c := NewConflatedChannel(Config{})
	c.WritablePacket().WriteString("never read")
	closed := make(chan struct{})
	go func() {
		c.Close(nil)
		close(closed)
	}()
	time.Sleep(time.Millisecond * 20)
	if c.Cancel(errGone) {
		t.Fatalf("Cancel after Close should return false")
	}
	<-closed
	if c.ClosedCause() != errGone {
		t.Fatalf("expected cause %v, got %v", errGone, c.ClosedCause())
	}
}

func TestContextCancelDuringClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := Writer(ctx, func(ctx context.Context, w ByteWriteChannel) error {
		w.WritablePacket().WriteString("hello")
		return nil
	})
	time.Sleep(time.Millisecond * 50)
	cancel()
	<-ch.(*ConflatedChannel).Done()

	ok, err := ch.AwaitBytes(nil)
	if ok || !errors.Is(err, context.Canceled) {
		t.Fatalf("truncated stream reported as (%v, %v)", ok, err)
	}
	if !errors.Is(ch.ClosedCause(), context.Canceled) {
		t.Fatalf("expected cause %v, got %v", context.Canceled, ch.ClosedCause())
	}
}

func TestCancelWakesPendingAwait(t *testing.T) {
	errStop := errors.New("stop")
	c := NewConflatedChannel(Config{})
	flushed := make(chan error, 1)
	go func() {
		var err error
		for err == nil {
			c.WritablePacket().WriteString("data")
			err = c.Flush()
		}
		flushed <- err
	}()
	go func() {
		time.Sleep(time.Millisecond * 20)
		c.Cancel(errStop)
	}()

	ok, err := c.AwaitBytes(func() bool {
		return c.ReadablePacket().AvailableForRead() >= 1024*1024*1024
	})
	if ok || err != errStop {
		t.Fatalf("expected (false, %v), got (%v, %v)", errStop, ok, err)
	}
	if !c.ReadablePacket().IsEmpty() {
		t.Fatalf("readable packet should be released")
	}
	if err := <-flushed; err != errStop {
		t.Fatalf("writer expected %v, got %v", errStop, err)
	}
	if !c.IsClosedForRead() {
		t.Fatalf("channel should be closed for read")
	}
}

func TestFlushBackpressure(t *testing.T) {
	c := NewConflatedChannel(Config{})
	flushed := make(chan error, 1)
	go func() {
		c.WritablePacket().WriteString("a")
		flushed <- c.Flush()
	}()
	select {
	case <-flushed:
		t.Fatalf("Flush returned before the reader took the bytes")
	case <-time.After(time.Millisecond * 50):
	}
	ok, err := c.AwaitBytes(nil)
	if !ok || err != nil {
		t.Fatalf("AwaitBytes failed: %v, %v", ok, err)
	}
	if err := <-flushed; err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if s := c.ReadablePacket().ReadString(); s != "a" {
		t.Fatalf("invalid read: %q", s)
	}
}

func TestFixedPoolExecutor(t *testing.T) {
	pool := taskpool.NewFixedPool(4, 16)
	defer pool.Stop()

	conf := Config{Name: "pool", Executor: pool.Executor()}
	ch := WriterWith(context.Background(), conf, func(ctx context.Context, w ByteWriteChannel) error {
		w.WritablePacket().WriteInt64(42)
		return nil
	})
	v, err := ReadInt64(ch)
	if err != nil || v != 42 {
		t.Fatalf("expected 42, got %v, %v", v, err)
	}
}

func TestStoppedExecutor(t *testing.T) {
	conf := Config{Executor: func(f func()) bool { return false }}
	ch := WriterWith(context.Background(), conf, func(ctx context.Context, w ByteWriteChannel) error {
		return nil
	})
	_, err := ReadAll(ch)
	if !errors.Is(err, taskpool.ErrStopped) {
		t.Fatalf("expected %v, got %v", taskpool.ErrStopped, err)
	}
}
