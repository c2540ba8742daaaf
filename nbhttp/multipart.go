// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"

	"github.com/lesismal/nbpipe"
	"github.com/lesismal/nbpipe/logging"
	"github.com/lesismal/nbpipe/packet"
	"github.com/lesismal/nbpipe/taskpool"
)

// Event is a structural element of a multipart stream.
// Every Event must be consumed or released.
type Event interface {
	Release()
}

// Preamble holds the bytes before the first delimiter.
type Preamble struct {
	Body *packet.Packet
}

// Release .
func (p *Preamble) Release() {
	p.Body.Close()
}

// Part is one body part. Body ends at the next delimiter, the parser does
// not go on before Body has been drained or released.
type Part struct {
	Header http.Header
	Body   nbpipe.ByteReadChannel
}

// Release discards the rest of the part.
func (p *Part) Release() {
	p.Body.Cancel(nil)
}

// FormName returns the name parameter of a form-data Content-Disposition.
func (p *Part) FormName() string {
	_, params := p.disposition()
	return params["name"]
}

// FileName returns the filename parameter of the Content-Disposition.
func (p *Part) FileName() string {
	_, params := p.disposition()
	return params["filename"]
}

func (p *Part) disposition() (string, map[string]string) {
	v := p.Header.Get("Content-Disposition")
	if v == "" {
		return "", nil
	}
	d, params, err := mime.ParseMediaType(v)
	if err != nil {
		return "", nil
	}
	return d, params
}

// Text reads at most limit bytes of the body and decodes them with the
// charset of the part's Content-Type, UTF-8 by default.
func (p *Part) Text(limit int64) (string, error) {
	enc, err := packet.LookupCharset("utf-8")
	if ct := p.Header.Get("Content-Type"); ct != "" {
		if _, params, perr := mime.ParseMediaType(ct); perr == nil && params["charset"] != "" {
			enc, err = packet.LookupCharset(params["charset"])
		}
	}
	if err != nil {
		p.Release()
		return "", err
	}
	body, err := nbpipe.ReadRemaining(p.Body, limit)
	if err != nil {
		return "", err
	}
	return body.ReadStringEncoding(enc)
}

// Epilogue holds the bytes after the closing delimiter.
type Epilogue struct {
	Body *packet.Packet
}

// Release .
func (e *Epilogue) Release() {
	e.Body.Close()
}

// Multipart is a running multipart parser.
type Multipart struct {
	conf      Config
	input     nbpipe.ByteReadChannel
	delimiter []byte

	events   chan Event
	stop     chan struct{}
	stopOnce sync.Once
	err      error
	last     Event
}

// ParseMultipart starts a parser task over in. contentLength bounds the
// input when it is not negative. Events are returned by Next in stream order.
func ParseMultipart(ctx context.Context, in nbpipe.ByteReadChannel, contentType string, contentLength int64, conf Config) (*Multipart, error) {
	if !hasPrefixFold(contentType, "multipart/") {
		return nil, fmt.Errorf("%w: %q", ErrNotMultipart, contentType)
	}
	boundary, err := ParseBoundary(contentType)
	if err != nil {
		return nil, err
	}
	if contentLength >= 0 {
		in = nbpipe.Limited(in, contentLength)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	conf = conf.normalize()
	m := &Multipart{
		conf:      conf,
		input:     in,
		delimiter: []byte("--" + boundary),
		events:    make(chan Event),
		stop:      make(chan struct{}),
	}
	if !conf.Pipe.Executor(func() { m.run(ctx) }) {
		return nil, taskpool.ErrStopped
	}
	return m, nil
}

// Next returns the next Event, or io.EOF after the last one.
// A Part returned by the previous call is released first.
func (m *Multipart) Next() (Event, error) {
	if part, ok := m.last.(*Part); ok {
		part.Release()
	}
	m.last = nil
	ev, ok := <-m.events
	if !ok {
		if m.err != nil {
			return nil, m.err
		}
		return nil, io.EOF
	}
	m.last = ev
	return ev, nil
}

// Close releases the current Part and stops the parser at its next suspend point.
func (m *Multipart) Close() error {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	if part, ok := m.last.(*Part); ok {
		part.Release()
	}
	m.last = nil
	return nil
}

func (m *Multipart) stopped() bool {
	select {
	case <-m.stop:
		return true
	default:
		return false
	}
}

func (m *Multipart) run(ctx context.Context) {
	err := taskpool.Call(func() error {
		return m.parse(ctx)
	})
	if err != nil {
		logging.Debug("%v multipart parsing failed: %v", m.conf.Pipe.Name, err)
		m.input.Cancel(err)
	}
	m.err = err
	close(m.events)
}

func (m *Multipart) emit(ctx context.Context, ev Event) error {
	select {
	case m.events <- ev:
		return nil
	case <-m.stop:
		ev.Release()
		return ErrMultipartClosed
	case <-ctx.Done():
		ev.Release()
		return ctx.Err()
	}
}

func (m *Multipart) readable() *packet.Packet {
	return m.input.ReadablePacket()
}

// await waits until n bytes are readable, it returns false if the input ended before.
func (m *Multipart) await(n int) (bool, error) {
	return m.input.AwaitBytes(func() bool {
		return m.readable().AvailableForRead() >= n
	})
}

// awaitMore waits for bytes beyond those already readable.
func (m *Multipart) awaitMore() (bool, error) {
	return m.await(m.readable().AvailableForRead() + 1)
}

func (m *Multipart) parse(ctx context.Context) error {
	preamble, err := m.readPreamble()
	if err != nil {
		return err
	}
	if preamble != nil {
		if err := m.emit(ctx, &Preamble{Body: preamble}); err != nil {
			return err
		}
	}

	for {
		if m.stopped() {
			return ErrMultipartClosed
		}
		closing, err := m.skipDelimiter()
		if err != nil {
			return err
		}
		if closing {
			break
		}

		header, err := ParseHeaders(m.input, m.conf)
		if err != nil {
			return err
		}
		body := nbpipe.NewConflatedChannel(m.conf.Pipe)
		if err := m.emit(ctx, &Part{Header: header, Body: body}); err != nil {
			return err
		}
		if err := m.copyPart(body); err != nil {
			body.Close(err)
			return err
		}
		body.Close(nil)
	}

	epilogue, err := m.readEpilogue()
	if err != nil {
		return err
	}
	if epilogue != nil {
		return m.emit(ctx, &Epilogue{Body: epilogue})
	}
	return nil
}

// readPreamble consumes the bytes before the first delimiter together with
// the CRLF that precedes the delimiter.
func (m *Multipart) readPreamble() (*packet.Packet, error) {
	ok, err := m.await(len(m.delimiter))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: multipart stream has no delimiter", io.ErrUnexpectedEOF)
	}
	if m.readable().HasPrefix(m.delimiter) {
		return nil, nil
	}

	needle := append(append([]byte{}, crlf...), m.delimiter...)
	idx := -1
	limit := m.conf.MaxPreambleSize + len(needle)
	ok, err = m.input.AwaitBytes(func() bool {
		idx = m.readable().IndexOf(needle)
		return idx >= 0 || m.readable().AvailableForRead() > limit
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: multipart stream has no delimiter", io.ErrUnexpectedEOF)
	}
	if idx < 0 || idx > m.conf.MaxPreambleSize {
		return nil, fmt.Errorf("%w: preamble is larger than %d bytes", ErrTooLong, m.conf.MaxPreambleSize)
	}

	var preamble *packet.Packet
	if idx > 0 {
		preamble, _ = m.readable().ReadPacket(idx)
	}
	m.readable().Discard(len(crlf))
	return preamble, nil
}

// skipDelimiter consumes a delimiter line. It returns true for the closing delimiter.
func (m *Multipart) skipDelimiter() (bool, error) {
	ok, err := m.await(len(m.delimiter))
	if err != nil {
		return false, err
	}
	if !ok || !m.readable().HasPrefix(m.delimiter) {
		return false, fmt.Errorf("%w: multipart delimiter expected", io.ErrUnexpectedEOF)
	}
	m.readable().Discard(len(m.delimiter))

	ok, err = m.await(2)
	if err != nil {
		return false, err
	}
	if !ok {
		if m.readable().IsEmpty() {
			// a missing "--" at the very end is tolerated
			return true, nil
		}
		return false, fmt.Errorf("%w: multipart delimiter line is incomplete", io.ErrUnexpectedEOF)
	}
	if m.readable().HasPrefix([]byte("--")) {
		m.readable().Discard(2)
		return true, nil
	}

	// transport padding up to the CRLF
	idx := -1
	ok, err = m.input.AwaitBytes(func() bool {
		idx = m.readable().IndexOf(crlf)
		return idx >= 0 || m.readable().AvailableForRead() > m.conf.MaxHeaderLineLength
	})
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("%w: multipart delimiter line is incomplete", io.ErrUnexpectedEOF)
	}
	if idx < 0 {
		return false, fmt.Errorf("%w: multipart delimiter line", ErrTooLong)
	}
	m.readable().Discard(idx + len(crlf))
	return false, nil
}

// copyPart streams the input into body up to the CRLF before the next
// delimiter. Bytes that may start a delimiter are held back until enough
// input has arrived to tell. Once body has been released the rest of the
// part is discarded.
func (m *Multipart) copyPart(body *nbpipe.ConflatedChannel) error {
	needle := append(append([]byte{}, crlf...), m.delimiter...)
	released := false
	move := func(n int) {
		p, _ := m.readable().ReadPacket(n)
		if released {
			p.Close()
			return
		}
		body.WritablePacket().WritePacket(p)
		if err := body.Flush(); err != nil {
			released = true
		}
	}

	for {
		if idx := m.readable().IndexOf(needle); idx >= 0 {
			if idx > 0 {
				move(idx)
			}
			m.readable().Discard(len(crlf))
			return nil
		}
		if safe := m.readable().AvailableForRead() - (len(needle) - 1); safe > 0 {
			move(safe)
		}
		if released && m.stopped() {
			return ErrMultipartClosed
		}
		ok, err := m.awaitMore()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: part has no closing delimiter", io.ErrUnexpectedEOF)
		}
	}
}

// readEpilogue consumes everything after the closing delimiter.
func (m *Multipart) readEpilogue() (*packet.Packet, error) {
	if _, err := m.await(len(crlf)); err != nil {
		return nil, err
	}
	if m.readable().HasPrefix(crlf) {
		m.readable().Discard(len(crlf))
	}
	epilogue, err := nbpipe.ReadRemaining(m.input, int64(m.conf.MaxPreambleSize)+1)
	if err != nil {
		return nil, err
	}
	if epilogue.AvailableForRead() > m.conf.MaxPreambleSize {
		epilogue.Close()
		return nil, fmt.Errorf("%w: epilogue is larger than %d bytes", ErrTooLong, m.conf.MaxPreambleSize)
	}
	if epilogue.IsEmpty() {
		return nil, nil
	}
	return epilogue, nil
}
