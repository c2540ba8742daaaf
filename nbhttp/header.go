// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"

	"github.com/lesismal/nbpipe"
	"golang.org/x/net/http/httpguts"
)

// ParseHeaders reads a MIME header block from ch up to and including the
// blank line that ends it. The bytes after the blank line stay in ch.
// Obsolete line folding is joined with a single space.
func ParseHeaders(ch nbpipe.ByteReadChannel, conf Config) (http.Header, error) {
	conf = conf.normalize()
	reader := nbpipe.NewStringReader(ch)

	line := chunkLinePool.Get().(*bytes.Buffer)
	defer func() {
		line.Reset()
		chunkLinePool.Put(line)
	}()

	var (
		header  = http.Header{}
		lastKey string
		total   int
	)
	for {
		line.Reset()
		ok, err := reader.ReadLineTo(line, conf.MaxHeaderLineLength)
		if err != nil {
			if errors.Is(err, nbpipe.ErrTooLongLine) {
				return nil, fmt.Errorf("%w: %v", ErrTooLong, err)
			}
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: header block has ended before a blank line", io.ErrUnexpectedEOF)
		}

		total += line.Len() + 2
		if total > conf.MaxHeaderSize {
			return nil, fmt.Errorf("%w: header block is larger than %d bytes", ErrTooLong, conf.MaxHeaderSize)
		}

		s := line.String()
		if s == "" {
			return header, nil
		}

		if isSpace(s[0]) {
			if lastKey == "" {
				return nil, fmt.Errorf("%w: continuation without a field: %q", ErrInvalidHeaderLine, s)
			}
			value := textproto.TrimString(s)
			if !httpguts.ValidHeaderFieldValue(value) {
				return nil, fmt.Errorf("%w: %q", ErrInvalidCharInHeader, value)
			}
			values := header[lastKey]
			if value != "" {
				values[len(values)-1] += " " + value
			}
			continue
		}

		i := bytes.IndexByte(line.Bytes(), ':')
		if i <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeaderLine, s)
		}
		name, value := s[:i], textproto.TrimString(s[i+1:])
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, fmt.Errorf("%w: field name %q", ErrInvalidCharInHeader, name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, fmt.Errorf("%w: field value %q", ErrInvalidCharInHeader, value)
		}
		lastKey = http.CanonicalHeaderKey(name)
		header[lastKey] = append(header[lastKey], value)
	}
}
