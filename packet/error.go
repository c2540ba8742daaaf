// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package packet

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrEndOfData is returned when a read asks for more bytes than the Packet holds.
	// Callers are expected to wait for enough bytes before reading, so hitting it
	// is a logic error rather than an I/O condition.
	ErrEndOfData = fmt.Errorf("packet: not enough bytes available: %w", io.EOF)

	// ErrUnsupportedCharset .
	ErrUnsupportedCharset = errors.New("packet: unsupported charset")
)
