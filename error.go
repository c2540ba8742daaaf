// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbpipe

import (
	"errors"
)

var (
	// ErrChannelClosed is returned by writes on a channel that has been closed
	// or cancelled without a cause.
	ErrChannelClosed = errors.New("nbpipe: channel closed")

	// ErrTooLongLine is returned by StringReader when a line exceeds its limit.
	ErrTooLongLine = errors.New("nbpipe: line is too long")

	// ErrNegativeLimit .
	ErrNegativeLimit = errors.New("nbpipe: negative limit")
)
