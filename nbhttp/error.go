// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"errors"
)

var (
	// ErrInvalidChunkSize .
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrChunkCRLFExpected .
	ErrChunkCRLFExpected = errors.New("invalid chunk: content block should end with CR+LF")

	// ErrInvalidCharInHeader .
	ErrInvalidCharInHeader = errors.New("invalid character in header")

	// ErrInvalidHeaderLine .
	ErrInvalidHeaderLine = errors.New("invalid header line")

	// ErrTooLong .
	ErrTooLong = errors.New("invalid http message: too long")
)

var (
	// ErrNotMultipart .
	ErrNotMultipart = errors.New("content type should be multipart/*")

	// ErrBoundaryMissing .
	ErrBoundaryMissing = errors.New("content type's boundary parameter is missing")

	// ErrBoundaryEmpty .
	ErrBoundaryEmpty = errors.New("boundary shouldn't be empty")

	// ErrBoundaryTooLong .
	ErrBoundaryTooLong = errors.New("boundary shouldn't be longer than 70 characters")

	// ErrBoundaryNot7Bit .
	ErrBoundaryNot7Bit = errors.New("boundary should contain only 7bit characters")

	// ErrMultipartClosed .
	ErrMultipartClosed = errors.New("multipart parser closed")
)
