// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"fmt"
	"strings"
)

const maxBoundaryLength = 70

// boundary parameter scanner states
const (
	paramHeaderValue = iota
	paramName
	paramValue
	paramQuoted
	paramEscaped
)

// findBoundary returns the offset of the "boundary=" parameter in a
// Content-Type value, skipping parameter values and quoted strings.
func findBoundary(contentType string) int {
	state := paramHeaderValue
	nameLen := 0
	for i := 0; i < len(contentType); i++ {
		c := contentType[i]
		switch state {
		case paramHeaderValue:
			if c == ';' {
				state = paramName
				nameLen = 0
			}
		case paramName:
			switch {
			case c == '=':
				state = paramValue
			case c == ';':
				nameLen = 0
			case c == ',':
				state = paramHeaderValue
			case c == ' ':
			case nameLen == 0 && hasPrefixFold(contentType[i:], "boundary="):
				return i
			default:
				nameLen++
			}
		case paramValue:
			switch c {
			case '"':
				state = paramQuoted
			case ',':
				state = paramHeaderValue
			case ';':
				state = paramName
				nameLen = 0
			}
		case paramQuoted:
			switch c {
			case '"':
				state = paramName
				nameLen = 0
			case '\\':
				state = paramEscaped
			}
		case paramEscaped:
			state = paramQuoted
		}
	}
	return -1
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// boundary value scanner states
const (
	valueSpaces = iota
	valueUnquoted
	valueQuoted
	valueEscaped
)

// ParseBoundary extracts the multipart boundary from a Content-Type value.
// Quoted boundaries are unquoted, the result has at most 70 7bit characters.
func ParseBoundary(contentType string) (string, error) {
	start := findBoundary(contentType)
	if start < 0 {
		return "", ErrBoundaryMissing
	}

	var sb strings.Builder
	appendChar := func(c byte) error {
		if sb.Len() >= maxBoundaryLength {
			return ErrBoundaryTooLong
		}
		sb.WriteByte(c)
		return nil
	}

	state := valueSpaces
loop:
	for i := start + len("boundary="); i < len(contentType); i++ {
		c := contentType[i]
		if c > 0x7f {
			return "", fmt.Errorf("%w: wrong boundary byte 0x%x", ErrBoundaryNot7Bit, c)
		}
		switch state {
		case valueSpaces:
			switch c {
			case ' ':
			case '"':
				state = valueQuoted
			case ';', ',':
				break loop
			default:
				state = valueUnquoted
				sb.WriteByte(c)
			}
		case valueUnquoted:
			if c == ' ' || c == ',' || c == ';' {
				break loop
			}
			if err := appendChar(c); err != nil {
				return "", err
			}
		case valueQuoted:
			if c == '"' {
				break loop
			}
			if c == '\\' {
				state = valueEscaped
				continue
			}
			if err := appendChar(c); err != nil {
				return "", err
			}
		case valueEscaped:
			if err := appendChar(c); err != nil {
				return "", err
			}
			state = valueQuoted
		}
	}

	if sb.Len() == 0 {
		return "", ErrBoundaryEmpty
	}
	return sb.String(), nil
}
