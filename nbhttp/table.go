// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

var (
	hexCharMap [256]bool

	hexValueMap [256]int64
)

func init() {
	for c := '0'; c <= '9'; c++ {
		hexCharMap[c] = true
		hexValueMap[c] = int64(c - '0')
	}
	for c := 'a'; c <= 'f'; c++ {
		hexCharMap[c] = true
		hexValueMap[c] = int64(c-'a') + 10
		hexCharMap[c-'a'+'A'] = true
		hexValueMap[c-'a'+'A'] = int64(c-'a') + 10
	}
}

func isHex(c byte) bool {
	return hexCharMap[c]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}
