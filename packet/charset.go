// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package packet

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// LookupCharset resolves a charset label such as "ISO-8859-1" or "utf-8".
func LookupCharset(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, ErrUnsupportedCharset
	}
	return enc, nil
}

func isUTF8(enc encoding.Encoding) bool {
	return enc == nil || enc == unicode.UTF8 || enc == encoding.Nop
}

// ReadStringEncoding drains the Packet and decodes it with enc.
// UTF-8 takes the fast path of ReadString.
func (p *Packet) ReadStringEncoding(enc encoding.Encoding) (string, error) {
	if isUTF8(enc) {
		return p.ReadString(), nil
	}
	b, err := enc.NewDecoder().Bytes(p.ToByteArray())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteStringEncoding encodes s with enc and appends the result.
func (p *Packet) WriteStringEncoding(s string, enc encoding.Encoding) error {
	if isUTF8(enc) {
		p.WriteString(s)
		return nil
	}
	b, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return err
	}
	p.WriteByteArray(b)
	return nil
}
