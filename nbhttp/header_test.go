package nbhttp

import (
	"errors"
	"io"
	"testing"

	"github.com/lesismal/nbpipe"
)

func TestParseHeaders(t *testing.T) {
	data := "A: 1\r\nb-c:  two \r\n folded\r\n\tagain\r\nA: 3\r\nEmpty:\r\n\r\nrest"
	for name, split := range splitters {
		ch := feed([]byte(data), split)
		header, err := ParseHeaders(ch, Config{})
		if err != nil {
			t.Fatalf("%v: ParseHeaders failed: %v", name, err)
		}
		if v := header["A"]; len(v) != 2 || v[0] != "1" || v[1] != "3" {
			t.Fatalf("%v: invalid A: %v", name, v)
		}
		if v := header.Get("B-C"); v != "two folded again" {
			t.Fatalf("%v: invalid B-C: %q", name, v)
		}
		if v, ok := header["Empty"]; !ok || v[0] != "" {
			t.Fatalf("%v: invalid Empty: %v", name, v)
		}
		rest, err := nbpipe.ReadAll(ch)
		if err != nil || string(rest) != "rest" {
			t.Fatalf("%v: body after headers: %q, %v", name, rest, err)
		}
	}
}

func TestParseHeadersEmpty(t *testing.T) {
	header, err := ParseHeaders(nbpipe.FromString("\r\nbody"), Config{})
	if err != nil || len(header) != 0 {
		t.Fatalf("expected an empty header, got %v, %v", header, err)
	}
}

func TestParseHeadersErrors(t *testing.T) {
	cases := []struct {
		input string
		conf  Config
		err   error
	}{
		{"A: 1\r\n", Config{}, io.ErrUnexpectedEOF},
		{"no colon\r\n\r\n", Config{}, ErrInvalidHeaderLine},
		{": empty name\r\n\r\n", Config{}, ErrInvalidHeaderLine},
		{" folded first\r\n\r\n", Config{}, ErrInvalidHeaderLine},
		{"Na me: x\r\n\r\n", Config{}, ErrInvalidCharInHeader},
		{"Name: x\x01y\r\n\r\n", Config{}, ErrInvalidCharInHeader},
		{"A: 1\r\nB: 2\r\nC: 3\r\n\r\n", Config{MaxHeaderSize: 12}, ErrTooLong},
		{"Long: 0123456789\r\n\r\n", Config{MaxHeaderLineLength: 10}, ErrTooLong},
	}
	for _, c := range cases {
		_, err := ParseHeaders(nbpipe.FromString(c.input), c.conf)
		if !errors.Is(err, c.err) {
			t.Fatalf("%q: expected %v, got %v", c.input, c.err, err)
		}
	}
}
