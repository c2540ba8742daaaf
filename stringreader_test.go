package nbpipe

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func readLines(t *testing.T, r *StringReader, limit int) []string {
	var lines []string
	for {
		line, err := r.ReadLine(limit)
		if err == io.EOF {
			return lines
		}
		if err != nil {
			t.Fatalf("ReadLine failed: %v", err)
		}
		lines = append(lines, line)
	}
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReadLineTerminators(t *testing.T) {
	expected := []string{"abc", "def", "", "ghi"}
	cases := [][]string{
		{"abc\r\ndef\n\r\nghi"},
		{"abc\ndef\n\nghi"},
		{"abc\r", "\ndef\r", "\n", "\r\n", "ghi"},
		{"a", "b", "c", "\r", "\n", "d", "e", "f", "\n", "\n", "g", "h", "i"},
	}
	for i, parts := range cases {
		lines := readLines(t, NewStringReader(fragments(parts...)), NoLimit)
		if !equalLines(lines, expected) {
			t.Fatalf("case %d: expected %q, got %q", i, expected, lines)
		}
	}
}

func TestReadLineToEOF(t *testing.T) {
	r := NewStringReader(FromString("tail"))
	var sb strings.Builder
	ok, err := r.ReadLineTo(&sb, 10)
	if ok || err != nil || sb.String() != "tail" {
		t.Fatalf("expected (false, nil, tail), got (%v, %v, %q)", ok, err, sb.String())
	}
	if _, err := r.ReadLine(10); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReadLineLoneCR(t *testing.T) {
	line, err := NewStringReader(FromString("a\rb\n")).ReadLine(NoLimit)
	if err != nil || line != "a\rb" {
		t.Fatalf("expected %q, got %q, %v", "a\rb", line, err)
	}
}

func TestReadLineLimit(t *testing.T) {
	line, err := NewStringReader(fragments("abc\r", "\n")).ReadLine(3)
	if err != nil || line != "abc" {
		t.Fatalf("line at the limit: %q, %v", line, err)
	}

	input := fragments("abcd", "ef\n")
	r := NewStringReader(input)
	_, err = r.ReadLine(3)
	if !errors.Is(err, ErrTooLongLine) {
		t.Fatalf("expected %v, got %v", ErrTooLongLine, err)
	}
	if !errors.Is(input.ClosedCause(), ErrTooLongLine) {
		t.Fatalf("input not cancelled: %v", input.ClosedCause())
	}
	if _, err = r.ReadLine(3); !errors.Is(err, ErrTooLongLine) {
		t.Fatalf("expected %v after cancel, got %v", ErrTooLongLine, err)
	}
}

func TestReadLineToWithCustomError(t *testing.T) {
	errLong := errors.New("size line too long")
	input := fragments("abcd", "ef\n")
	var sb strings.Builder
	_, err := NewStringReader(input).ReadLineToWith(&sb, 3, func(limit int) error {
		return errLong
	})
	if err != errLong {
		t.Fatalf("expected %v, got %v", errLong, err)
	}
	if input.ClosedCause() != errLong {
		t.Fatalf("input cancelled with %v", input.ClosedCause())
	}
}

func TestReadLineUTF8Split(t *testing.T) {
	// "é" is 0xC3 0xA9
	line, err := NewStringReader(fragments("ab\xc3", "\xa9\n")).ReadLine(3)
	if err != nil || line != "abé" {
		t.Fatalf("expected abé, got %q, %v", line, err)
	}
	line, err = NewStringReader(fragments("\xe4\xb8", "\xad\xe6", "\x96\x87\n")).ReadLine(2)
	if err != nil || line != "中文" {
		t.Fatalf("expected 中文, got %q, %v", line, err)
	}
}

func TestReadLineThenBytes(t *testing.T) {
	r := NewStringReader(fragments("HEAD\r\nbin", "ary"))
	line, err := r.ReadLine(NoLimit)
	if err != nil || line != "HEAD" {
		t.Fatalf("ReadLine: %q, %v", line, err)
	}
	b, err := ReadAll(r)
	if err != nil || string(b) != "binary" {
		t.Fatalf("ReadAll: %q, %v", b, err)
	}
	if NewStringReader(r) != r {
		t.Fatalf("wrapping a StringReader should return it")
	}
}
