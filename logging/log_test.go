package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	old := DefaultLogger
	defer SetLogger(old)

	buf := &bytes.Buffer{}
	SetLogger(New(buf, "test", LevelDebug))
	Debug("hello %v", 1)
	if !strings.Contains(buf.String(), "[test] ") || !strings.Contains(buf.String(), "[DBG] hello 1") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestSetLevel(t *testing.T) {
	old := DefaultLogger
	defer SetLogger(old)

	buf := &bytes.Buffer{}
	SetLogger(New(buf, "", LevelAll))
	SetLevel(LevelWarn)
	Info("dropped")
	Warn("kept")
	if strings.Contains(buf.String(), "dropped") {
		t.Fatalf("info should be filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "[WRN] kept") {
		t.Fatalf("warn should be written: %q", buf.String())
	}

	// invalid levels are ignored
	SetLevel(1000)
	Error("still")
	if !strings.Contains(buf.String(), "[ERR] still") {
		t.Fatalf("error should be written: %q", buf.String())
	}
}

func Test_logger_Levels(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, "", LevelNone)
	l.Debug("a")
	l.Info("b")
	l.Warn("c")
	l.Error("d")
	if buf.Len() != 0 {
		t.Fatalf("LevelNone should write nothing: %q", buf.String())
	}
	l.SetLevel(LevelDebug)
	l.Debug("logger debug test")
	l.Info("logger info test")
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", n, buf.String())
	}
}

func Test_Nil(t *testing.T) {
	old := DefaultLogger
	defer SetLogger(old)
	SetLogger(nil)
	Debug("log.Debug")
	Info("log.Info")
	Warn("log.Warn")
	Error("log.Error")
	SetLevel(LevelDebug)
}
