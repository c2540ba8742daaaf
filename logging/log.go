// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"io"
	"log"
	"os"
)

var (
	// DefaultLogger is the default logger and is used by nbpipe, its codecs and pools.
	DefaultLogger Logger = New(os.Stderr, "nbpipe", LevelInfo)
)

const (
	// LevelAll enables all logs.
	LevelAll = iota
	// LevelDebug logs are usually disabled in production.
	LevelDebug
	// LevelInfo is the default logging priority.
	LevelInfo
	// LevelWarn .
	LevelWarn
	// LevelError .
	LevelError
	// LevelNone disables all logs.
	LevelNone
)

// Logger defines log interface.
type Logger interface {
	SetLevel(lvl int)
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// SetLogger sets default logger.
func SetLogger(l Logger) {
	DefaultLogger = l
}

// SetLevel sets default logger's priority.
func SetLevel(lvl int) {
	if !validLevel(lvl) {
		log.Printf("invalid log level: %v", lvl)
		return
	}
	if DefaultLogger != nil {
		DefaultLogger.SetLevel(lvl)
	}
}

func validLevel(lvl int) bool {
	return lvl >= LevelAll && lvl <= LevelNone
}

// logger implements Logger on top of a standard *log.Logger.
type logger struct {
	level int
	out   *log.Logger
}

// New creates a Logger writing to w, every line is prefixed with "[name] ".
func New(w io.Writer, name string, lvl int) Logger {
	if !validLevel(lvl) {
		lvl = LevelInfo
	}
	prefix := ""
	if name != "" {
		prefix = "[" + name + "] "
	}
	return &logger{
		level: lvl,
		out:   log.New(w, prefix, log.LstdFlags),
	}
}

// SetLevel sets logs priority.
func (l *logger) SetLevel(lvl int) {
	if !validLevel(lvl) {
		log.Printf("invalid log level: %v", lvl)
		return
	}
	l.level = lvl
}

func (l *logger) output(lvl int, tag, format string, v ...interface{}) {
	if lvl >= l.level {
		l.out.Printf(tag+format+"\n", v...)
	}
}

// Debug logs a message at LevelDebug.
func (l *logger) Debug(format string, v ...interface{}) {
	l.output(LevelDebug, "[DBG] ", format, v...)
}

// Info logs a message at LevelInfo.
func (l *logger) Info(format string, v ...interface{}) {
	l.output(LevelInfo, "[INF] ", format, v...)
}

// Warn logs a message at LevelWarn.
func (l *logger) Warn(format string, v ...interface{}) {
	l.output(LevelWarn, "[WRN] ", format, v...)
}

// Error logs a message at LevelError.
func (l *logger) Error(format string, v ...interface{}) {
	l.output(LevelError, "[ERR] ", format, v...)
}

// Debug uses DefaultLogger to log a message at LevelDebug.
func Debug(format string, v ...interface{}) {
	if DefaultLogger != nil {
		DefaultLogger.Debug(format, v...)
	}
}

// Info uses DefaultLogger to log a message at LevelInfo.
func Info(format string, v ...interface{}) {
	if DefaultLogger != nil {
		DefaultLogger.Info(format, v...)
	}
}

// Warn uses DefaultLogger to log a message at LevelWarn.
func Warn(format string, v ...interface{}) {
	if DefaultLogger != nil {
		DefaultLogger.Warn(format, v...)
	}
}

// Error uses DefaultLogger to log a message at LevelError.
func Error(format string, v ...interface{}) {
	if DefaultLogger != nil {
		DefaultLogger.Error(format, v...)
	}
}
