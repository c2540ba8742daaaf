// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"github.com/lesismal/nbpipe"
	"github.com/lesismal/nbpipe/taskpool"
)

const (
	// DefaultMaxChunkSizeLength .
	DefaultMaxChunkSizeLength = 128

	// DefaultMaxHeaderSize .
	DefaultMaxHeaderSize = 1024 * 8

	// DefaultMaxHeaderLineLength .
	DefaultMaxHeaderLineLength = 1024 * 4

	// DefaultMaxPreambleSize .
	DefaultMaxPreambleSize = 1024 * 8
)

// Config limits what the body codecs accept. Zero fields take the defaults.
type Config struct {
	// MaxChunkSizeLength is the longest chunk size line, extensions included.
	MaxChunkSizeLength int

	// MaxHeaderSize bounds a whole header block in bytes.
	MaxHeaderSize int

	// MaxHeaderLineLength bounds a single header line in characters.
	MaxHeaderLineLength int

	// MaxPreambleSize bounds the multipart preamble and epilogue.
	MaxPreambleSize int

	// Pipe configures the channels and tasks started by the codecs.
	Pipe nbpipe.Config
}

func (conf Config) normalize() Config {
	if conf.MaxChunkSizeLength <= 0 {
		conf.MaxChunkSizeLength = DefaultMaxChunkSizeLength
	}
	if conf.MaxHeaderSize <= 0 {
		conf.MaxHeaderSize = DefaultMaxHeaderSize
	}
	if conf.MaxHeaderLineLength <= 0 {
		conf.MaxHeaderLineLength = DefaultMaxHeaderLineLength
	}
	if conf.MaxPreambleSize <= 0 {
		conf.MaxPreambleSize = DefaultMaxPreambleSize
	}
	if conf.Pipe.Name == "" {
		conf.Pipe.Name = "NBHTTP"
	}
	if conf.Pipe.Executor == nil {
		conf.Pipe.Executor = taskpool.GoExecutor
	}
	return conf
}
