// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rawio reads and writes files of AMC13 frames.
//
// Two file formats are supported:
//   - Raw: each frame payload is preceded by a 24-byte transport header
//     carrying the payload size,
//   - MiniDAQ: an INIT record followed by EVT records, each holding a
//     zlib compressed blob from which the frame payload is extracted.
//
// Readers return io.EOF once the stream ends cleanly.
package rawio // import "github.com/go-lpc/gem/amc13/rawio"

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

// Format identifies the layout of a file of AMC13 frames.
type Format uint8

const (
	Raw Format = iota
	MiniDAQ
)

func (f Format) String() string {
	switch f {
	case Raw:
		return "raw"
	case MiniDAQ:
		return "minidaq"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// ParseFormat parses the name of a file format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "raw", "amc13", "":
		return Raw, nil
	case "minidaq":
		return MiniDAQ, nil
	default:
		return 0, fmt.Errorf("rawio: invalid file format %q", s)
	}
}

var errClosed = errors.New("rawio: writer closed")

// Reader is a sequential source of AMC13 frame payloads.
type Reader interface {
	// Next returns the payload of the next frame.
	// Next returns io.EOF at the end of the stream.
	Next() ([]byte, error)

	// Pos returns the current byte offset in the underlying source.
	Pos() int64
}

var (
	_ Reader = (*RawReader)(nil)
	_ Reader = (*MiniDAQReader)(nil)
	_ Reader = (*File)(nil)
)

// Option configures a frame reader.
type Option func(*config)

type config struct {
	msg     *log.Logger
	verbose bool
	offset  int
}

func newConfig(opts []Option) config {
	cfg := config{
		msg:    log.New(io.Discard, "rawio: ", 0),
		offset: DefaultPayloadOffset,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLogger sets the logger used to report record diagnostics.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithVerbose enables the logging of every record header.
func WithVerbose(v bool) Option {
	return func(cfg *config) {
		cfg.verbose = v
	}
}

// WithPayloadOffset sets the offset of the AMC13 frame inside the
// decompressed blob of a MiniDAQ EVT record.
func WithPayloadOffset(n int) Option {
	return func(cfg *config) {
		cfg.offset = n
	}
}

// readAt fills p from r at offset off.
// A short read is reported as io.ErrUnexpectedEOF.
func readAt(r io.ReaderAt, p []byte, off int64) error {
	n, err := r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return err
}
