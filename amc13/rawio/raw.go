// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	rawHeaderSize = 24 // 16 reserved bytes, u16 payload size, 6 reserved bytes
	rawSizeOffset = 16
)

// RawReader reads frames from a raw transport stream.
type RawReader struct {
	cfg  config
	r    io.ReaderAt
	size int64
	pos  int64
	hdr  [rawHeaderSize]byte
}

// NewRawReader returns a reader of raw transport records from the first
// size bytes of r.
func NewRawReader(r io.ReaderAt, size int64, opts ...Option) *RawReader {
	return &RawReader{
		cfg:  newConfig(opts),
		r:    r,
		size: size,
	}
}

// Pos returns the offset of the next record.
func (rr *RawReader) Pos() int64 { return rr.pos }

// Next returns the payload of the next record.
// Next returns io.EOF when less than 2 bytes remain in the stream.
// Records cut short are reported with io.ErrUnexpectedEOF.
func (rr *RawReader) Next() ([]byte, error) {
	if rr.pos >= rr.size-1 {
		return nil, io.EOF
	}

	beg := rr.pos
	if beg+rawHeaderSize > rr.size {
		return nil, fmt.Errorf(
			"rawio: could not read record header at byte %d (size=%d): %w",
			beg, rr.size, io.ErrUnexpectedEOF,
		)
	}
	err := readAt(rr.r, rr.hdr[:], beg)
	if err != nil {
		return nil, fmt.Errorf("rawio: could not read record header at byte %d: %w", beg, err)
	}

	n := int64(binary.LittleEndian.Uint16(rr.hdr[rawSizeOffset:]))
	if beg+rawHeaderSize+n > rr.size {
		return nil, fmt.Errorf(
			"rawio: could not read record payload at byte %d (payload=%d, size=%d): %w",
			beg, n, rr.size, io.ErrUnexpectedEOF,
		)
	}

	buf := make([]byte, n)
	err = readAt(rr.r, buf, beg+rawHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("rawio: could not read record payload at byte %d: %w", beg, err)
	}
	rr.pos = beg + rawHeaderSize + n

	if rr.cfg.verbose {
		rr.cfg.msg.Printf("raw record: start=0x%08x payload=%d bytes", beg, n)
	}
	return buf, nil
}

// RawWriter writes frames as raw transport records.
type RawWriter struct {
	w   io.Writer
	hdr [rawHeaderSize]byte
}

// NewRawWriter returns a writer of raw transport records to w.
func NewRawWriter(w io.Writer) *RawWriter {
	return &RawWriter{w: w}
}

// Write writes the frame payload p as one record.
func (rw *RawWriter) Write(p []byte) (int, error) {
	if len(p) > math.MaxUint16 {
		return 0, fmt.Errorf("rawio: payload too big (got=%d, max=%d)", len(p), math.MaxUint16)
	}
	binary.LittleEndian.PutUint16(rw.hdr[rawSizeOffset:], uint16(len(p)))
	_, err := rw.w.Write(rw.hdr[:])
	if err != nil {
		return 0, fmt.Errorf("rawio: could not write record header: %w", err)
	}
	n, err := rw.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("rawio: could not write record payload: %w", err)
	}
	return n, nil
}
