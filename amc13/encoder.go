// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amc13

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Encoder writes AMC13 frames to an output stream, as little-endian
// 64b words. Encoder is the exact inverse of Decoder.
type Encoder struct {
	w   io.Writer
	buf []byte
	err error
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, wordSize),
	}
}

// Encode writes the frame f to the underlying stream.
// Encode fails if the record counts announced by the headers are
// inconsistent with the content of the frame.
func (enc *Encoder) Encode(f *Frame) error {
	if f == nil {
		return nil
	}

	hdr := &f.Header
	n := len(f.AMCs)
	switch {
	case n > MaxAMCs:
		return fmt.Errorf("amc13: too many AMCs (got=%d, max=%d)", n, MaxAMCs)
	case int(hdr.NumAMCs) != n:
		return fmt.Errorf("amc13: inconsistent number of AMCs (got=%d, want=%d)", hdr.NumAMCs, n)
	case len(hdr.Blocks) != n:
		return fmt.Errorf("amc13: inconsistent number of AMC block descriptions (got=%d, want=%d)", len(hdr.Blocks), n)
	}

	enc.writeU64(put(uint64(hdr.MarkerA), 60, 4) |
		put(uint64(hdr.EventType), 56, 4) |
		put(uint64(hdr.L1A), 32, 24) |
		put(uint64(hdr.BX), 20, 12) |
		put(uint64(hdr.FED), 8, 12),
	)
	enc.writeU64(put(uint64(hdr.NumAMCs), 52, 4) |
		put(uint64(hdr.Orbit), 4, 32) |
		put(uint64(hdr.MarkerB), 0, 4),
	)
	for _, blk := range hdr.Blocks {
		enc.writeU64(put(uint64(blk.Size), 32, 24) | put(uint64(blk.ID), 16, 4))
	}
	if enc.err != nil {
		return fmt.Errorf("amc13: could not write AMC13 header: %w", enc.err)
	}

	for i := range f.AMCs {
		err := enc.encodeAMC(&f.AMCs[i])
		if err != nil {
			return fmt.Errorf("amc13: could not encode AMC block %d: %w", i, err)
		}
	}

	enc.writeU64(0) // reserved
	enc.writeU64(put(uint64(f.Trailer.MarkerT), 60, 4) |
		put(uint64(f.Trailer.Length), 32, 24) |
		put(uint64(f.Trailer.Status), 8, 4) |
		put(uint64(f.Trailer.TTS), 4, 4),
	)
	if enc.err != nil {
		return fmt.Errorf("amc13: could not write AMC13 trailer: %w", enc.err)
	}
	return nil
}

func (enc *Encoder) writeU64(v uint64) {
	if enc.err != nil {
		return
	}
	binary.LittleEndian.PutUint64(enc.buf[:wordSize], v)
	_, enc.err = enc.w.Write(enc.buf[:wordSize])
}

// Encode returns the wire representation of the frame f.
func Encode(f *Frame) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := NewEncoder(buf).Encode(f)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
