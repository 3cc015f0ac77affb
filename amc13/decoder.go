// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amc13

import (
	"fmt"
	"io"
	"log"
)

// Option configures a Decoder.
type Option func(*Decoder)

// WithVFATFormat selects the layout of VFAT blocks.
func WithVFATFormat(f VFATFormat) Option {
	return func(dec *Decoder) {
		dec.vfat = f
	}
}

// WithVerbose enables diagnostic messages while decoding.
func WithVerbose(v bool) Option {
	return func(dec *Decoder) {
		dec.verbose = v
	}
}

// WithLogger sets the logger used for diagnostic messages.
func WithLogger(msg *log.Logger) Option {
	return func(dec *Decoder) {
		if msg == nil {
			msg = log.New(io.Discard, "", 0)
		}
		dec.msg = msg
	}
}

// WithBlockSizeCheck enables the cross-check of the number of words
// consumed by each AMC block against the block size announced in the
// AMC13 header. A mismatch is reported as a soft fault of the AMC.
func WithBlockSizeCheck(v bool) Option {
	return func(dec *Decoder) {
		dec.sizeChk = v
	}
}

// Decoder decodes AMC13 frames from byte payloads.
// A Decoder holds no state between two calls to Decode.
type Decoder struct {
	msg     *log.Logger
	vfat    VFATFormat
	verbose bool
	sizeChk bool
}

// NewDecoder creates a new frame decoder.
func NewDecoder(opts ...Option) *Decoder {
	dec := &Decoder{
		msg:  log.New(io.Discard, "amc13: ", 0),
		vfat: VFAT3,
	}
	for _, opt := range opts {
		opt(dec)
	}
	return dec
}

// VFATFormat returns the VFAT layout the decoder expects.
func (dec *Decoder) VFATFormat() VFATFormat { return dec.vfat }

// Decode decodes the payload buf into f.
// buf is interpreted as a sequence of little-endian 64b words, zero-padded
// if its length is not a multiple of 8. buf is not modified.
func (dec *Decoder) Decode(buf []byte, f *Frame) error {
	c := newCursor(buf)
	if len(buf)%wordSize != 0 && dec.verbose {
		dec.msg.Printf("payload of %d bytes padded to %d words", len(buf), c.len())
	}

	*f = Frame{}
	err := dec.decodeHeader(c, &f.Header)
	if err != nil {
		return err
	}

	f.AMCs = make([]AMC, len(f.Header.Blocks))
	for i := range f.AMCs {
		amc := &f.AMCs[i]
		err = dec.decodeAMC(c, amc)
		if err != nil {
			return fmt.Errorf("amc13: could not decode AMC block %d (slot=%d): %w",
				i, f.Header.Blocks[i].ID, err,
			)
		}
		if dec.sizeChk {
			amc.SizeMismatch = uint32(amc.Words) != f.Header.Blocks[i].Size
		}
	}

	err = dec.decodeTrailer(c, &f.Trailer)
	if err != nil {
		return err
	}

	if dec.verbose {
		for _, e := range f.MarkerErrors() {
			dec.msg.Printf("invalid %s", e)
		}
	}

	return nil
}

func (dec *Decoder) decodeHeader(c *cursor, hdr *Header) error {
	if w, err := c.peek(0); err == nil && dec.verbose {
		dec.msg.Printf("frame header word: 0x%016x", w)
	}

	w0 := c.next()
	w1 := c.next()
	if c.err != nil {
		return fmt.Errorf("amc13: could not read AMC13 header: %w", c.err)
	}
	hdr.MarkerA = uint8(field(w0, 60, 4))
	hdr.EventType = uint8(field(w0, 56, 4))
	hdr.L1A = uint32(field(w0, 32, 24))
	hdr.BX = uint16(field(w0, 20, 12))
	hdr.FED = uint16(field(w0, 8, 12))
	hdr.NumAMCs = uint8(field(w1, 52, 4))
	hdr.Orbit = uint32(field(w1, 4, 32))
	hdr.MarkerB = uint8(field(w1, 0, 4))

	hdr.Blocks = make([]Block, hdr.NumAMCs)
	for i := range hdr.Blocks {
		w := c.next()
		if c.err != nil {
			return fmt.Errorf("amc13: could not read AMC block description %d: %w", i, c.err)
		}
		hdr.Blocks[i] = Block{
			Size: uint32(field(w, 32, 24)),
			ID:   uint8(field(w, 16, 4)),
		}
	}

	if dec.verbose {
		dec.msg.Printf("frame: l1a=%d bx=%d fed=0x%03x amcs=%d",
			hdr.L1A, hdr.BX, hdr.FED, hdr.NumAMCs,
		)
	}
	return nil
}

func (dec *Decoder) decodeTrailer(c *cursor, tr *Trailer) error {
	c.skip(1) // reserved
	w := c.next()
	if c.err != nil {
		return fmt.Errorf("amc13: could not read AMC13 trailer: %w", c.err)
	}
	tr.MarkerT = uint8(field(w, 60, 4))
	tr.Length = uint32(field(w, 32, 24))
	tr.Status = uint8(field(w, 8, 4))
	tr.TTS = uint8(field(w, 4, 4))
	return nil
}

// Decode decodes the payload buf into a new frame, with the default
// decoder configuration.
func Decode(buf []byte) (*Frame, error) {
	var f Frame
	err := NewDecoder().Decode(buf, &f)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
