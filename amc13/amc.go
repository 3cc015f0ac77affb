// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amc13

import (
	"fmt"
)

// HasError reports whether the AMC or any of its chambers is faulty.
func (amc *AMC) HasError() bool {
	if len(amc.faults()) > 0 {
		return true
	}
	for i := range amc.Chambers {
		if amc.Chambers[i].HasError(amc.Header.BX) {
			return true
		}
	}
	return false
}

// faults lists the failing conditions of the AMC itself.
func (amc *AMC) faults() []string {
	var o []string
	if v := amc.Event.BufStatus; v != 0 {
		o = append(o, fmt.Sprintf("buffer status=0x%06x", v))
	}
	if v := amc.Event.TTS; v != ttsReady {
		o = append(o, fmt.Sprintf("TTS state=0x%x (want=0x%x)", v, ttsReady))
	}
	if v := amc.EvtTrail.DAVTimeout; v != 0 {
		o = append(o, fmt.Sprintf("DAV timeout flags=0x%06x", v))
	}
	if amc.EvtTrail.DAQAlmostFull {
		o = append(o, "DAQ almost full")
	}
	if !amc.EvtTrail.MMCMLocked {
		o = append(o, "MMCM not locked")
	}
	if !amc.EvtTrail.DAQClkLocked {
		o = append(o, "DAQ clock not locked")
	}
	if !amc.EvtTrail.DAQReady {
		o = append(o, "DAQ not ready")
	}
	if !amc.EvtTrail.BC0Locked {
		o = append(o, "BC0 not locked")
	}
	if amc.SizeMismatch {
		o = append(o, fmt.Sprintf("block size mismatch (consumed=%d words)", amc.Words))
	}
	return o
}

func (dec *Decoder) decodeAMC(c *cursor, amc *AMC) error {
	beg := c.pos()

	w0 := c.next()
	w1 := c.next()
	if c.err != nil {
		return fmt.Errorf("amc13: could not read AMC header: %w", c.err)
	}
	amc.Header = AMCHeader{
		Num:       uint8(field(w0, 56, 4)),
		L1A:       uint32(field(w0, 32, 24)),
		BX:        uint16(field(w0, 20, 12)),
		Version:   uint8(field(w1, 60, 4)),
		RunType:   uint8(field(w1, 56, 4)),
		RunParams: uint32(field(w1, 32, 24)),
		Orbit:     uint16(field(w1, 16, 16)),
		Board:     uint16(field(w1, 0, 16)),
	}

	w := c.next()
	if c.err != nil {
		return fmt.Errorf("amc13: could not read AMC%d event header: %w", amc.Header.Num, c.err)
	}
	amc.Event = EventHeader{
		DAVList:   uint32(field(w, 40, 24)),
		BufStatus: uint32(field(w, 16, 24)),
		DAVCount:  uint8(field(w, 11, 5)),
		TTS:       uint8(field(w, 0, 4)),
	}

	if dec.verbose {
		dec.msg.Printf("amc: num=%d board=0x%04x l1a=%d bx=%d chambers=%d",
			amc.Header.Num, amc.Header.Board, amc.Header.L1A, amc.Header.BX,
			amc.Event.DAVCount,
		)
	}

	amc.Chambers = make([]Chamber, amc.Event.DAVCount)
	for i := range amc.Chambers {
		err := dec.decodeChamber(c, &amc.Chambers[i])
		if err != nil {
			return fmt.Errorf("amc13: could not decode chamber %d of AMC%d: %w",
				i, amc.Header.Num, err,
			)
		}
	}

	w = c.next()
	if c.err != nil {
		return fmt.Errorf("amc13: could not read AMC%d event trailer: %w", amc.Header.Num, c.err)
	}
	amc.EvtTrail = EventTrailer{
		DAVTimeout:    uint32(field(w, 40, 24)),
		DAQAlmostFull: bit(w, 7),
		MMCMLocked:    bit(w, 6),
		DAQClkLocked:  bit(w, 5),
		DAQReady:      bit(w, 4),
		BC0Locked:     bit(w, 3),
	}

	w = c.next()
	if c.err != nil {
		return fmt.Errorf("amc13: could not read AMC%d trailer: %w", amc.Header.Num, c.err)
	}
	amc.Trailer = AMCTrailer{
		L1A:     uint8(field(w, 24, 8)),
		WordCnt: uint32(field(w, 0, 20)),
	}

	amc.Words = c.pos() - beg
	return nil
}

func (enc *Encoder) encodeAMC(amc *AMC) error {
	if got, want := int(amc.Event.DAVCount), len(amc.Chambers); got != want {
		return fmt.Errorf("amc13: AMC%d: inconsistent DAV count (got=%d, want=%d)",
			amc.Header.Num, got, want,
		)
	}
	if n := len(amc.Chambers); n > MaxChambers {
		return fmt.Errorf("amc13: AMC%d: too many chambers (got=%d, max=%d)",
			amc.Header.Num, n, MaxChambers,
		)
	}

	hdr := &amc.Header
	enc.writeU64(put(uint64(hdr.Num), 56, 4) |
		put(uint64(hdr.L1A), 32, 24) |
		put(uint64(hdr.BX), 20, 12),
	)
	enc.writeU64(put(uint64(hdr.Version), 60, 4) |
		put(uint64(hdr.RunType), 56, 4) |
		put(uint64(hdr.RunParams), 32, 24) |
		put(uint64(hdr.Orbit), 16, 16) |
		put(uint64(hdr.Board), 0, 16),
	)
	enc.writeU64(put(uint64(amc.Event.DAVList), 40, 24) |
		put(uint64(amc.Event.BufStatus), 16, 24) |
		put(uint64(amc.Event.DAVCount), 11, 5) |
		put(uint64(amc.Event.TTS), 0, 4),
	)

	for i := range amc.Chambers {
		err := enc.encodeChamber(&amc.Chambers[i])
		if err != nil {
			return fmt.Errorf("amc13: could not encode chamber %d of AMC%d: %w",
				i, hdr.Num, err,
			)
		}
	}

	tr := &amc.EvtTrail
	enc.writeU64(put(uint64(tr.DAVTimeout), 40, 24) |
		putBit(tr.DAQAlmostFull, 7) |
		putBit(tr.MMCMLocked, 6) |
		putBit(tr.DAQClkLocked, 5) |
		putBit(tr.DAQReady, 4) |
		putBit(tr.BC0Locked, 3),
	)
	enc.writeU64(put(uint64(amc.Trailer.L1A), 24, 8) |
		put(uint64(amc.Trailer.WordCnt), 0, 20),
	)
	return enc.err
}
