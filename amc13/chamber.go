// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amc13

import (
	"fmt"
)

// NumVFATs returns the number of VFAT blocks announced by the chamber header.
func (ch *Chamber) NumVFATs() int {
	return int(ch.VFATWordCnt) / vfatBlockSize
}

// HasError reports whether the chamber or any of its VFAT blocks is faulty,
// given the bunch crossing ID of its AMC.
func (ch *Chamber) HasError(bx uint16) bool {
	if len(ch.faults()) > 0 {
		return true
	}
	for i := range ch.VFATs {
		if ch.VFATs[i].HasError(bx) {
			return true
		}
	}
	return false
}

// faults lists the failing conditions of the chamber itself.
func (ch *Chamber) faults() []string {
	var o []string
	for _, v := range []struct {
		set  bool
		name string
	}{
		{ch.EvtFIFOFull, "event FIFO full"},
		{ch.InFIFOFull, "input FIFO full"},
		{ch.L1AFIFOFull, "L1A FIFO full"},
		{ch.EvtSizeOvf, "event size overflow"},
		{ch.EvtFIFONearFull, "event FIFO near full"},
		{ch.InFIFONearFull, "input FIFO near full"},
		{ch.L1AFIFONearFull, "L1A FIFO near full"},
		{ch.EvtSizeMore24, "event size more than 24 VFATs"},
		{ch.NoVFATMarker, "no VFAT marker"},
		{ch.EvtFIFOUnf, "event FIFO underflow"},
		{ch.InFIFOUnf, "input FIFO underflow"},
	} {
		if v.set {
			o = append(o, v.name)
		}
	}
	return o
}

func (dec *Decoder) decodeChamber(c *cursor, ch *Chamber) error {
	w := c.next()
	if c.err != nil {
		return fmt.Errorf("amc13: could not read chamber header: %w", c.err)
	}
	ch.ZSWordCnt = uint16(field(w, 40, 12))
	ch.InputID = uint8(field(w, 35, 5))
	ch.VFATWordCnt = uint16(field(w, 23, 12))
	ch.EvtFIFOFull = bit(w, 22)
	ch.InFIFOFull = bit(w, 21)
	ch.L1AFIFOFull = bit(w, 20)
	ch.EvtSizeOvf = bit(w, 19)
	ch.EvtFIFONearFull = bit(w, 18)
	ch.InFIFONearFull = bit(w, 17)
	ch.L1AFIFONearFull = bit(w, 16)
	ch.EvtSizeMore24 = bit(w, 15)
	ch.NoVFATMarker = bit(w, 14)

	if ch.VFATWordCnt%vfatBlockSize != 0 {
		return fmt.Errorf(
			"amc13: chamber input=%d has a VFAT word count (%d) not divisible by %d: %w",
			ch.InputID, ch.VFATWordCnt, vfatBlockSize, ErrMalformedChamber,
		)
	}

	if dec.verbose {
		dec.msg.Printf("chamber: input=%d vfat-words=%d zs-words=%d",
			ch.InputID, ch.VFATWordCnt, ch.ZSWordCnt,
		)
	}

	ch.VFATs = make([]VFAT, ch.NumVFATs())
	for i := range ch.VFATs {
		dec.decodeVFAT(c, &ch.VFATs[i])
		if c.err != nil {
			return fmt.Errorf("amc13: could not read VFAT block %d of chamber input=%d: %w",
				i, ch.InputID, c.err,
			)
		}
	}

	w = c.next()
	if c.err != nil {
		return fmt.Errorf("amc13: could not read chamber trailer: %w", c.err)
	}
	ch.VFATWordCntTrail = uint16(field(w, 36, 12))
	ch.EvtFIFOUnf = bit(w, 35)
	ch.InFIFOUnf = bit(w, 33)

	return nil
}

func (enc *Encoder) encodeChamber(ch *Chamber) error {
	if want := len(ch.VFATs) * vfatBlockSize; int(ch.VFATWordCnt) != want {
		return fmt.Errorf(
			"amc13: chamber input=%d: inconsistent VFAT word count (got=%d, want=%d)",
			ch.InputID, ch.VFATWordCnt, want,
		)
	}

	enc.writeU64(put(uint64(ch.ZSWordCnt), 40, 12) |
		put(uint64(ch.InputID), 35, 5) |
		put(uint64(ch.VFATWordCnt), 23, 12) |
		putBit(ch.EvtFIFOFull, 22) |
		putBit(ch.InFIFOFull, 21) |
		putBit(ch.L1AFIFOFull, 20) |
		putBit(ch.EvtSizeOvf, 19) |
		putBit(ch.EvtFIFONearFull, 18) |
		putBit(ch.InFIFONearFull, 17) |
		putBit(ch.L1AFIFONearFull, 16) |
		putBit(ch.EvtSizeMore24, 15) |
		putBit(ch.NoVFATMarker, 14),
	)
	for i := range ch.VFATs {
		enc.encodeVFAT(&ch.VFATs[i])
	}
	enc.writeU64(put(uint64(ch.VFATWordCntTrail), 36, 12) |
		putBit(ch.EvtFIFOUnf, 35) |
		putBit(ch.InFIFOUnf, 33),
	)
	return enc.err
}
