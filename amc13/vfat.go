// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amc13

import (
	"fmt"
	"math/bits"
	"strings"
)

// VFATFormat selects the on-wire layout of VFAT blocks.
// The layout is not self-describing: it is chosen by the caller,
// according to the run configuration.
type VFATFormat uint8

const (
	VFAT3 VFATFormat = iota // VFAT3 layout (default)
	VFAT2                   // legacy VFAT2 layout
)

func (f VFATFormat) String() string {
	switch f {
	case VFAT3:
		return "v3"
	case VFAT2:
		return "v2"
	default:
		return fmt.Sprintf("VFATFormat(%d)", uint8(f))
	}
}

// ParseVFATFormat parses a VFAT format name ("v2" or "v3").
func ParseVFATFormat(s string) (VFATFormat, error) {
	switch strings.ToLower(s) {
	case "v3", "vfat3", "":
		return VFAT3, nil
	case "v2", "vfat2":
		return VFAT2, nil
	default:
		return 0, fmt.Errorf("amc13: invalid VFAT format %q", s)
	}
}

// Channels is the 128-channels hit bitset of a VFAT.
// Bit i of Lo is channel i, bit i of Hi is channel 64+i.
type Channels struct {
	Hi uint64
	Lo uint64
}

// Hit reports whether channel i fired.
func (ch Channels) Hit(i int) bool {
	switch {
	case i < 0 || i >= 128:
		return false
	case i < 64:
		return bit(ch.Lo, uint(i))
	default:
		return bit(ch.Hi, uint(i-64))
	}
}

// NumHits returns the number of channels that fired.
func (ch Channels) NumHits() int {
	return bits.OnesCount64(ch.Hi) + bits.OnesCount64(ch.Lo)
}

// Hits returns the list of channels that fired, in increasing order.
func (ch Channels) Hits() []int {
	out := make([]int, 0, ch.NumHits())
	for i := 0; i < 128; i++ {
		if ch.Hit(i) {
			out = append(out, i)
		}
	}
	return out
}

func (ch Channels) String() string {
	return fmt.Sprintf("0x%016x%016x", ch.Hi, ch.Lo)
}

// VFAT is a VFAT data block.
// Format tags which of the header fields are meaningful.
type VFAT struct {
	Format VFATFormat

	BC uint16 // bunch crossing (16b for VFAT3, 12b for VFAT2)
	EC uint8  // event counter

	// VFAT3 header fields.
	Pos    uint8 // position of the VFAT in the chamber
	CRCErr bool
	Header uint8

	// VFAT2 header fields.
	Marker     uint16 // should be 0xace
	ChipID     uint16
	HammingErr bool
	AlmostFull bool
	SEULogic   bool
	SEUI2C     bool

	Data Channels
	CRC  uint16
}

// NumHits returns the number of channels that fired.
func (vfat *VFAT) NumHits() int { return vfat.Data.NumHits() }

// Warning reports whether a VFAT3 header carries a warning.
func (vfat *VFAT) Warning() bool {
	return vfat.Format == VFAT3 && (vfat.Header == 0x5e || vfat.Header == 0x56)
}

// HasError reports whether the VFAT block is faulty, given the
// bunch crossing ID of its AMC.
func (vfat *VFAT) HasError(bx uint16) bool {
	return len(vfat.faults(bx)) > 0
}

func (vfat *VFAT) faults(bx uint16) []string {
	var o []string
	switch vfat.Format {
	case VFAT2:
		if vfat.Marker != vfat2Mark {
			o = append(o, fmt.Sprintf("marker=0x%03x (want=0x%03x)", vfat.Marker, vfat2Mark))
		}
		if vfat.BC != bx {
			o = append(o, fmt.Sprintf("bc=%d (want=%d)", vfat.BC, bx))
		}
		if vfat.HammingErr {
			o = append(o, "hamming error")
		}
		if vfat.AlmostFull {
			o = append(o, "almost full")
		}
		if vfat.SEULogic {
			o = append(o, "SEU logic")
		}
		if vfat.SEUI2C {
			o = append(o, "SEU I2C")
		}
	default:
		if want := bx + 1; vfat.BC != want {
			o = append(o, fmt.Sprintf("bc=%d (want=%d)", vfat.BC, want))
		}
		if vfat.Header != vfat3Hdr {
			o = append(o, fmt.Sprintf("header=0x%02x (want=0x%02x)", vfat.Header, vfat3Hdr))
		}
		if vfat.Warning() {
			o = append(o, "warning")
		}
		if vfat.CRCErr {
			o = append(o, "CRC error")
		}
	}
	return o
}

func (dec *Decoder) decodeVFAT(c *cursor, vfat *VFAT) {
	w0 := c.next()
	w1 := c.next()
	w2 := c.next()

	vfat.Format = dec.vfat
	switch dec.vfat {
	case VFAT2:
		vfat.Marker = uint16(field(w0, 60, 4)<<8 | field(w0, 44, 4)<<4 | field(w0, 28, 4))
		vfat.BC = uint16(field(w0, 48, 12))
		vfat.EC = uint8(field(w0, 36, 8))
		vfat.HammingErr = bit(w0, 35)
		vfat.AlmostFull = bit(w0, 34)
		vfat.SEULogic = bit(w0, 33)
		vfat.SEUI2C = bit(w0, 32)
		vfat.ChipID = uint16(field(w0, 16, 12))
	default:
		vfat.Pos = uint8(field(w0, 56, 8))
		vfat.CRCErr = bit(w0, 48)
		vfat.Header = uint8(field(w0, 40, 8))
		vfat.EC = uint8(field(w0, 32, 8))
		vfat.BC = uint16(field(w0, 16, 16))
	}

	// channel data: w0[15:0] -> [127:112], w1 -> [111:48], w2[63:16] -> [47:0]
	vfat.Data.Hi = field(w0, 0, 16)<<48 | w1>>16
	vfat.Data.Lo = w1<<48 | field(w2, 16, 48)
	vfat.CRC = uint16(field(w2, 0, 16))

	if dec.verbose && c.err == nil {
		dec.msg.Printf("vfat: bc=%d ec=%d hits=%d crc=0x%04x", vfat.BC, vfat.EC, vfat.NumHits(), vfat.CRC)
	}
}

func (enc *Encoder) encodeVFAT(vfat *VFAT) {
	var w0 uint64
	switch vfat.Format {
	case VFAT2:
		m := uint64(vfat.Marker)
		w0 = put(m>>8, 60, 4) |
			put(uint64(vfat.BC), 48, 12) |
			put(m>>4, 44, 4) |
			put(uint64(vfat.EC), 36, 8) |
			putBit(vfat.HammingErr, 35) |
			putBit(vfat.AlmostFull, 34) |
			putBit(vfat.SEULogic, 33) |
			putBit(vfat.SEUI2C, 32) |
			put(m, 28, 4) |
			put(uint64(vfat.ChipID), 16, 12)
	default:
		w0 = put(uint64(vfat.Pos), 56, 8) |
			putBit(vfat.CRCErr, 48) |
			put(uint64(vfat.Header), 40, 8) |
			put(uint64(vfat.EC), 32, 8) |
			put(uint64(vfat.BC), 16, 16)
	}
	w0 |= vfat.Data.Hi >> 48
	w1 := vfat.Data.Hi<<16 | vfat.Data.Lo>>48
	w2 := put(vfat.Data.Lo, 16, 48) | uint64(vfat.CRC)

	enc.writeU64(w0)
	enc.writeU64(w1)
	enc.writeU64(w2)
}
