// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv provides tools to convert GEM data to/from LCIO.
//
// Each AMC13 frame is stored as one LCIO event holding:
//   - GEM_RAW: a GenericObject with the frame payload, as int32 words
//     prefixed with the payload size in bytes,
//   - GEM_HITS: a RawCalorimeterHit collection with one hit per hit channel.
package xcnv // import "github.com/go-lpc/gem/internal/xcnv"

import (
	"encoding/binary"
	"fmt"
)

const (
	Detector = "GEM"
	RawName  = "GEM_RAW"
	HitsName = "GEM_HITS"

	i32sz = 4

	// RawCalorimeterHit collection flags: CellID1 and TimeStamp are stored.
	rchBitID1  = 1 << 29
	rchBitTime = 1 << 27
)

// CellID returns the LCIO cell identifier of a VFAT channel.
func CellID(amc, chamber, vfat uint8) int32 {
	return int32(amc)<<24 | int32(chamber)<<16 | int32(vfat)<<8
}

// SplitCellID returns the AMC number, chamber input and VFAT position
// encoded in the cell identifier id.
func SplitCellID(id int32) (amc, chamber, vfat uint8) {
	return uint8(id >> 24), uint8(id >> 16), uint8(id >> 8)
}

// i32sFrom returns the payload p as little-endian int32 words,
// prefixed with the size of p in bytes.
func i32sFrom(p []byte) []int32 {
	n := (len(p) + i32sz - 1) / i32sz
	o := make([]int32, 1+n)
	o[0] = int32(len(p))

	var buf [i32sz]byte
	for i := 0; i < n; i++ {
		beg := i * i32sz
		end := beg + i32sz
		if end > len(p) {
			buf = [i32sz]byte{}
			copy(buf[:], p[beg:])
			o[1+i] = int32(binary.LittleEndian.Uint32(buf[:]))
			continue
		}
		o[1+i] = int32(binary.LittleEndian.Uint32(p[beg:end]))
	}
	return o
}

// bytesFrom is the inverse of i32sFrom.
func bytesFrom(raw []int32) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("xcnv: empty raw payload")
	}
	n := int(raw[0])
	if n < 0 || n > (len(raw)-1)*i32sz {
		return nil, fmt.Errorf("xcnv: invalid raw payload size (size=%d, words=%d)", n, len(raw)-1)
	}
	o := make([]byte, (len(raw)-1)*i32sz)
	for i, v := range raw[1:] {
		binary.LittleEndian.PutUint32(o[i*i32sz:], uint32(v))
	}
	return o[:n], nil
}
