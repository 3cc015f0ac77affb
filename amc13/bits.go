// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amc13

// field extracts the width-bit wide field of w starting at bit shift.
func field(w uint64, shift, width uint) uint64 {
	return (w >> shift) & mask(width)
}

// bit reports whether bit i of w is set.
func bit(w uint64, i uint) bool {
	return (w>>i)&0x1 == 1
}

// put returns v, masked to width bits, at bit position shift.
func put(v uint64, shift, width uint) uint64 {
	return (v & mask(width)) << shift
}

func putBit(v bool, i uint) uint64 {
	if !v {
		return 0
	}
	return 1 << i
}

func mask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<width - 1
}
