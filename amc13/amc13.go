// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package amc13 decodes and encodes GEM detector events, as read out
// by the AMC13 and GEM AMC boards.
//
// An event is a tree of fixed layout records, packed in 64b words:
//
//	Frame   (AMC13 header, trailer)
//	 AMC    (GEM AMC header, event header, event trailer, trailer)
//	  Chamber (chamber header, trailer)
//	   VFAT (3 words)
//
// The number of children of each record is read from its header.
package amc13 // import "github.com/go-lpc/gem/amc13"

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when a payload ends in the middle of a record.
	ErrTruncated = errors.New("amc13: truncated input")

	// ErrMalformedChamber is returned when the VFAT word count of a chamber
	// is not a multiple of the VFAT block size.
	ErrMalformedChamber = errors.New("amc13: malformed chamber block")
)

const (
	MaxAMCs       = 15 // maximum number of AMCs in a frame (4b field)
	MaxChambers   = 31 // maximum number of chambers in an AMC (5b field)
	vfatBlockSize = 3  // number of 64b words of a VFAT block
)

// Expected values of markers and healthy defaults.
const (
	markerA   = 0x5
	markerB   = 0x0
	markerT   = 0xa
	ttsReady  = 0x8
	vfat3Hdr  = 0x1e
	vfat2Mark = 0xace
)

// Frame is a complete AMC13 event.
type Frame struct {
	Header  Header
	AMCs    []AMC // in the same order as Header.Blocks
	Trailer Trailer
}

// Header is the AMC13 header.
type Header struct {
	MarkerA   uint8 // should be 0x5
	EventType uint8
	L1A       uint32 // L1A ID (24b)
	BX        uint16 // bunch crossing ID (12b)
	FED       uint16 // FED ID (12b)
	NumAMCs   uint8
	Orbit     uint32
	MarkerB   uint8 // should be 0x0

	Blocks []Block // one entry per AMC
}

// Block describes an AMC block, as announced by the AMC13 header.
type Block struct {
	Size uint32 // size of the AMC block, in 64b words (24b)
	ID   uint8  // AMC slot (4b)
}

// Trailer is the AMC13 trailer.
type Trailer struct {
	MarkerT uint8  // should be 0xa
	Length  uint32 // event length (24b)
	Status  uint8
	TTS     uint8
}

// AMC is the payload of a GEM AMC board.
type AMC struct {
	Header   AMCHeader
	Event    EventHeader
	Chambers []Chamber
	EvtTrail EventTrailer
	Trailer  AMCTrailer

	// Words is the number of 64b words consumed while decoding this block.
	Words int
	// SizeMismatch is set when block size checking is enabled and Words
	// differs from the size announced by the AMC13 header.
	SizeMismatch bool
}

// AMCHeader is the 2-words GEM AMC header.
type AMCHeader struct {
	Num       uint8
	L1A       uint32
	BX        uint16
	Version   uint8 // format version
	RunType   uint8
	RunParams uint32
	Orbit     uint16
	Board     uint16
}

// EventHeader is the GEM event header.
type EventHeader struct {
	DAVList   uint32
	BufStatus uint32
	DAVCount  uint8 // number of chambers
	TTS       uint8
}

// EventTrailer is the GEM event trailer.
type EventTrailer struct {
	DAVTimeout    uint32
	DAQAlmostFull bool
	MMCMLocked    bool
	DAQClkLocked  bool
	DAQReady      bool
	BC0Locked     bool
}

// AMCTrailer is the GEM AMC trailer.
type AMCTrailer struct {
	L1A     uint8 // 8 LSBs of the L1A ID
	WordCnt uint32
}

// Chamber is the data of one detector module.
type Chamber struct {
	ZSWordCnt   uint16
	InputID     uint8
	VFATWordCnt uint16

	EvtFIFOFull     bool
	InFIFOFull      bool
	L1AFIFOFull     bool
	EvtSizeOvf      bool
	EvtFIFONearFull bool
	InFIFONearFull  bool
	L1AFIFONearFull bool
	EvtSizeMore24   bool // event size more than 24 VFATs
	NoVFATMarker    bool

	VFATs []VFAT

	VFATWordCntTrail uint16
	EvtFIFOUnf       bool
	InFIFOUnf        bool
}

// NumVFATs returns the total number of VFAT blocks in the frame.
func (f *Frame) NumVFATs() int {
	n := 0
	for i := range f.AMCs {
		n += f.AMCs[i].NumVFATs()
	}
	return n
}

// NumChambers returns the total number of chambers in the frame.
func (f *Frame) NumChambers() int {
	n := 0
	for i := range f.AMCs {
		n += len(f.AMCs[i].Chambers)
	}
	return n
}

// NumVFATs returns the number of VFAT blocks held by the AMC.
func (amc *AMC) NumVFATs() int {
	n := 0
	for i := range amc.Chambers {
		n += len(amc.Chambers[i].VFATs)
	}
	return n
}

// MarkerErrors lists the AMC13 markers that do not hold their
// expected value. Marker mismatches are diagnostics, they do not
// make a frame faulty.
func (f *Frame) MarkerErrors() []string {
	var errs []string
	if v := f.Header.MarkerA; v != markerA {
		errs = append(errs, fmt.Sprintf("header marker A=0x%x (want=0x%x)", v, markerA))
	}
	if v := f.Header.MarkerB; v != markerB {
		errs = append(errs, fmt.Sprintf("header marker B=0x%x (want=0x%x)", v, markerB))
	}
	if v := f.Trailer.MarkerT; v != markerT {
		errs = append(errs, fmt.Sprintf("trailer marker=0x%x (want=0x%x)", v, markerT))
	}
	return errs
}
