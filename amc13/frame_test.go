// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amc13

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var cmpFrame = []cmp.Option{
	cmpopts.EquateEmpty(),
}

func newVFAT(bx uint16, pos uint8, data Channels) VFAT {
	return VFAT{
		Format: VFAT3,
		Pos:    pos,
		Header: vfat3Hdr,
		EC:     0x2a,
		BC:     bx + 1,
		Data:   data,
		CRC:    0xbeef,
	}
}

func newChamber(input uint8, vfats ...VFAT) Chamber {
	n := uint16(len(vfats) * vfatBlockSize)
	return Chamber{
		ZSWordCnt:        n,
		InputID:          input,
		VFATWordCnt:      n,
		VFATs:            vfats,
		VFATWordCntTrail: n,
	}
}

func newAMC(num uint8, bx uint16, chambers ...Chamber) AMC {
	amc := AMC{
		Header: AMCHeader{
			Num:       num,
			L1A:       0x123456,
			BX:        bx,
			Version:   3,
			RunType:   1,
			RunParams: 0xabcdef,
			Orbit:     0x4242,
			Board:     0xbeef,
		},
		Event: EventHeader{
			DAVList:  0x3,
			DAVCount: uint8(len(chambers)),
			TTS:      ttsReady,
		},
		Chambers: chambers,
		EvtTrail: EventTrailer{
			MMCMLocked:   true,
			DAQClkLocked: true,
			DAQReady:     true,
			BC0Locked:    true,
		},
	}
	amc.Words = 5
	for _, ch := range chambers {
		amc.Words += 2 + len(ch.VFATs)*vfatBlockSize
	}
	amc.Trailer = AMCTrailer{L1A: 0x56, WordCnt: uint32(amc.Words)}
	return amc
}

func newFrame(bx uint16, amcs ...AMC) Frame {
	f := Frame{
		Header: Header{
			MarkerA:   markerA,
			EventType: 1,
			L1A:       0x123456,
			BX:        bx,
			FED:       0x5ab,
			NumAMCs:   uint8(len(amcs)),
			Orbit:     0xcafe,
			MarkerB:   markerB,
		},
		AMCs: amcs,
		Trailer: Trailer{
			MarkerT: markerT,
			Status:  0,
			TTS:     ttsReady,
		},
	}
	words := 2 + len(amcs) + 2
	for _, amc := range amcs {
		f.Header.Blocks = append(f.Header.Blocks, Block{
			Size: uint32(amc.Words),
			ID:   amc.Header.Num,
		})
		words += amc.Words
	}
	f.Trailer.Length = uint32(words)
	return f
}

// newHealthyFrame returns a frame with 2 AMCs, 3 chambers and 4 VFATs,
// none of them faulty.
func newHealthyFrame() Frame {
	const bx = 0x321
	return newFrame(bx,
		newAMC(1, bx,
			newChamber(0,
				newVFAT(bx, 0, Channels{}),
				newVFAT(bx, 1, Channels{Hi: 0x8000000000000001, Lo: 0xf}),
			),
			newChamber(5),
		),
		newAMC(2, bx,
			newChamber(7,
				newVFAT(bx, 3, Channels{Hi: ^uint64(0), Lo: ^uint64(0)}),
				newVFAT(bx, 23, Channels{Lo: 1 << 63}),
			),
		),
	)
}
