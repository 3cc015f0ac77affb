// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amc13

import (
	"fmt"
	"io"
)

const errMark = " [ERR]"

func mark(bad bool) string {
	if bad {
		return errMark
	}
	return ""
}

// Fprint writes a hierarchical summary of the frame f to w.
// Values deviating from their healthy default are marked with [ERR].
func Fprint(w io.Writer, f *Frame) {
	p := printer{w: w}
	p.header(&f.Header)
	for i := range f.AMCs {
		p.amc(&f.AMCs[i])
	}
	p.trailer(&f.Trailer)
}

// FprintFault writes the fault flt of frame f, together with the
// headers and trailers of the faulty record, to w.
func FprintFault(w io.Writer, f *Frame, flt Fault) {
	p := printer{w: w}
	fmt.Fprintf(w, "%v\n", flt)
	if flt.AMC < 0 || flt.AMC >= len(f.AMCs) {
		return
	}
	amc := &f.AMCs[flt.AMC]
	switch flt.Level {
	case LevelAMC:
		p.amcHeader(amc)
		p.amcTrailer(amc)
	case LevelChamber:
		ch := &amc.Chambers[flt.Chamber]
		p.chamberHeader(flt.Chamber, ch)
		p.chamberTrailer(flt.Chamber, ch)
	case LevelVFAT:
		p.vfat(flt.VFAT, &amc.Chambers[flt.Chamber].VFATs[flt.VFAT], amc.Header.BX)
	}
}

type printer struct {
	w io.Writer
}

func (p printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

func (p printer) title(indent, name string) {
	p.printf("%s--------------------------------------\n", indent)
	p.printf("%s%s\n", indent, name)
	p.printf("%s--------------------------------------\n", indent)
}

func (p printer) header(hdr *Header) {
	p.title("", "AMC13 Header")
	p.printf("Header marker A: 0x%x%s\n", hdr.MarkerA, mark(hdr.MarkerA != markerA))
	p.printf("Header marker B: 0x%x%s\n", hdr.MarkerB, mark(hdr.MarkerB != markerB))
	p.printf("Event type:      0x%x\n", hdr.EventType)
	p.printf("FED ID:          0x%03x\n", hdr.FED)
	p.printf("Number of AMCs:  %d\n", hdr.NumAMCs)
	p.printf("L1A ID:          %d\n", hdr.L1A)
	p.printf("BX ID:           %d\n", hdr.BX)
	p.printf("Orbit ID:        %d\n", hdr.Orbit)
	p.printf("AMC block data:\n")
	for _, blk := range hdr.Blocks {
		p.printf("    Slot %d, size = %d\n", blk.ID, blk.Size)
	}
}

func (p printer) trailer(tr *Trailer) {
	p.title("", "AMC13 Trailer")
	p.printf("Trailer marker: 0x%x%s\n", tr.MarkerT, mark(tr.MarkerT != markerT))
	p.printf("TTS state:      0x%x%s\n", tr.TTS, mark(tr.TTS != ttsReady))
	p.printf("Event status:   0x%x\n", tr.Status)
	p.printf("Event length:   %d\n", tr.Length)
}

func (p printer) amc(amc *AMC) {
	p.amcHeader(amc)
	for i := range amc.Chambers {
		ch := &amc.Chambers[i]
		p.chamberHeader(i, ch)
		for j := range ch.VFATs {
			p.vfat(j, &ch.VFATs[j], amc.Header.BX)
		}
		p.chamberTrailer(i, ch)
	}
	p.amcTrailer(amc)
}

func (p printer) amcHeader(amc *AMC) {
	hdr := &amc.Header
	p.title("", "AMC Header")
	p.printf("Format version: %d\n", hdr.Version)
	p.printf("AMC number:     %d\n", hdr.Num)
	p.printf("Board ID:       0x%04x\n", hdr.Board)
	p.printf("L1A ID:         %d\n", hdr.L1A)
	p.printf("Orbit ID:       %d\n", hdr.Orbit)
	p.printf("BX ID:          %d\n", hdr.BX)
	p.printf("Run type:       %d\n", hdr.RunType)
	p.printf("Run params:     0x%06x\n", hdr.RunParams)

	evt := &amc.Event
	p.title("", "GEM Event Header")
	p.printf("DAV count:      %d\n", evt.DAVCount)
	p.printf("DAV list:       0x%06x\n", evt.DAVList)
	p.printf("Buffer status:  0x%06x%s\n", evt.BufStatus, mark(evt.BufStatus != 0))
	p.printf("TTS state:      0x%x%s\n", evt.TTS, mark(evt.TTS != ttsReady))
}

func (p printer) amcTrailer(amc *AMC) {
	tr := &amc.EvtTrail
	p.title("", "GEM Event Trailer")
	p.printf("DAV timeout flags: 0x%06x%s\n", tr.DAVTimeout, mark(tr.DAVTimeout != 0))
	p.printf("DAQ almost full:   %v%s\n", tr.DAQAlmostFull, mark(tr.DAQAlmostFull))
	p.printf("MMCM locked:       %v%s\n", tr.MMCMLocked, mark(!tr.MMCMLocked))
	p.printf("DAQ clock locked:  %v%s\n", tr.DAQClkLocked, mark(!tr.DAQClkLocked))
	p.printf("DAQ ready:         %v%s\n", tr.DAQReady, mark(!tr.DAQReady))
	p.printf("BC0 locked:        %v%s\n", tr.BC0Locked, mark(!tr.BC0Locked))

	p.title("", "GEM AMC Trailer")
	l1a := uint8(amc.Header.L1A & 0xff)
	p.printf("L1A ID in the trailer:  %d%s\n", amc.Trailer.L1A, mark(amc.Trailer.L1A != l1a))
	p.printf("Total 64bit word count: %d%s\n", amc.Trailer.WordCnt, mark(amc.Trailer.WordCnt != uint32(amc.Words)))
	if amc.SizeMismatch {
		p.printf("Consumed words:         %d%s\n", amc.Words, errMark)
	}
}

func (p printer) chamberHeader(i int, ch *Chamber) {
	const indent = "    "
	p.title(indent, fmt.Sprintf("Chamber #%d Event Header", i))
	p.printf("%sZero-suppressed word count: %d\n", indent, ch.ZSWordCnt)
	p.printf("%sInput ID:                   %d\n", indent, ch.InputID)
	p.printf("%sVFAT word count:            %d\n", indent, ch.VFATWordCnt)
	for _, v := range []struct {
		name string
		set  bool
	}{
		{"Event FIFO full", ch.EvtFIFOFull},
		{"Input FIFO full", ch.InFIFOFull},
		{"L1A FIFO full", ch.L1AFIFOFull},
		{"Event size overflow", ch.EvtSizeOvf},
		{"Event FIFO near full", ch.EvtFIFONearFull},
		{"Input FIFO near full", ch.InFIFONearFull},
		{"L1A FIFO near full", ch.L1AFIFONearFull},
		{"Event size more than 24 VFATs", ch.EvtSizeMore24},
		{"No VFAT marker", ch.NoVFATMarker},
	} {
		p.printf("%s%-30s %v%s\n", indent, v.name+":", v.set, mark(v.set))
	}
}

func (p printer) chamberTrailer(i int, ch *Chamber) {
	const indent = "    "
	p.title(indent, fmt.Sprintf("Chamber #%d Event Trailer", i))
	p.printf("%sVFAT word count in trailer: %d%s\n", indent, ch.VFATWordCntTrail, mark(ch.VFATWordCntTrail != ch.VFATWordCnt))
	p.printf("%sEvent FIFO underflow:       %v%s\n", indent, ch.EvtFIFOUnf, mark(ch.EvtFIFOUnf))
	p.printf("%sInput FIFO underflow:       %v%s\n", indent, ch.InFIFOUnf, mark(ch.InFIFOUnf))
}

func (p printer) vfat(i int, vfat *VFAT, bx uint16) {
	const indent = "        "
	p.title(indent, fmt.Sprintf("VFAT Block #%d", i))
	switch vfat.Format {
	case VFAT2:
		p.printf("%sBC:            %d%s\n", indent, vfat.BC, mark(vfat.BC != bx))
		p.printf("%sEC:            %d\n", indent, vfat.EC)
		p.printf("%sChip ID:       0x%03x\n", indent, vfat.ChipID)
		p.printf("%sMarker:        0x%03x%s\n", indent, vfat.Marker, mark(vfat.Marker != vfat2Mark))
		p.printf("%sHamming error: %v%s\n", indent, vfat.HammingErr, mark(vfat.HammingErr))
		p.printf("%sAlmost full:   %v%s\n", indent, vfat.AlmostFull, mark(vfat.AlmostFull))
		p.printf("%sSEU logic:     %v%s\n", indent, vfat.SEULogic, mark(vfat.SEULogic))
		p.printf("%sSEU I2C:       %v%s\n", indent, vfat.SEUI2C, mark(vfat.SEUI2C))
	default:
		p.printf("%sPosition:      %d\n", indent, vfat.Pos)
		p.printf("%sBC:            0x%04x%s\n", indent, vfat.BC, mark(vfat.BC != bx+1))
		p.printf("%sEC:            0x%02x\n", indent, vfat.EC)
		p.printf("%sHeader:        0x%02x%s\n", indent, vfat.Header, mark(vfat.Header != vfat3Hdr))
		p.printf("%sWarning:       %v%s\n", indent, vfat.Warning(), mark(vfat.Warning()))
		p.printf("%sCRC error:     %v%s\n", indent, vfat.CRCErr, mark(vfat.CRCErr))
	}
	p.printf("%sChannel data:  %v\n", indent, vfat.Data)
	p.printf("%sNumber of hit channels: %d\n", indent, vfat.NumHits())
	p.printf("%sCRC:           0x%04x\n", indent, vfat.CRC)
}
