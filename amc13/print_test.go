// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amc13

import (
	"strings"
	"testing"
)

func TestFprint(t *testing.T) {
	f := newHealthyFrame()

	out := new(strings.Builder)
	Fprint(out, &f)
	if strings.Contains(out.String(), errMark) {
		t.Fatalf("healthy frame printed with errors:\n%s", out.String())
	}
	for _, want := range []string{
		"AMC13 Header",
		"Number of AMCs:  2",
		"    Slot 1, size = 15",
		"    Slot 2, size = 13",
		"    Chamber #1 Event Header",
		"        VFAT Block #1",
		"        Channel data:  0xffffffffffffffffffffffffffffffff",
		"        Number of hit channels: 128",
		"AMC13 Trailer",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("missing %q in output:\n%s", want, out.String())
		}
	}

	f.AMCs[1].EvtTrail.MMCMLocked = false
	f.AMCs[0].Chambers[0].VFATs[0].Header = 0x56
	out.Reset()
	Fprint(out, &f)
	for _, want := range []string{
		"MMCM locked:       false [ERR]",
		"        Header:        0x56 [ERR]",
		"        Warning:       true [ERR]",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("missing %q in output:\n%s", want, out.String())
		}
	}
}

func TestFprintFault(t *testing.T) {
	f := newHealthyFrame()
	f.AMCs[0].Chambers[1].EvtSizeOvf = true
	f.AMCs[1].Chambers[0].VFATs[0].CRCErr = true
	f.AMCs[1].EvtTrail.DAQReady = false

	out := new(strings.Builder)
	for _, flt := range Faults(&f) {
		FprintFault(out, &f, flt)
	}
	for _, want := range []string{
		"chamber error (amc=0, chamber=1): event size overflow",
		"    Chamber #1 Event Trailer",
		"AMC error (amc=1): DAQ not ready",
		"DAQ ready:         false [ERR]",
		"VFAT error (amc=1, chamber=0, vfat=0): CRC error",
		"        CRC error:     true [ERR]",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("missing %q in output:\n%s", want, out.String())
		}
	}
}
