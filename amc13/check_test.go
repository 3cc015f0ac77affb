// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amc13

import (
	"reflect"
	"testing"
)

func TestHealthyFrame(t *testing.T) {
	f := newHealthyFrame()
	if f.HasError() {
		t.Fatalf("healthy frame flagged as faulty")
	}
	for i := range f.AMCs {
		amc := &f.AMCs[i]
		if amc.HasError() {
			t.Fatalf("AMC %d flagged as faulty", i)
		}
		for j := range amc.Chambers {
			ch := &amc.Chambers[j]
			if ch.HasError(amc.Header.BX) {
				t.Fatalf("chamber (%d,%d) flagged as faulty", i, j)
			}
			for k := range ch.VFATs {
				if ch.VFATs[k].HasError(amc.Header.BX) {
					t.Fatalf("VFAT (%d,%d,%d) flagged as faulty", i, j, k)
				}
			}
		}
	}
	if _, ok := FirstFault(&f); ok {
		t.Fatalf("healthy frame has a fault")
	}
	if got := Faults(&f); len(got) != 0 {
		t.Fatalf("healthy frame has faults: %v", got)
	}
}

func TestFaults(t *testing.T) {
	for _, tc := range []struct {
		name string
		edit func(f *Frame)
		want Fault
	}{
		{
			name: "buf-status",
			edit: func(f *Frame) { f.AMCs[1].Event.BufStatus = 0x10 },
			want: Fault{Level: LevelAMC, AMC: 1, Chamber: -1, VFAT: -1, Reasons: []string{"buffer status=0x000010"}},
		},
		{
			name: "tts",
			edit: func(f *Frame) { f.AMCs[0].Event.TTS = 0x4 },
			want: Fault{Level: LevelAMC, AMC: 0, Chamber: -1, VFAT: -1, Reasons: []string{"TTS state=0x4 (want=0x8)"}},
		},
		{
			name: "dav-timeout",
			edit: func(f *Frame) { f.AMCs[0].EvtTrail.DAVTimeout = 0x1 },
			want: Fault{Level: LevelAMC, AMC: 0, Chamber: -1, VFAT: -1, Reasons: []string{"DAV timeout flags=0x000001"}},
		},
		{
			name: "daq-almost-full",
			edit: func(f *Frame) { f.AMCs[0].EvtTrail.DAQAlmostFull = true },
			want: Fault{Level: LevelAMC, AMC: 0, Chamber: -1, VFAT: -1, Reasons: []string{"DAQ almost full"}},
		},
		{
			name: "locks",
			edit: func(f *Frame) {
				f.AMCs[1].EvtTrail = EventTrailer{}
			},
			want: Fault{Level: LevelAMC, AMC: 1, Chamber: -1, VFAT: -1, Reasons: []string{
				"MMCM not locked", "DAQ clock not locked", "DAQ not ready", "BC0 not locked",
			}},
		},
		{
			name: "chamber-header-flags",
			edit: func(f *Frame) {
				ch := &f.AMCs[0].Chambers[1]
				ch.EvtFIFOFull = true
				ch.L1AFIFONearFull = true
				ch.NoVFATMarker = true
			},
			want: Fault{Level: LevelChamber, AMC: 0, Chamber: 1, VFAT: -1, Reasons: []string{
				"event FIFO full", "L1A FIFO near full", "no VFAT marker",
			}},
		},
		{
			name: "chamber-trailer-flags",
			edit: func(f *Frame) {
				ch := &f.AMCs[1].Chambers[0]
				ch.EvtFIFOUnf = true
				ch.InFIFOUnf = true
			},
			want: Fault{Level: LevelChamber, AMC: 1, Chamber: 0, VFAT: -1, Reasons: []string{
				"event FIFO underflow", "input FIFO underflow",
			}},
		},
		{
			name: "vfat-warning",
			edit: func(f *Frame) { f.AMCs[1].Chambers[0].VFATs[1].Header = 0x5e },
			want: Fault{Level: LevelVFAT, AMC: 1, Chamber: 0, VFAT: 1, Reasons: []string{
				"header=0x5e (want=0x1e)", "warning",
			}},
		},
		{
			name: "vfat-bx",
			edit: func(f *Frame) { f.AMCs[0].Header.BX = 0x320 },
			want: Fault{Level: LevelVFAT, AMC: 0, Chamber: 0, VFAT: 0, Reasons: []string{
				"bc=802 (want=801)",
			}},
		},
		{
			name: "depth-first-order",
			edit: func(f *Frame) {
				f.AMCs[1].Event.TTS = 0
				f.AMCs[0].Chambers[0].VFATs[1].CRCErr = true
				f.AMCs[0].Chambers[1].InFIFOFull = true
			},
			want: Fault{Level: LevelVFAT, AMC: 0, Chamber: 0, VFAT: 1, Reasons: []string{"CRC error"}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newHealthyFrame()
			tc.edit(&f)

			if !f.HasError() {
				t.Fatalf("faulty frame not flagged")
			}

			amc := &f.AMCs[tc.want.AMC]
			if !amc.HasError() {
				t.Fatalf("faulty AMC not flagged")
			}
			if tc.want.Chamber >= 0 && !amc.Chambers[tc.want.Chamber].HasError(amc.Header.BX) {
				t.Fatalf("faulty chamber not flagged")
			}

			got, ok := FirstFault(&f)
			if !ok {
				t.Fatalf("could not find fault")
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid fault:\ngot= %+v\nwant=%+v", got, tc.want)
			}

			all := Faults(&f)
			if len(all) == 0 || !reflect.DeepEqual(all[0], got) {
				t.Fatalf("invalid list of faults: %+v", all)
			}
		})
	}
}

func TestFaultsOrder(t *testing.T) {
	f := newHealthyFrame()
	f.AMCs[1].Event.TTS = 0
	f.AMCs[0].Chambers[0].VFATs[1].CRCErr = true
	f.AMCs[0].Chambers[1].InFIFOFull = true
	f.AMCs[1].Chambers[0].VFATs[0].Header = 0

	var got []string
	for _, flt := range Faults(&f) {
		got = append(got, flt.Error())
	}
	want := []string{
		"VFAT error (amc=0, chamber=0, vfat=1): CRC error",
		"chamber error (amc=0, chamber=1): input FIFO full",
		"AMC error (amc=1): TTS state=0x0 (want=0x8)",
		"VFAT error (amc=1, chamber=0, vfat=0): header=0x00 (want=0x1e)",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid faults:\ngot= %q\nwant=%q", got, want)
	}
}

func TestMarkersAreNotFaults(t *testing.T) {
	f := newHealthyFrame()
	f.Header.MarkerA = 0
	f.Header.MarkerB = 0xf
	f.Trailer.MarkerT = 0
	if f.HasError() {
		t.Fatalf("marker mismatches should not flag the frame")
	}
	want := []string{
		"header marker A=0x0 (want=0x5)",
		"header marker B=0xf (want=0x0)",
		"trailer marker=0x0 (want=0xa)",
	}
	if got := f.MarkerErrors(); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid marker errors:\ngot= %q\nwant=%q", got, want)
	}
	f = newHealthyFrame()
	if got := f.MarkerErrors(); len(got) != 0 {
		t.Fatalf("unexpected marker errors: %q", got)
	}
}
