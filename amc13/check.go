// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amc13

import (
	"fmt"
	"strings"
)

// Level identifies the kind of record a Fault refers to.
type Level uint8

const (
	LevelAMC Level = iota + 1
	LevelChamber
	LevelVFAT
)

func (lvl Level) String() string {
	switch lvl {
	case LevelAMC:
		return "AMC"
	case LevelChamber:
		return "chamber"
	case LevelVFAT:
		return "VFAT"
	default:
		return fmt.Sprintf("Level(%d)", uint8(lvl))
	}
}

// Fault describes a faulty record of a frame.
// Indices that do not apply to the level are -1.
type Fault struct {
	Level   Level
	AMC     int // index of the AMC in the frame
	Chamber int // index of the chamber in the AMC
	VFAT    int // index of the VFAT in the chamber

	Reasons []string // failing conditions
}

func (f Fault) Error() string {
	o := new(strings.Builder)
	fmt.Fprintf(o, "%s error (amc=%d", f.Level, f.AMC)
	if f.Chamber >= 0 {
		fmt.Fprintf(o, ", chamber=%d", f.Chamber)
	}
	if f.VFAT >= 0 {
		fmt.Fprintf(o, ", vfat=%d", f.VFAT)
	}
	fmt.Fprintf(o, "): %s", strings.Join(f.Reasons, ", "))
	return o.String()
}

// HasError reports whether any of the AMC blocks of the frame is faulty.
// Marker mismatches do not make a frame faulty.
func (f *Frame) HasError() bool {
	for i := range f.AMCs {
		if f.AMCs[i].HasError() {
			return true
		}
	}
	return false
}

// FirstFault returns the first faulty record of the frame, found by a
// depth-first, in-order walk of the frame tree.
func FirstFault(f *Frame) (Fault, bool) {
	var (
		flt Fault
		ok  bool
	)
	walk(f, func(v Fault) bool {
		flt = v
		ok = true
		return false
	})
	return flt, ok
}

// Faults returns all the faulty records of the frame, in depth-first order.
func Faults(f *Frame) []Fault {
	var o []Fault
	walk(f, func(v Fault) bool {
		o = append(o, v)
		return true
	})
	return o
}

// walk visits the faulty records of f in depth-first order, until
// fct returns false.
func walk(f *Frame, fct func(Fault) bool) {
	for i := range f.AMCs {
		amc := &f.AMCs[i]
		if rs := amc.faults(); len(rs) > 0 {
			if !fct(Fault{Level: LevelAMC, AMC: i, Chamber: -1, VFAT: -1, Reasons: rs}) {
				return
			}
		}
		for j := range amc.Chambers {
			ch := &amc.Chambers[j]
			if rs := ch.faults(); len(rs) > 0 {
				if !fct(Fault{Level: LevelChamber, AMC: i, Chamber: j, VFAT: -1, Reasons: rs}) {
					return
				}
			}
			for k := range ch.VFATs {
				if rs := ch.VFATs[k].faults(amc.Header.BX); len(rs) > 0 {
					if !fct(Fault{Level: LevelVFAT, AMC: i, Chamber: j, VFAT: k, Reasons: rs}) {
						return
					}
				}
			}
		}
	}
}
