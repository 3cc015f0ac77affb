// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package analysis accumulates statistics over sequences of decoded
// AMC13 frames.
package analysis // import "github.com/go-lpc/gem/analysis"

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/go-lpc/gem/amc13"
	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hbook/yodacnv"
)

const (
	maxBX    = 1 << 12
	maxVFATs = 256
	nChans   = 128
)

// Stats holds the histograms filled from decoded frames.
// Stats is safe for concurrent use by multiple streams.
type Stats struct {
	mu sync.Mutex

	BX          *hbook.H1D // bxId of the frames
	BXDiff      *hbook.H1D // bxId difference between consecutive frames of a stream
	NumChambers *hbook.H1D // number of chambers per frame
	NumVFATs    *hbook.H1D // number of VFAT blocks per frame
	VFATBXMatch *hbook.H1D // VFAT bc minus the bxId of its AMC
	Channels    *hbook.H1D // hit channels of all VFAT blocks

	frames int64
	faulty int64
	hits   int64

	def *Stream
}

// New returns a new, empty, set of histograms.
func New() *Stats {
	s := &Stats{
		BX:          newH1D("bx", maxBX, 0, maxBX),
		BXDiff:      newH1D("bx-diff", 2*maxBX, -maxBX, maxBX),
		NumChambers: newH1D("num-chambers", amc13.MaxAMCs*amc13.MaxChambers+1, 0, amc13.MaxAMCs*amc13.MaxChambers+1),
		NumVFATs:    newH1D("num-vfats", maxVFATs, 0, maxVFATs),
		VFATBXMatch: newH1D("vfat-bx-match", 64, -32, 32),
		Channels:    newH1D("channels", nChans, 0, nChans),
	}
	s.def = s.Stream()
	return s
}

func newH1D(name string, n int, xmin, xmax float64) *hbook.H1D {
	h := hbook.NewH1D(n, xmin, xmax)
	h.Ann["name"] = name
	return h
}

func (s *Stats) hists() []*hbook.H1D {
	return []*hbook.H1D{
		s.BX, s.BXDiff, s.NumChambers, s.NumVFATs, s.VFATBXMatch, s.Channels,
	}
}

// Fill adds the frame f to the default stream of s.
func (s *Stats) Fill(f *amc13.Frame) {
	s.def.Fill(f)
}

// Stream returns a new stream of frames filling s.
// Differences between consecutive frames are only computed within a stream.
func (s *Stats) Stream() *Stream {
	return &Stream{s: s}
}

// Frames returns the number of frames filled.
func (s *Stats) Frames() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Faulty returns the number of faulty frames filled.
func (s *Stats) Faulty() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faulty
}

// Hits returns the total number of hit channels filled.
func (s *Stats) Hits() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

// Fprint writes a summary of the histograms to w.
func (s *Stats) Fprint(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprintf(o, "frames: %d (faulty: %d), hits: %d\n", s.frames, s.faulty, s.hits)
	fmt.Fprintf(o, "histogram\tentries\tmean\tstd-dev\n")
	for _, h := range s.hists() {
		n := h.Entries()
		if n == 0 {
			fmt.Fprintf(o, "%s\t%d\t-\t-\n", h.Name(), n)
			continue
		}
		fmt.Fprintf(o, "%s\t%d\t%.3f\t%.3f\n", h.Name(), n, h.XMean(), h.XStdDev())
	}
	return o.Flush()
}

// WriteYODA writes all the histograms to w, in the YODA format.
func (s *Stats) WriteYODA(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hs := s.hists()
	vs := make([]yodacnv.Marshaler, len(hs))
	for i, h := range hs {
		vs[i] = h
	}
	err := yodacnv.Write(w, vs...)
	if err != nil {
		return fmt.Errorf("analysis: could not write YODA histograms: %w", err)
	}
	return nil
}

// Stream is an ordered sequence of frames, typically read from one file.
type Stream struct {
	s    *Stats
	prev uint16
	ok   bool
}

// Fill adds the frame f to the histograms of the stream.
func (st *Stream) Fill(f *amc13.Frame) {
	s := st.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames++
	if f.HasError() {
		s.faulty++
	}

	bx := f.Header.BX
	s.BX.Fill(float64(bx), 1)
	if st.ok {
		s.BXDiff.Fill(float64(int(bx)-int(st.prev)), 1)
	}
	st.prev = bx
	st.ok = true

	s.NumChambers.Fill(float64(f.NumChambers()), 1)
	s.NumVFATs.Fill(float64(f.NumVFATs()), 1)

	for i := range f.AMCs {
		amc := &f.AMCs[i]
		for j := range amc.Chambers {
			ch := &amc.Chambers[j]
			for k := range ch.VFATs {
				vfat := &ch.VFATs[k]
				s.VFATBXMatch.Fill(float64(int(vfat.BC)-int(amc.Header.BX)), 1)
				for _, c := range vfat.Data.Hits() {
					s.Channels.Fill(float64(c), 1)
					s.hits++
				}
			}
		}
	}
}
