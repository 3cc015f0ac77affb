// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/go-lpc/gem/amc13"
	"github.com/go-lpc/gem/amc13/rawio"
	"go-hep.org/x/hep/lcio"
)

// GEM2LCIO converts all the frames read from r into LCIO events written to w.
// It returns the number of converted events.
func GEM2LCIO(w *lcio.Writer, r rawio.Reader, dec *amc13.Decoder, run int32, freq int, msg *log.Logger) (int, error) {
	if freq <= 0 {
		freq = 100
	}

	var (
		frame amc13.Frame
		raw   = &lcio.GenericObject{
			Data: []lcio.GenericObjectData{
				{I32s: nil},
			},
		}
		hits = &lcio.RawCalorimeterHitContainer{
			Flags: lcio.Flags(rchBitID1 | rchBitTime),
		}
		i int
	)

loop:
	for i = 0; ; i++ {
		if i%freq == 0 {
			msg.Printf("processing evt %d...", i)
		}
		p, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break loop
			}
			return i, fmt.Errorf("xcnv: could not read GEM frame %d: %w", i, err)
		}

		err = dec.Decode(p, &frame)
		if err != nil {
			return i, fmt.Errorf("xcnv: could not decode GEM frame %d: %w", i, err)
		}

		if i == 0 {
			err = w.WriteRunHeader(&lcio.RunHeader{
				RunNumber: run,
				Detector:  Detector,
				Descr:     "",
				Params: lcio.Params{
					Strings: map[string][]string{
						"VFATFormat": {dec.VFATFormat().String()},
					},
				},
			})
			if err != nil {
				return i, fmt.Errorf("xcnv: could not write run header: %w", err)
			}
		}

		evt := lcio.Event{
			RunNumber:   run,
			EventNumber: int32(i),
			TimeStamp:   int64(frame.Header.Orbit)<<12 | int64(frame.Header.BX),
			Detector:    Detector,
		}
		raw.Data[0].I32s = i32sFrom(p)
		hits.Hits = hitsFrom(hits.Hits[:0], &frame)
		evt.Add(RawName, raw)
		evt.Add(HitsName, hits)

		err = w.WriteEvent(&evt)
		if err != nil {
			return i, fmt.Errorf("xcnv: could not write GEM event %d: %w", i, err)
		}
	}

	return i, nil
}

// hitsFrom appends one hit per hit channel of the frame f to hits.
func hitsFrom(hits []lcio.RawCalorimeterHit, f *amc13.Frame) []lcio.RawCalorimeterHit {
	for i := range f.AMCs {
		amc := &f.AMCs[i]
		for j := range amc.Chambers {
			ch := &amc.Chambers[j]
			for k := range ch.VFATs {
				vfat := &ch.VFATs[k]
				id := CellID(amc.Header.Num, ch.InputID, vfat.Pos)
				for _, c := range vfat.Data.Hits() {
					hits = append(hits, lcio.RawCalorimeterHit{
						CellID0:   id,
						CellID1:   int32(c),
						Amplitude: 1,
						TimeStamp: int32(vfat.BC),
					})
				}
			}
		}
	}
	return hits
}
