// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"
	"io"
	"log"

	"github.com/go-lpc/gem/amc13/rawio"
	"go-hep.org/x/hep/lcio"
)

// LCIO2GEM writes the GEM frames stored in the LCIO events of r to w, as
// raw transport records. It returns the number of converted events.
func LCIO2GEM(w io.Writer, r *lcio.Reader, freq int, msg *log.Logger) (int, error) {
	if freq <= 0 {
		freq = 100
	}

	var (
		rw = rawio.NewRawWriter(w)
		i  = 0
	)
	for r.Next() {
		if i%freq == 0 {
			msg.Printf("processing evt %d...", i)
		}
		evt := r.Event()
		if !evt.Has(RawName) {
			return i, fmt.Errorf("xcnv: event %d has no %q collection", evt.EventNumber, RawName)
		}
		obj, ok := evt.Get(RawName).(*lcio.GenericObject)
		if !ok || len(obj.Data) == 0 {
			return i, fmt.Errorf("xcnv: event %d has an invalid %q collection", evt.EventNumber, RawName)
		}

		p, err := bytesFrom(obj.Data[0].I32s)
		if err != nil {
			return i, fmt.Errorf("xcnv: could not decode event %d: %w", evt.EventNumber, err)
		}
		_, err = rw.Write(p)
		if err != nil {
			return i, fmt.Errorf("xcnv: could not write GEM frame %d: %w", evt.EventNumber, err)
		}
		i++
	}

	err := r.Err()
	if err != nil && err != io.EOF {
		return i, fmt.Errorf("xcnv: could not read LCIO file: %w", err)
	}

	return i, nil
}
