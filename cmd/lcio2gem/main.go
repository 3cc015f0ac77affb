// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command lcio2gem converts a LCIO file into a raw AMC13/GEM data file.
package main // import "github.com/go-lpc/gem/cmd/lcio2gem"

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/gem/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

func main() {
	log.SetPrefix("lcio2gem: ")
	log.SetFlags(0)

	var (
		oname = flag.String("o", "out.raw", "path to output raw GEM file")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: lcio2gem [OPTIONS] file.lcio

ex:
 $> lcio2gem -o out.raw ./input.lcio

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("missing input LCIO file")
	}

	if *oname == "" {
		flag.Usage()
		log.Fatalf("invalid output GEM file name")
	}

	n, err := numEvents(flag.Arg(0))
	if err != nil {
		log.Fatalf("could not assess number of events: %+v", err)
	}
	log.Printf("input:  %s", flag.Arg(0))
	log.Printf("events: %d", n)

	err = process(*oname, flag.Arg(0), int(n/10))
	if err != nil {
		log.Fatalf("could not convert LCIO file: %+v", err)
	}
}

func numEvents(fname string) (int64, error) {
	r, err := lcio.Open(fname)
	if err != nil {
		return 0, fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer r.Close()

	var n int64
	for r.Next() {
		n++
	}

	err = r.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("could not assess number of events in %q: %w", fname, err)
	}

	return n, nil
}

func process(oname, fname string, freq int) error {
	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	f, err := os.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output GEM file: %w", err)
	}
	defer f.Close()

	_, err = xcnv.LCIO2GEM(f, r, freq, log.Default())
	if err != nil {
		return fmt.Errorf("could not convert LCIO to GEM: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close output GEM file: %w", err)
	}
	return nil
}
