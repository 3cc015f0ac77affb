// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command gem2lcio converts an AMC13/GEM data file to an LCIO one.
package main // import "github.com/go-lpc/gem/cmd/gem2lcio"

import (
	"compress/flate"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-lpc/gem/amc13"
	"github.com/go-lpc/gem/amc13/rawio"
	"github.com/go-lpc/gem/internal/config"
	"github.com/go-lpc/gem/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.New(os.Stdout, "gem2lcio: ", 0)
)

func main() {
	var (
		oname   = flag.String("o", "out.lcio", "path to output LCIO file")
		compr   = flag.Int("lvl", flate.DefaultCompression, "compression level for output LCIO file")
		run     = flag.Int("run", -1, "run number (default: inferred from the input file name)")
		cfgName = flag.String("cfg", "", "path to a YAML configuration file")
		minidaq = flag.Bool("minidaq", false, "read a MiniDAQ file instead of a raw AMC13 file")
		vfat    = flag.String("vfat", "v3", "VFAT block layout (v2|v3)")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: gem2lcio [OPTIONS] file.raw

ex:
 $> gem2lcio -o out.lcio -lvl=9 ./run_0042.raw

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		msg.Fatalf("missing input GEM file")
	}

	if *oname == "" {
		flag.Usage()
		msg.Fatalf("invalid output LCIO file name")
	}

	cfg := config.Default()
	if *cfgName != "" {
		var err error
		cfg, err = config.Load(*cfgName)
		if err != nil {
			msg.Fatalf("could not load configuration: %+v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "minidaq":
			cfg.Format = rawio.Raw.String()
			if *minidaq {
				cfg.Format = rawio.MiniDAQ.String()
			}
		case "vfat":
			cfg.VFAT = *vfat
		}
	})

	err := process(*oname, *compr, int32(*run), cfg, flag.Arg(0))
	if err != nil {
		msg.Fatalf("could not convert GEM file: %+v", err)
	}
}

func process(oname string, lvl int, run int32, cfg config.Config, fname string) error {
	if run < 0 {
		var err error
		run, err = runNbrFrom(fname)
		if err != nil {
			return fmt.Errorf("could not infer run from %q: %w", fname, err)
		}
	}

	format, err := cfg.FileFormat()
	if err != nil {
		return fmt.Errorf("invalid file format: %w", err)
	}

	dopts, err := cfg.DecoderOptions(msg)
	if err != nil {
		return fmt.Errorf("invalid decoder configuration: %w", err)
	}

	f, err := rawio.Open(fname, format, cfg.ReaderOptions(msg)...)
	if err != nil {
		return fmt.Errorf("could not open GEM file: %w", err)
	}
	defer f.Close()

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(lvl)

	n, err := xcnv.GEM2LCIO(w, f, amc13.NewDecoder(dopts...), run, 0, msg)
	if err != nil {
		return fmt.Errorf("could not convert GEM to LCIO: %w", err)
	}
	msg.Printf("converted %d events", n)

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	return nil
}

// runNbrFrom extracts the run number from file names like
// "run_0042.raw" or "run000042_ls0001.dat".
func runNbrFrom(fname string) (int32, error) {
	var (
		name = filepath.Base(fname)
		run  int32
	)
	name = strings.TrimPrefix(strings.TrimPrefix(name, "run"), "_")
	_, err := fmt.Sscanf(name, "%d", &run)
	return run, err
}
