// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// gem-scan decodes AMC13/GEM data files and reports faulty events and
// run statistics.
//
// Usage: gem-scan [OPTIONS] <file-or-pattern> [<file-or-pattern> ...]
//
// Files are decoded concurrently. Each faulty event is logged with its
// list of faults. A summary table per file and the statistics of the whole
// set of files are printed at the end.
//
// Example:
//
//	$> gem-scan -j 4 -o hists.yoda "./data/run_0042_*.raw"
package main // import "github.com/go-lpc/gem/cmd/gem-scan"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/go-lpc/gem"
	"github.com/go-lpc/gem/amc13"
	"github.com/go-lpc/gem/amc13/rawio"
	"github.com/go-lpc/gem/analysis"
	"github.com/go-lpc/gem/internal/config"
	"github.com/go-lpc/gem/internal/fileset"
	"golang.org/x/sync/errgroup"
)

const usage = `gem-scan decodes AMC13/GEM data files and reports faulty events.

Usage: gem-scan [OPTIONS] <file-or-pattern> [<file-or-pattern> ...]

Example:

 $> gem-scan -j 4 -o hists.yoda "./data/run_0042_*.raw"

options:
`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("gem-scan: ")
	log.SetFlags(0)

	opt, err := parse(args)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	out, closer := opt.cfg.Writer(os.Stderr)
	defer closer.Close()
	log.SetOutput(out)

	if opt.cfg.Verbose {
		if vers, _ := gem.Version(); vers != "" {
			log.Printf("version: %s", vers)
		}
	}

	err = run(w, log.Default(), opt)
	if err != nil {
		_ = closer.Close()
		log.Fatalf("%+v", err)
	}
}

type options struct {
	cfg   config.Config
	oname string   // output YODA file
	files []string // input files or patterns
}

func parse(args []string) (options, error) {
	var (
		fset = flag.NewFlagSet("gem-scan", flag.ExitOnError)

		cfgName = fset.String("cfg", "", "path to a YAML configuration file")
		minidaq = fset.Bool("minidaq", false, "read MiniDAQ files instead of raw AMC13 files")
		vfat    = fset.String("vfat", "v3", "VFAT block layout (v2|v3)")
		offset  = fset.Int("offset", rawio.DefaultPayloadOffset, "offset of the AMC13 frame in MiniDAQ blobs")
		sizeChk = fset.Bool("check-size", false, "cross-check AMC block sizes against the AMC13 header")
		verbose = fset.Bool("v", false, "enable verbose decoding")
		nprocs  = fset.Int("j", 0, "number of files processed concurrently (default: number of CPUs)")
		logName = fset.String("log", "", "path to a rotated log file")
		oname   = fset.String("o", "", "path to output YODA file with histograms")

		opt = options{cfg: config.Default()}
	)

	fset.Usage = func() {
		fmt.Fprint(fset.Output(), usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		return opt, fmt.Errorf("could not parse input arguments: %w", err)
	}

	if *cfgName != "" {
		opt.cfg, err = config.Load(*cfgName)
		if err != nil {
			return opt, fmt.Errorf("could not load configuration: %w", err)
		}
	}

	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "minidaq":
			opt.cfg.Format = rawio.Raw.String()
			if *minidaq {
				opt.cfg.Format = rawio.MiniDAQ.String()
			}
		case "vfat":
			opt.cfg.VFAT = *vfat
		case "offset":
			opt.cfg.PayloadOffset = *offset
		case "check-size":
			opt.cfg.CheckBlockSize = *sizeChk
		case "v":
			opt.cfg.Verbose = *verbose
		case "j":
			opt.cfg.Workers = *nprocs
		case "log":
			opt.cfg.Log.File = *logName
		}
	})

	err = opt.cfg.Validate()
	if err != nil {
		return opt, fmt.Errorf("invalid configuration: %w", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		return opt, fmt.Errorf("missing input files")
	}

	opt.oname = *oname
	opt.files = fset.Args()
	return opt, nil
}

// summary holds the per-file counters.
type summary struct {
	name     string
	events   int
	faulty   int
	chambers int
	vfats    int
	hits     int
}

func run(w io.Writer, msg *log.Logger, opt options) error {
	files, err := fileset.ExpandAll(opt.files)
	if err != nil {
		return fmt.Errorf("could not find input files: %w", err)
	}

	format, err := opt.cfg.FileFormat()
	if err != nil {
		return fmt.Errorf("invalid file format: %w", err)
	}

	dopts, err := opt.cfg.DecoderOptions(msg)
	if err != nil {
		return fmt.Errorf("invalid decoder configuration: %w", err)
	}
	ropts := opt.cfg.ReaderOptions(msg)

	var (
		stats = analysis.New()
		sums  = make([]summary, len(files))
	)

	grp, ctx := errgroup.WithContext(context.Background())
	grp.SetLimit(opt.cfg.Workers)
	for i, fname := range files {
		i := i
		fname := fname
		grp.Go(func() error {
			dec := amc13.NewDecoder(dopts...)
			sum, err := scan(ctx, msg, fname, format, dec, ropts, stats.Stream())
			if err != nil {
				return fmt.Errorf("could not scan %q: %w", fname, err)
			}
			sums[i] = sum
			return nil
		})
	}

	err = grp.Wait()
	if err != nil {
		return err
	}

	o := tabwriter.NewWriter(w, 0, 8, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(o, "file\tevents\tfaulty\tchambers\tVFATs\thits\t\n")
	for _, sum := range sums {
		fmt.Fprintf(o, "%s\t%d\t%d\t%d\t%d\t%d\t\n",
			sum.name, sum.events, sum.faulty, sum.chambers, sum.vfats, sum.hits,
		)
	}
	err = o.Flush()
	if err != nil {
		return fmt.Errorf("could not write summary: %w", err)
	}

	fmt.Fprintf(w, "\n")
	err = stats.Fprint(w)
	if err != nil {
		return fmt.Errorf("could not write statistics: %w", err)
	}

	if opt.oname != "" {
		err = writeYODA(opt.oname, stats)
		if err != nil {
			return err
		}
	}

	return nil
}

func scan(ctx context.Context, msg *log.Logger, fname string, format rawio.Format, dec *amc13.Decoder, opts []rawio.Option, stream *analysis.Stream) (summary, error) {
	sum := summary{name: fname}

	f, err := rawio.Open(fname, format, opts...)
	if err != nil {
		return sum, err
	}
	defer f.Close()

	var frame amc13.Frame
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		p, err := f.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return sum, fmt.Errorf("could not read event %d: %w", sum.events, err)
		}

		err = dec.Decode(p, &frame)
		if err != nil {
			return sum, fmt.Errorf(
				"could not decode event %d (ending at byte %d): %w",
				sum.events, f.Pos(), err,
			)
		}

		stream.Fill(&frame)
		if faults := amc13.Faults(&frame); len(faults) > 0 {
			sum.faulty++
			for _, flt := range faults {
				msg.Printf("%s: event #%d (ending at byte %d): %v", fname, sum.events, f.Pos(), flt)
			}
		}
		sum.events++
		sum.chambers += frame.NumChambers()
		sum.vfats += frame.NumVFATs()
		for i := range frame.AMCs {
			for j := range frame.AMCs[i].Chambers {
				for _, vfat := range frame.AMCs[i].Chambers[j].VFATs {
					sum.hits += vfat.NumHits()
				}
			}
		}
	}

	err = f.Close()
	if err != nil {
		return sum, err
	}
	return sum, nil
}

func writeYODA(oname string, stats *analysis.Stats) error {
	f, err := os.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output YODA file: %w", err)
	}
	defer f.Close()

	err = stats.WriteYODA(f)
	if err != nil {
		return fmt.Errorf("could not write output YODA file: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close output YODA file: %w", err)
	}
	return nil
}
