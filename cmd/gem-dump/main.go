// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// gem-dump decodes and displays AMC13/GEM data files.
//
// Usage: gem-dump [OPTIONS] <file-or-pattern> <command> [N]
//
// The file name may be a shell pattern (*, ?, [seq], [!seq]) matching
// several files of a directory. Enclose it in quotes.
//
// Commands:
//
//	print N                 prints the N-th event
//	print_non_zero_event N  prints the N-th event with at least one VFAT block
//	print_error             prints the faulty events, one at a time
//
// Example:
//
//	$> gem-dump "./data/run_0042_*.raw" print 10
//	$> gem-dump -minidaq ./data/run.dat print_error
package main // import "github.com/go-lpc/gem/cmd/gem-dump"

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-lpc/gem/amc13"
	"github.com/go-lpc/gem/amc13/rawio"
	"github.com/go-lpc/gem/internal/config"
	"github.com/go-lpc/gem/internal/fileset"
	"github.com/peterh/liner"
)

const usage = `gem-dump decodes and displays AMC13/GEM data files.

Usage: gem-dump [OPTIONS] <file-or-pattern> <command> [N]

The file name may contain shell patterns (enclose it in double quotes):
 * -- wildcard, ? -- any single character,
 [seq] -- any character in seq, [!seq] -- any character not in seq.

Commands:
    print <evt_number>                        prints the requested event
    print_non_zero_event <non_zero_evt_number> prints the requested event, only
                                              counting events with at least one VFAT block
    print_error                               prints the events with errors

Example:

 $> gem-dump "./data/run_0042_*.raw" print 10
 $> gem-dump -minidaq ./data/run.dat print_error

options:
`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("gem-dump: ")
	log.SetFlags(0)

	cfg, cmd, err := parse(args)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)

	err = run(w, term, cfg, cmd)
	if err != nil {
		_ = term.Close()
		log.Fatalf("%+v", err)
	}
}

type command struct {
	pattern string
	name    string
	evt     int
}

func parse(args []string) (config.Config, command, error) {
	var (
		fset = flag.NewFlagSet("gem-dump", flag.ExitOnError)

		cfgName = fset.String("cfg", "", "path to a YAML configuration file")
		minidaq = fset.Bool("minidaq", false, "read MiniDAQ files instead of raw AMC13 files")
		vfat    = fset.String("vfat", "v3", "VFAT block layout (v2|v3)")
		offset  = fset.Int("offset", rawio.DefaultPayloadOffset, "offset of the AMC13 frame in MiniDAQ blobs")
		sizeChk = fset.Bool("check-size", false, "cross-check AMC block sizes against the AMC13 header")
		verbose = fset.Bool("v", false, "enable verbose decoding")

		cfg = config.Default()
		cmd command
	)

	fset.Usage = func() {
		fmt.Fprint(fset.Output(), usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		return cfg, cmd, fmt.Errorf("could not parse input arguments: %w", err)
	}

	if *cfgName != "" {
		cfg, err = config.Load(*cfgName)
		if err != nil {
			return cfg, cmd, fmt.Errorf("could not load configuration: %w", err)
		}
	}

	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "minidaq":
			cfg.Format = rawio.Raw.String()
			if *minidaq {
				cfg.Format = rawio.MiniDAQ.String()
			}
		case "vfat":
			cfg.VFAT = *vfat
		case "offset":
			cfg.PayloadOffset = *offset
		case "check-size":
			cfg.CheckBlockSize = *sizeChk
		case "v":
			cfg.Verbose = *verbose
		}
	})

	err = cfg.Validate()
	if err != nil {
		return cfg, cmd, fmt.Errorf("invalid configuration: %w", err)
	}

	if fset.NArg() < 2 {
		fset.Usage()
		return cfg, cmd, fmt.Errorf("missing input file and command")
	}

	cmd.pattern = fset.Arg(0)
	cmd.name = fset.Arg(1)
	switch cmd.name {
	case "print", "print_non_zero_event":
		if fset.NArg() != 3 {
			return cfg, cmd, fmt.Errorf("missing event number for command %q", cmd.name)
		}
		cmd.evt, err = strconv.Atoi(fset.Arg(2))
		if err != nil || cmd.evt < 0 {
			return cfg, cmd, fmt.Errorf("invalid event number %q", fset.Arg(2))
		}
	case "print_error":
		if fset.NArg() != 2 {
			return cfg, cmd, fmt.Errorf("too many arguments for command %q", cmd.name)
		}
	default:
		return cfg, cmd, fmt.Errorf("invalid command %q", cmd.name)
	}

	return cfg, cmd, nil
}

type prompter interface {
	Prompt(string) (string, error)
}

var _ prompter = (*liner.State)(nil)

type dumper struct {
	w    *bufio.Writer
	term prompter
	cmd  command
	dec  *amc13.Decoder
	opts []rawio.Option
	fmt  rawio.Format

	evt     int // index of the current event
	nonZero int // index of the current event with VFAT blocks
}

// errDone stops the scan of the input files.
var errDone = errors.New("gem-dump: done")

func run(w io.Writer, term prompter, cfg config.Config, cmd command) error {
	files, err := fileset.Expand(cmd.pattern)
	if err != nil {
		return fmt.Errorf("could not find input files: %w", err)
	}

	format, err := cfg.FileFormat()
	if err != nil {
		return fmt.Errorf("invalid file format: %w", err)
	}

	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	msg := log.New(wbuf, "", 0)
	dopts, err := cfg.DecoderOptions(msg)
	if err != nil {
		return fmt.Errorf("invalid decoder configuration: %w", err)
	}

	d := &dumper{
		w:    wbuf,
		term: term,
		cmd:  cmd,
		dec:  amc13.NewDecoder(dopts...),
		opts: cfg.ReaderOptions(msg),
		fmt:  format,
	}

	for _, fname := range files {
		err := d.process(fname)
		switch {
		case errors.Is(err, errDone):
			return nil
		case err != nil:
			return err
		}
	}

	if cmd.name == "print_error" {
		return nil
	}
	return fmt.Errorf(
		"could not find event %d (events=%d, non-zero events=%d)",
		cmd.evt, d.evt, d.nonZero,
	)
}

func (d *dumper) process(fname string) error {
	f, err := rawio.Open(fname, d.fmt, d.opts...)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	fmt.Fprintf(d.w, "Opening file: %s\n", fname)
	fmt.Fprintf(d.w, "File size = %d bytes\n", f.Size())

	var frame amc13.Frame
	for {
		p, err := f.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintf(d.w, "End of file reached\n")
				return nil
			}
			return fmt.Errorf("could not read event %d from %q: %w", d.evt, fname, err)
		}

		err = d.dec.Decode(p, &frame)
		if err != nil {
			return fmt.Errorf(
				"could not decode event %d (ending at byte %d in file %s): %w",
				d.evt, f.Pos(), fname, err,
			)
		}

		err = d.handle(&frame, f)
		if err != nil {
			return err
		}
		d.evt++
	}
}

func (d *dumper) handle(frame *amc13.Frame, f *rawio.File) error {
	switch d.cmd.name {
	case "print":
		if d.evt == d.cmd.evt {
			d.print(frame, f)
			return errDone
		}
	case "print_non_zero_event":
		if frame.NumVFATs() == 0 {
			return nil
		}
		if d.nonZero == d.cmd.evt {
			d.print(frame, f)
			return errDone
		}
		d.nonZero++
	case "print_error":
		return d.printError(frame, f)
	}
	return nil
}

func (d *dumper) print(frame *amc13.Frame, f *rawio.File) {
	amc13.Fprint(d.w, frame)
	d.footer(f)
}

func (d *dumper) footer(f *rawio.File) {
	fmt.Fprintf(d.w, "Event #%d (ending at byte %d in file %s)\n", d.evt, f.Pos(), f.Name())
}

func (d *dumper) printError(frame *amc13.Frame, f *rawio.File) error {
	if !frame.HasError() {
		return nil
	}

	d.footer(f)
	for _, flt := range amc13.Faults(frame) {
		amc13.FprintFault(d.w, frame, flt)
	}

	ok, err := d.ask("Print the whole event? (y/n) ")
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(d.w, "\n\n%s\n\n", strings.Repeat("=", 86))
		amc13.Fprint(d.w, frame)
	}

	ok, err = d.ask("Do you want to continue? (y/n) ")
	if err != nil {
		return err
	}
	if !ok {
		return errDone
	}
	return nil
}

// ask prompts the user with a yes/no question.
// An aborted prompt is a "no".
func (d *dumper) ask(question string) (bool, error) {
	err := d.w.Flush()
	if err != nil {
		return false, fmt.Errorf("could not flush output: %w", err)
	}

	ans, err := d.term.Prompt(question)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, liner.ErrPromptAborted):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("could not read answer: %w", err)
	}
	return strings.TrimSpace(ans) == "y", nil
}
