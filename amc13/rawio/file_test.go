// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-lpc/gem/amc13"
)

func TestOpen(t *testing.T) {
	tmp := t.TempDir()

	for _, tc := range []struct {
		name   string
		format Format
		write  func(w io.Writer, payloads [][]byte) error
	}{
		{
			name:   "run.raw",
			format: Raw,
			write: func(w io.Writer, payloads [][]byte) error {
				rw := NewRawWriter(w)
				for _, p := range payloads {
					_, err := rw.Write(p)
					if err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			name:   "run.minidaq",
			format: MiniDAQ,
			write: func(w io.Writer, payloads [][]byte) error {
				mw, err := NewMiniDAQWriter(w, InitRecord{Run: 7})
				if err != nil {
					return err
				}
				for _, p := range payloads {
					_, err := mw.Write(p)
					if err != nil {
						return err
					}
				}
				return mw.Close()
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fname := filepath.Join(tmp, tc.name)
			o, err := os.Create(fname)
			if err != nil {
				t.Fatalf("could not create file: %+v", err)
			}
			defer o.Close()

			const nevts = 4
			var payloads [][]byte
			for i := 0; i < nevts; i++ {
				payloads = append(payloads, newPayload(t, uint32(100+i)))
			}
			err = tc.write(o, payloads)
			if err != nil {
				t.Fatalf("could not write file: %+v", err)
			}
			err = o.Close()
			if err != nil {
				t.Fatalf("could not close file: %+v", err)
			}

			f, err := Open(fname, tc.format)
			if err != nil {
				t.Fatalf("could not open file: %+v", err)
			}
			defer f.Close()

			if got, want := f.Name(), fname; got != want {
				t.Fatalf("invalid name: got=%q, want=%q", got, want)
			}
			if got, want := f.Format(), tc.format; got != want {
				t.Fatalf("invalid format: got=%v, want=%v", got, want)
			}
			fi, err := os.Stat(fname)
			if err != nil {
				t.Fatalf("could not stat file: %+v", err)
			}
			if got, want := f.Size(), fi.Size(); got != want {
				t.Fatalf("invalid size: got=%d, want=%d", got, want)
			}

			var (
				dec = amc13.NewDecoder()
				evt amc13.Frame
				n   int
			)
			for {
				p, err := f.Next()
				if err != nil {
					if errors.Is(err, io.EOF) {
						break
					}
					t.Fatalf("could not read event %d: %+v", n, err)
				}
				err = dec.Decode(p, &evt)
				if err != nil {
					t.Fatalf("could not decode event %d: %+v", n, err)
				}
				if got, want := evt.Header.L1A, uint32(100+n); got != want {
					t.Fatalf("invalid L1A: got=%d, want=%d", got, want)
				}
				if evt.HasError() {
					t.Fatalf("event %d flagged as faulty", n)
				}
				n++
			}
			if n != nevts {
				t.Fatalf("invalid number of events: got=%d, want=%d", n, nevts)
			}

			err = f.Close()
			if err != nil {
				t.Fatalf("could not close file: %+v", err)
			}
		})
	}
}

func TestOpenErrors(t *testing.T) {
	tmp := t.TempDir()

	_, err := Open(filepath.Join(tmp, "missing.raw"), Raw)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("invalid error: %+v", err)
	}

	fname := filepath.Join(tmp, "empty.raw")
	err = os.WriteFile(fname, nil, 0644)
	if err != nil {
		t.Fatalf("could not create file: %+v", err)
	}

	_, err = Open(fname, MiniDAQ)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("invalid error: %+v", err)
	}

	_, err = Open(fname, Format(42))
	if err == nil {
		t.Fatalf("expected an error for an invalid format")
	}

	f, err := Open(fname, Raw)
	if err != nil {
		t.Fatalf("could not open empty file: %+v", err)
	}
	defer f.Close()

	_, err = f.Next()
	if !errors.Is(err, io.EOF) {
		t.Fatalf("invalid error: %+v", err)
	}
}
