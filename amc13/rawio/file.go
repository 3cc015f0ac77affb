// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawio

import (
	"fmt"

	"github.com/go-lpc/gem/internal/mmap"
)

// File is a memory mapped file of AMC13 frames.
type File struct {
	Reader

	name string
	fmt  Format
	size int64
	h    *mmap.Handle
}

// Open opens the named file for reading frames stored with the given format.
func Open(fname string, format Format, opts ...Option) (*File, error) {
	h, err := mmap.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("rawio: could not open %q: %w", fname, err)
	}

	f := &File{
		name: fname,
		fmt:  format,
		size: int64(h.Len()),
		h:    h,
	}
	size := f.size

	switch format {
	case Raw:
		f.Reader = NewRawReader(h, size, opts...)
	case MiniDAQ:
		r, err := NewMiniDAQReader(h, size, opts...)
		if err != nil {
			_ = h.Close()
			return nil, fmt.Errorf("rawio: could not open MiniDAQ file %q: %w", fname, err)
		}
		f.Reader = r
	default:
		_ = h.Close()
		return nil, fmt.Errorf("rawio: invalid file format %v", format)
	}

	return f, nil
}

// Name returns the name of the file.
func (f *File) Name() string { return f.name }

// Format returns the format of the file.
func (f *File) Format() Format { return f.fmt }

// Size returns the size of the file in bytes.
func (f *File) Size() int64 { return f.size }

// Close releases the memory mapping of the file.
func (f *File) Close() error {
	err := f.h.Close()
	if err != nil {
		return fmt.Errorf("rawio: could not close %q: %w", f.name, err)
	}
	return nil
}
