// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amc13

import (
	"encoding/binary"
	"fmt"
)

const wordSize = 8 // size in bytes of a data word

// cursor iterates over the 64b words of a frame payload.
// Errors are sticky: once the cursor ran out of words, every
// subsequent read returns 0 and the first error is kept.
type cursor struct {
	words []uint64
	cur   int
	err   error
}

func newCursor(buf []byte) *cursor {
	n := (len(buf) + wordSize - 1) / wordSize
	c := &cursor{words: make([]uint64, n)}
	for i := range c.words {
		beg := i * wordSize
		end := beg + wordSize
		if end > len(buf) {
			// zero-pad the last word, without touching buf.
			var w [wordSize]byte
			copy(w[:], buf[beg:])
			c.words[i] = binary.LittleEndian.Uint64(w[:])
			continue
		}
		c.words[i] = binary.LittleEndian.Uint64(buf[beg:end])
	}
	return c
}

func (c *cursor) len() int { return len(c.words) }
func (c *cursor) pos() int { return c.cur }

// next returns the current word and advances the cursor.
func (c *cursor) next() uint64 {
	if c.err != nil {
		return 0
	}
	if c.cur >= len(c.words) {
		c.err = fmt.Errorf("amc13: could not read word %d (len=%d): %w",
			c.cur, len(c.words), ErrTruncated,
		)
		return 0
	}
	w := c.words[c.cur]
	c.cur++
	return w
}

// peek returns the word at offset words from the current position,
// without advancing.
func (c *cursor) peek(offset int) (uint64, error) {
	i := c.cur + offset
	if i < 0 || i >= len(c.words) {
		return 0, fmt.Errorf("amc13: could not peek word %d (len=%d): %w",
			i, len(c.words), ErrTruncated,
		)
	}
	return c.words[i], nil
}

func (c *cursor) skip(n int) {
	for i := 0; i < n; i++ {
		c.next()
	}
}
