// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
)

func TestMiniDAQRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name   string
		init   InitRecord
		opts   []Option
		offset int
	}{
		{
			name:   "default",
			init:   InitRecord{Run: 42},
			offset: DefaultPayloadOffset,
		},
		{
			name: "large-headers",
			init: InitRecord{
				Code:            0x7,
				Size:            64,
				Protocol:        0x2,
				Run:             1234,
				InitHeaderSize:  12,
				EventHeaderSize: 40,
			},
			offset: DefaultPayloadOffset,
		},
		{
			name:   "no-offset",
			init:   InitRecord{Run: 1},
			opts:   []Option{WithPayloadOffset(0)},
			offset: 0,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			w, err := NewMiniDAQWriter(buf, tc.init, tc.opts...)
			if err != nil {
				t.Fatalf("could not create writer: %+v", err)
			}

			var want [][]byte
			for i := 0; i < 3; i++ {
				p := newPayload(t, uint32(i+10))
				_, err := w.Write(p)
				if err != nil {
					t.Fatalf("could not write event %d: %+v", i, err)
				}
				want = append(want, p)
			}
			err = w.Close()
			if err != nil {
				t.Fatalf("could not close writer: %+v", err)
			}

			_, err = w.Write(want[0])
			if err == nil {
				t.Fatalf("expected an error writing to a closed writer")
			}

			var (
				msg  = new(strings.Builder)
				raw  = buf.Bytes()
				opts = append([]Option{
					WithVerbose(true),
					WithLogger(log.New(msg, "", 0)),
				}, tc.opts...)
			)
			r, err := NewMiniDAQReader(bytes.NewReader(raw), int64(len(raw)), opts...)
			if err != nil {
				t.Fatalf("could not create reader: %+v", err)
			}

			init := r.Init()
			if init.Run != tc.init.Run {
				t.Fatalf("invalid run: got=%d, want=%d", init.Run, tc.init.Run)
			}
			if init.Size < initRecordSize || init.EventHeaderSize < evtRecordSize {
				t.Fatalf("invalid init record: %+v", init)
			}
			if tc.init.Size != 0 && init != tc.init {
				t.Fatalf("invalid init record:\ngot= %+v\nwant=%+v", init, tc.init)
			}

			for i := range want {
				got, err := r.Next()
				if err != nil {
					t.Fatalf("could not read event %d: %+v", i, err)
				}
				if !bytes.Equal(got, want[i]) {
					t.Fatalf("invalid payload %d:\ngot= %x\nwant=%x", i, got, want[i])
				}
				evt := r.Event()
				if evt.Event != uint32(i) {
					t.Fatalf("invalid event number: got=%d, want=%d", evt.Event, i)
				}
				if evt.Run != tc.init.Run {
					t.Fatalf("invalid event run: got=%d, want=%d", evt.Run, tc.init.Run)
				}
				if got, want := evt.Decompressed, tc.offset+len(want[i]); got != want {
					t.Fatalf("invalid decompressed size: got=%d, want=%d", got, want)
				}
				if got, want := int64(evt.Size), r.Pos()-evt.Pos; got != want {
					t.Fatalf("invalid EVT record size: got=%d, want=%d", got, want)
				}
			}

			_, err = r.Next()
			if !errors.Is(err, io.EOF) {
				t.Fatalf("invalid end-of-stream error: %+v", err)
			}
			if got, want := r.Pos(), int64(len(raw)); got != want {
				t.Fatalf("invalid final position: got=%d, want=%d", got, want)
			}

			_, err = r.Next()
			if !errors.Is(err, io.EOF) {
				t.Fatalf("invalid end-of-stream error: %+v", err)
			}

			for _, want := range []string{"init: code=", "evt: start="} {
				if !strings.Contains(msg.String(), want) {
					t.Fatalf("missing %q in log:\n%s", want, msg.String())
				}
			}
		})
	}
}

func TestMiniDAQLastEventWithoutEndOfRun(t *testing.T) {
	buf := new(bytes.Buffer)
	w, err := NewMiniDAQWriter(buf, InitRecord{Run: 1})
	if err != nil {
		t.Fatalf("could not create writer: %+v", err)
	}
	for i := 0; i < 2; i++ {
		_, err = w.Write(newPayload(t, uint32(i)))
		if err != nil {
			t.Fatalf("could not write event %d: %+v", i, err)
		}
	}

	raw := buf.Bytes()
	r, err := NewMiniDAQReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("could not create reader: %+v", err)
	}

	n := 0
	for {
		_, err := r.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("could not read event: %+v", err)
			}
			break
		}
		n++
	}
	if n != 1 {
		t.Fatalf("invalid number of events: got=%d, want=1", n)
	}
}

// newMiniDAQStream returns an INIT record with an event header size hsize,
// followed by an EVT record header announcing a compressed blob of csize
// bytes and the n first bytes of that blob.
func newMiniDAQStream(t *testing.T, hsize, csize uint32, n int) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	_, err := NewMiniDAQWriter(buf, InitRecord{EventHeaderSize: hsize})
	if err != nil {
		t.Fatalf("could not create writer: %+v", err)
	}
	hdr := make([]byte, hsize)
	hdr[0] = codeEvent
	binary.LittleEndian.PutUint32(hdr[hsize-4:], csize)
	buf.Write(hdr)
	buf.Write(make([]byte, n))
	return buf.Bytes()
}

func TestMiniDAQEndOfStream(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  []byte
	}{
		{
			name: "no-event",
			raw:  newMiniDAQStream(t, 18, 0, 0)[:initRecordSize],
		},
		{
			name: "blob-beyond-end",
			raw:  newMiniDAQStream(t, 18, 1000, 10),
		},
		{
			name: "blob-reaching-end",
			raw:  newMiniDAQStream(t, 18, 10, 10),
		},
		{
			name: "short-event-header",
			raw:  newMiniDAQStream(t, 32, 10, 0)[:initRecordSize+20],
		},
		{
			name: "one-trailing-byte",
			raw:  append(newMiniDAQStream(t, 18, 0, 0)[:initRecordSize], 0xff),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewMiniDAQReader(bytes.NewReader(tc.raw), int64(len(tc.raw)))
			if err != nil {
				t.Fatalf("could not create reader: %+v", err)
			}
			p, err := r.Next()
			if !errors.Is(err, io.EOF) {
				t.Fatalf("invalid error: got=%+v, want=%+v", err, io.EOF)
			}
			if p != nil {
				t.Fatalf("unexpected payload: %x", p)
			}
		})
	}
}

func TestMiniDAQErrors(t *testing.T) {
	init := newMiniDAQStream(t, 18, 0, 0)[:initRecordSize]

	for _, tc := range []struct {
		name string
		raw  []byte
		opts []Option
		want string
	}{
		{
			name: "short-init",
			raw:  init[:initRecordSize-1],
			want: "rawio: could not read INIT record (size=33): unexpected EOF",
		},
		{
			name: "init-size-beyond-end",
			raw: func() []byte {
				raw := append([]byte{}, init...)
				binary.LittleEndian.PutUint32(raw[1:], 100)
				return raw
			}(),
			want: "rawio: could not skip INIT record (record=100, size=34): unexpected EOF",
		},
		{
			name: "invalid-init-size",
			raw: func() []byte {
				raw := append([]byte{}, init...)
				binary.LittleEndian.PutUint32(raw[1:], 20)
				return raw
			}(),
			want: "rawio: invalid INIT record size (got=20, min=34)",
		},
		{
			name: "invalid-evt-header-size",
			raw: func() []byte {
				raw := append([]byte{}, init...)
				binary.LittleEndian.PutUint32(raw[30:], 17)
				return raw
			}(),
			want: "rawio: invalid EVT header size (got=17, min=18)",
		},
		{
			name: "invalid-offset",
			raw:  init,
			opts: []Option{WithPayloadOffset(-1)},
			want: "rawio: invalid payload offset -1",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewMiniDAQReader(bytes.NewReader(tc.raw), int64(len(tc.raw)), tc.opts...)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got, want := err.Error(), tc.want; got != want {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
			}
		})
	}
}

func TestMiniDAQBlobErrors(t *testing.T) {
	t.Run("corrupted-blob", func(t *testing.T) {
		raw := newMiniDAQStream(t, 18, 10, 20)
		r, err := NewMiniDAQReader(bytes.NewReader(raw), int64(len(raw)))
		if err != nil {
			t.Fatalf("could not create reader: %+v", err)
		}
		_, err = r.Next()
		if err == nil || errors.Is(err, io.EOF) {
			t.Fatalf("expected a decompression error, got=%+v", err)
		}
	})

	t.Run("blob-too-small", func(t *testing.T) {
		buf := new(bytes.Buffer)
		w, err := NewMiniDAQWriter(buf, InitRecord{}, WithPayloadOffset(8))
		if err != nil {
			t.Fatalf("could not create writer: %+v", err)
		}
		_, err = w.Write([]byte("01234567"))
		if err != nil {
			t.Fatalf("could not write event: %+v", err)
		}
		err = w.Close()
		if err != nil {
			t.Fatalf("could not close writer: %+v", err)
		}

		raw := buf.Bytes()
		r, err := NewMiniDAQReader(bytes.NewReader(raw), int64(len(raw)), WithPayloadOffset(17))
		if err != nil {
			t.Fatalf("could not create reader: %+v", err)
		}
		_, err = r.Next()
		if err == nil {
			t.Fatalf("expected an error")
		}
		if !strings.Contains(err.Error(), "too small for payload offset 0x11 (size=16)") {
			t.Fatalf("invalid error: %+v", err)
		}
	})
}

func TestMiniDAQWriterErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		init InitRecord
		opts []Option
		want string
	}{
		{
			name: "init-size",
			init: InitRecord{Size: 20},
			want: "rawio: invalid INIT record size (got=20, min=34)",
		},
		{
			name: "evt-header-size",
			init: InitRecord{EventHeaderSize: 4},
			want: "rawio: invalid EVT header size (got=4, min=18)",
		},
		{
			name: "offset",
			opts: []Option{WithPayloadOffset(-2)},
			want: "rawio: invalid payload offset -2",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewMiniDAQWriter(io.Discard, tc.init, tc.opts...)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got, want := err.Error(), tc.want; got != want {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
			}
		})
	}
}
