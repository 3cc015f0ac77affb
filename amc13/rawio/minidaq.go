// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// DefaultPayloadOffset is the offset of the AMC13 frame inside the
// decompressed blob of a MiniDAQ EVT record.
// It was determined empirically on captured runs.
const DefaultPayloadOffset = 0x1c81

const (
	initRecordSize = 34 // smallest INIT record
	evtRecordSize  = 18 // smallest EVT record header
	eorRecordSize  = 14

	codeInit  = 0x01
	codeEvent = 0x02
	codeEnd   = 0x03
)

// InitRecord is the leading record of a MiniDAQ file.
type InitRecord struct {
	Code            uint8
	Size            uint32 // size of the whole INIT record in bytes
	Protocol        uint8
	Run             uint32
	InitHeaderSize  uint32
	EventHeaderSize uint32 // size of the header of every EVT record in bytes
}

// EventRecord describes an EVT record of a MiniDAQ file.
type EventRecord struct {
	Pos          int64 // offset of the record in the stream
	Code         uint8
	Size         uint32
	Protocol     uint8
	Run          uint32
	Event        uint32
	Compressed   int // size of the compressed blob
	Decompressed int // size of the decompressed blob
}

// MiniDAQReader reads frames from a MiniDAQ stream.
type MiniDAQReader struct {
	cfg  config
	r    io.ReaderAt
	size int64
	pos  int64

	init InitRecord
	evt  EventRecord
	hdr  []byte
}

// NewMiniDAQReader returns a reader of MiniDAQ records from the first size
// bytes of r. The INIT record is read immediately.
func NewMiniDAQReader(r io.ReaderAt, size int64, opts ...Option) (*MiniDAQReader, error) {
	rr := &MiniDAQReader{
		cfg:  newConfig(opts),
		r:    r,
		size: size,
	}
	if rr.cfg.offset < 0 {
		return nil, fmt.Errorf("rawio: invalid payload offset %d", rr.cfg.offset)
	}

	err := rr.readInit()
	if err != nil {
		return nil, err
	}
	return rr, nil
}

func (rr *MiniDAQReader) readInit() error {
	var buf [initRecordSize]byte
	if rr.size < initRecordSize {
		return fmt.Errorf(
			"rawio: could not read INIT record (size=%d): %w",
			rr.size, io.ErrUnexpectedEOF,
		)
	}
	err := readAt(rr.r, buf[:], 0)
	if err != nil {
		return fmt.Errorf("rawio: could not read INIT record: %w", err)
	}

	le := binary.LittleEndian
	rr.init = InitRecord{
		Code:            buf[0],
		Size:            le.Uint32(buf[1:]),
		Protocol:        buf[5],
		Run:             le.Uint32(buf[22:]),
		InitHeaderSize:  le.Uint32(buf[26:]),
		EventHeaderSize: le.Uint32(buf[30:]),
	}

	if rr.init.Size < initRecordSize {
		return fmt.Errorf("rawio: invalid INIT record size (got=%d, min=%d)", rr.init.Size, initRecordSize)
	}
	if rr.init.EventHeaderSize < evtRecordSize {
		return fmt.Errorf("rawio: invalid EVT header size (got=%d, min=%d)", rr.init.EventHeaderSize, evtRecordSize)
	}
	if int64(rr.init.Size) > rr.size {
		return fmt.Errorf(
			"rawio: could not skip INIT record (record=%d, size=%d): %w",
			rr.init.Size, rr.size, io.ErrUnexpectedEOF,
		)
	}
	rr.pos = int64(rr.init.Size)
	rr.hdr = make([]byte, rr.init.EventHeaderSize)

	if rr.cfg.verbose {
		rr.cfg.msg.Printf(
			"init: code=0x%02x size=%d protocol=0x%02x run=%d init-header=%d evt-header=%d",
			rr.init.Code, rr.init.Size, rr.init.Protocol, rr.init.Run,
			rr.init.InitHeaderSize, rr.init.EventHeaderSize,
		)
	}
	return nil
}

// Init returns the INIT record of the stream.
func (rr *MiniDAQReader) Init() InitRecord { return rr.init }

// Event returns the header of the last EVT record read.
func (rr *MiniDAQReader) Event() EventRecord { return rr.evt }

// Pos returns the offset of the next record.
func (rr *MiniDAQReader) Pos() int64 { return rr.pos }

// Next returns the frame payload of the next EVT record.
//
// Next returns io.EOF when the stream does not hold a complete EVT record
// header anymore, or when the compressed blob reaches the end of the stream.
func (rr *MiniDAQReader) Next() ([]byte, error) {
	if rr.pos >= rr.size-1 || rr.pos+int64(len(rr.hdr)) > rr.size {
		rr.pos = rr.size
		return nil, io.EOF
	}

	beg := rr.pos
	err := readAt(rr.r, rr.hdr, beg)
	if err != nil {
		return nil, fmt.Errorf("rawio: could not read EVT record header at byte %d: %w", beg, err)
	}

	var (
		le  = binary.LittleEndian
		hdr = rr.hdr
		n   = len(hdr)
	)
	evt := EventRecord{
		Pos:        beg,
		Code:       hdr[0],
		Size:       le.Uint32(hdr[1:]),
		Protocol:   hdr[5],
		Run:        le.Uint32(hdr[6:]),
		Event:      le.Uint32(hdr[10:]),
		Compressed: int(le.Uint32(hdr[n-4:])),
	}

	blob := beg + int64(n)
	if blob+int64(evt.Compressed) >= rr.size {
		if rr.cfg.verbose {
			rr.cfg.msg.Printf("evt: start=0x%08x compressed=%d: end of stream", beg, evt.Compressed)
		}
		rr.pos = rr.size
		return nil, io.EOF
	}

	zbuf := make([]byte, evt.Compressed)
	err = readAt(rr.r, zbuf, blob)
	if err != nil {
		return nil, fmt.Errorf("rawio: could not read EVT blob at byte %d: %w", blob, err)
	}
	rr.pos = blob + int64(evt.Compressed)

	raw, err := inflate(zbuf)
	if err != nil {
		return nil, fmt.Errorf("rawio: could not decompress EVT blob at byte %d: %w", blob, err)
	}
	evt.Decompressed = len(raw)
	rr.evt = evt

	if rr.cfg.verbose {
		rr.cfg.msg.Printf(
			"evt: start=0x%08x code=0x%02x size=%d protocol=0x%02x run=%d event=%d compressed=%d decompressed=%d",
			evt.Pos, evt.Code, evt.Size, evt.Protocol, evt.Run, evt.Event,
			evt.Compressed, evt.Decompressed,
		)
	}

	if len(raw) < rr.cfg.offset {
		return nil, fmt.Errorf(
			"rawio: EVT blob at byte %d too small for payload offset 0x%x (size=%d)",
			blob, rr.cfg.offset, len(raw),
		)
	}
	return raw[rr.cfg.offset:], nil
}

func inflate(p []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	return raw, zr.Close()
}

// MiniDAQWriter writes frames as MiniDAQ EVT records.
type MiniDAQWriter struct {
	cfg  config
	w    io.Writer
	init InitRecord
	evt  uint32
	err  error

	zbuf bytes.Buffer
	zw   *zlib.Writer
}

// NewMiniDAQWriter returns a writer of MiniDAQ records to w and writes
// the INIT record init.
// Zero sizes in init are replaced by the smallest valid ones.
func NewMiniDAQWriter(w io.Writer, init InitRecord, opts ...Option) (*MiniDAQWriter, error) {
	if init.Code == 0 {
		init.Code = codeInit
	}
	if init.Size == 0 {
		init.Size = initRecordSize
	}
	if init.EventHeaderSize == 0 {
		init.EventHeaderSize = evtRecordSize
	}
	switch {
	case init.Size < initRecordSize:
		return nil, fmt.Errorf("rawio: invalid INIT record size (got=%d, min=%d)", init.Size, initRecordSize)
	case init.EventHeaderSize < evtRecordSize:
		return nil, fmt.Errorf("rawio: invalid EVT header size (got=%d, min=%d)", init.EventHeaderSize, evtRecordSize)
	}

	mw := &MiniDAQWriter{
		cfg:  newConfig(opts),
		w:    w,
		init: init,
	}
	if mw.cfg.offset < 0 {
		return nil, fmt.Errorf("rawio: invalid payload offset %d", mw.cfg.offset)
	}
	mw.zw = zlib.NewWriter(&mw.zbuf)

	le := binary.LittleEndian
	buf := make([]byte, init.Size)
	buf[0] = init.Code
	le.PutUint32(buf[1:], init.Size)
	buf[5] = init.Protocol
	le.PutUint32(buf[22:], init.Run)
	le.PutUint32(buf[26:], init.InitHeaderSize)
	le.PutUint32(buf[30:], init.EventHeaderSize)

	_, err := w.Write(buf)
	if err != nil {
		return nil, fmt.Errorf("rawio: could not write INIT record: %w", err)
	}
	return mw, nil
}

// Write writes the frame payload p as one EVT record.
func (mw *MiniDAQWriter) Write(p []byte) (int, error) {
	if mw.err != nil {
		return 0, mw.err
	}

	mw.zbuf.Reset()
	mw.zw.Reset(&mw.zbuf)
	_, mw.err = mw.zw.Write(make([]byte, mw.cfg.offset))
	if mw.err == nil {
		_, mw.err = mw.zw.Write(p)
	}
	if mw.err == nil {
		mw.err = mw.zw.Close()
	}
	if mw.err != nil {
		mw.err = fmt.Errorf("rawio: could not compress EVT blob: %w", mw.err)
		return 0, mw.err
	}

	var (
		le  = binary.LittleEndian
		n   = int(mw.init.EventHeaderSize)
		hdr = make([]byte, n)
		c   = mw.zbuf.Len()
	)
	hdr[0] = codeEvent
	le.PutUint32(hdr[1:], uint32(n+c))
	hdr[5] = mw.init.Protocol
	le.PutUint32(hdr[6:], mw.init.Run)
	le.PutUint32(hdr[10:], mw.evt)
	le.PutUint32(hdr[n-4:], uint32(c))

	_, mw.err = mw.w.Write(hdr)
	if mw.err != nil {
		mw.err = fmt.Errorf("rawio: could not write EVT record header: %w", mw.err)
		return 0, mw.err
	}
	_, mw.err = mw.w.Write(mw.zbuf.Bytes())
	if mw.err != nil {
		mw.err = fmt.Errorf("rawio: could not write EVT blob: %w", mw.err)
		return 0, mw.err
	}
	mw.evt++
	return len(p), nil
}

// Close writes the end-of-run record.
// Close does not close the underlying writer.
func (mw *MiniDAQWriter) Close() error {
	if mw.err != nil {
		return mw.err
	}

	var buf [eorRecordSize]byte
	le := binary.LittleEndian
	buf[0] = codeEnd
	le.PutUint32(buf[1:], eorRecordSize)
	buf[5] = mw.init.Protocol
	le.PutUint32(buf[6:], mw.init.Run)
	le.PutUint32(buf[10:], mw.evt)

	_, err := mw.w.Write(buf[:])
	if err != nil {
		mw.err = fmt.Errorf("rawio: could not write end-of-run record: %w", err)
		return mw.err
	}
	mw.err = errClosed
	return nil
}
