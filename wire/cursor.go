// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// Reader is a bounds-checked little-endian cursor over a byte slice.
// A read past the end returns ErrShortMessage and leaves the cursor unchanged.
type Reader struct {
	b   []byte
	off int
}

// NewReader returns a Reader positioned at the start of b.
func NewReader(b []byte) *Reader { return &Reader{b: b} }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.b) - r.off }

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.off }

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, ErrShortMessage
	}
	p := r.b[r.off : r.off+n]
	r.off += n
	return p, nil
}

func (r *Reader) Uint8() (uint8, error) {
	p, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (r *Reader) Uint16() (uint16, error) {
	p, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

func (r *Reader) Uint32() (uint32, error) {
	p, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

func (r *Reader) Uint64() (uint64, error) {
	p, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

func (r *Reader) Float64() (float64, error) {
	v, err := r.Uint64()
	return math.Float64frombits(v), err
}

func (r *Reader) Bool() (bool, error) {
	v, err := r.Uint8()
	return v != 0, err
}

// UUID reads 16 raw bytes.
func (r *Reader) UUID() (uuid.UUID, error) {
	var id uuid.UUID
	p, err := r.take(len(id))
	if err != nil {
		return id, err
	}
	copy(id[:], p)
	return id, nil
}

// Next returns the next n bytes without copying.
func (r *Reader) Next(n int) ([]byte, error) { return r.take(n) }

// Bytes reads a u32 length followed by that many bytes. The result aliases
// the underlying buffer.
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(r.Len()) {
		r.off -= 4
		return nil, ErrShortMessage
	}
	return r.take(int(n))
}

// String reads a length-prefixed UTF-8 string.
func (r *Reader) String() (string, error) {
	p, err := r.Bytes()
	return string(p), err
}

// Rest returns every unread byte.
func (r *Reader) Rest() []byte {
	p := r.b[r.off:]
	r.off = len(r.b)
	return p
}

// Writer appends little-endian values to a growing buffer.
type Writer struct {
	b []byte
}

// NewWriter returns a Writer that appends to buf.
func NewWriter(buf []byte) *Writer { return &Writer{b: buf} }

// Bytes returns the written buffer.
func (w *Writer) Bytes() []byte { return w.b }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.b) }

func (w *Writer) Uint8(v uint8) { w.b = append(w.b, v) }

func (w *Writer) Uint16(v uint16) { w.b = binary.LittleEndian.AppendUint16(w.b, v) }

func (w *Writer) Uint32(v uint32) { w.b = binary.LittleEndian.AppendUint32(w.b, v) }

func (w *Writer) Int32(v int32) { w.Uint32(uint32(v)) }

func (w *Writer) Uint64(v uint64) { w.b = binary.LittleEndian.AppendUint64(w.b, v) }

func (w *Writer) Int64(v int64) { w.Uint64(uint64(v)) }

func (w *Writer) Float64(v float64) { w.Uint64(math.Float64bits(v)) }

func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
		return
	}
	w.Uint8(0)
}

func (w *Writer) UUID(id uuid.UUID) { w.b = append(w.b, id[:]...) }

// Raw appends p without a length prefix.
func (w *Writer) Raw(p []byte) { w.b = append(w.b, p...) }

// PutBytes appends a u32 length followed by p.
func (w *Writer) PutBytes(p []byte) error {
	if uint64(len(p)) > math.MaxUint32 {
		return ErrPayloadTooLarge
	}
	w.Uint32(uint32(len(p)))
	w.b = append(w.b, p...)
	return nil
}

// PutString appends a length-prefixed string.
func (w *Writer) PutString(s string) error {
	if uint64(len(s)) > math.MaxUint32 {
		return ErrPayloadTooLarge
	}
	w.Uint32(uint32(len(s)))
	w.b = append(w.b, s...)
	return nil
}
