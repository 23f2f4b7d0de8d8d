// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Header layout (little-endian):
//
//	0        flags        u8
//	1        selector     u16, or [16]byte when FlagGuid is set
//	3 | 17   payload size i32
//	7 | 21   request key  i64, when a keyed flag is set
//	+8       response key i64, when FlagRequestResponseWithAcknowledgeRequest is set
const (
	MinCompactHeaderLen = 1 + 2 + 4
	MaxCompactHeaderLen = MinCompactHeaderLen + 8 + 8
	MinStableHeaderLen  = 1 + 16 + 4
	MaxStableHeaderLen  = MinStableHeaderLen + 8 + 8
)

var (
	ErrShortMessage    = errors.New("wire: short message")
	ErrPayloadOverrun  = errors.New("wire: declared payload exceeds buffer")
	ErrNegativePayload = errors.New("wire: negative payload size")
	ErrPayloadTooLarge = errors.New("wire: payload too large")
	ErrNoRequestKey    = errors.New("wire: header carries no request key")
)

// Overhead is the decoded message header.
type Overhead struct {
	Flags       Flags
	Selector    Selector
	PayloadSize int32
	RequestKey  int64
	ResponseKey int64
}

// HeaderLen returns the header length implied by flags.
func HeaderLen(f Flags) int {
	n := MinCompactHeaderLen
	if f&FlagGuid != 0 {
		n = MinStableHeaderLen
	}
	if f.HasRequestKey() {
		n += 8
	}
	if f.HasResponseKey() {
		n += 8
	}
	return n
}

// normalized returns the flags with FlagGuid agreeing with the selector kind.
func (o Overhead) normalized() Flags {
	if o.Selector.IsStable() {
		return o.Flags | FlagGuid
	}
	return o.Flags &^ FlagGuid
}

// Len returns the encoded header length.
func (o Overhead) Len() int { return HeaderLen(o.normalized()) }

// FrameLen returns header length plus declared payload size.
func (o Overhead) FrameLen() int { return o.Len() + int(o.PayloadSize) }

// AppendBinary appends the encoded header to dst.
func (o Overhead) AppendBinary(dst []byte) []byte {
	f := o.normalized()
	w := NewWriter(dst)
	w.Uint8(uint8(f))
	if f&FlagGuid != 0 {
		w.UUID(o.Selector.GUID())
	} else {
		w.Uint16(o.Selector.ID())
	}
	w.Int32(o.PayloadSize)
	if f.HasRequestKey() {
		w.Int64(o.RequestKey)
	}
	if f.HasResponseKey() {
		w.Int64(o.ResponseKey)
	}
	return w.Bytes()
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (o Overhead) MarshalBinary() ([]byte, error) {
	return o.AppendBinary(make([]byte, 0, o.Len())), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (o *Overhead) UnmarshalBinary(b []byte) error {
	h, err := DecodeOverhead(b)
	if err != nil {
		return err
	}
	*o = h
	return nil
}

// DecodeOverhead decodes a header from the start of b. The flags byte is read
// first; b must then hold at least HeaderLen(flags) bytes.
func DecodeOverhead(b []byte) (Overhead, error) {
	var o Overhead
	if len(b) < 1 {
		return o, ErrShortMessage
	}
	f := Flags(b[0])
	if len(b) < HeaderLen(f) {
		return o, fmt.Errorf("%w: have %d bytes, header needs %d", ErrShortMessage, len(b), HeaderLen(f))
	}
	r := NewReader(b[1:])
	o.Flags = f
	// Lengths were checked above, so the reads below cannot fail.
	if f&FlagGuid != 0 {
		id, _ := r.UUID()
		o.Selector = Stable(id)
	} else {
		id, _ := r.Uint16()
		o.Selector = Compact(id)
	}
	o.PayloadSize, _ = r.Int32()
	if f.HasRequestKey() {
		o.RequestKey, _ = r.Int64()
	}
	if f.HasResponseKey() {
		o.ResponseKey, _ = r.Int64()
	}
	if o.PayloadSize < 0 {
		return o, ErrNegativePayload
	}
	return o, nil
}

// SplitFrame decodes the header of a complete frame and returns its payload.
// The declared payload must fit in b; trailing bytes are ignored.
func SplitFrame(b []byte) (Overhead, []byte, error) {
	o, err := DecodeOverhead(b)
	if err != nil {
		return o, nil, err
	}
	hl := o.Len()
	if int64(hl)+int64(o.PayloadSize) > int64(len(b)) {
		return o, nil, fmt.Errorf("%w: declared %d, have %d", ErrPayloadOverrun, o.PayloadSize, len(b)-hl)
	}
	return o, b[hl : hl+int(o.PayloadSize)], nil
}

// Frame returns header + payload as a single buffer, filling PayloadSize.
func Frame(o Overhead, payload []byte) ([]byte, error) {
	if len(payload) > math.MaxInt32 {
		return nil, ErrPayloadTooLarge
	}
	o.PayloadSize = int32(len(payload))
	buf := make([]byte, 0, o.Len()+len(payload))
	buf = o.AppendBinary(buf)
	return append(buf, payload...), nil
}

// RequestKeyOffset returns the offset of the request key within a header
// carrying the given flags.
func RequestKeyOffset(f Flags) (int, error) {
	if !f.HasRequestKey() {
		return 0, ErrNoRequestKey
	}
	if f&FlagGuid != 0 {
		return MinStableHeaderLen, nil
	}
	return MinCompactHeaderLen, nil
}

// PutRequestKey rewrites the request key of an encoded frame in place.
func PutRequestKey(frame []byte, key int64) error {
	if len(frame) < 1 {
		return ErrShortMessage
	}
	off, err := RequestKeyOffset(Flags(frame[0]))
	if err != nil {
		return err
	}
	if len(frame) < off+8 {
		return ErrShortMessage
	}
	binary.LittleEndian.PutUint64(frame[off:off+8], uint64(key))
	return nil
}
