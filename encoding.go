// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"

	"github.com/luxfi/duorpc/wire"
)

// Encoder writes one argument after another into a payload. Each argument is
// a u32 length followed by its bytes.
type Encoder struct {
	w     *wire.Writer
	codec Codec
	n     int
}

func newEncoder(codec Codec, buf []byte) *Encoder {
	if codec == nil {
		codec = defaultCodec
	}
	return &Encoder{w: wire.NewWriter(buf), codec: codec}
}

// Writer exposes the underlying cursor for hand-written layouts.
func (e *Encoder) Writer() *wire.Writer { return e.w }

// Bytes returns the encoded payload.
func (e *Encoder) Bytes() []byte { return e.w.Bytes() }

// Decoder is the read side of Encoder.
type Decoder struct {
	r     *wire.Reader
	codec Codec
	n     int
}

func newDecoder(codec Codec, payload []byte) *Decoder {
	if codec == nil {
		codec = defaultCodec
	}
	return &Decoder{r: wire.NewReader(payload), codec: codec}
}

// Reader exposes the underlying cursor for hand-written layouts.
func (d *Decoder) Reader() *wire.Reader { return d.r }

func typeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

func encodeArg[T any](e *Encoder, v T) error {
	e.n++
	var (
		b   []byte
		err error
	)
	switch x := any(v).(type) {
	case []byte:
		b = x
	case proto.Message:
		b, err = proto.Marshal(x)
	default:
		b, err = e.codec.Encode(v)
	}
	if err != nil {
		return fmt.Errorf("argument %d (%s): %w", e.n, typeOf[T](), err)
	}
	if err := e.w.PutBytes(b); err != nil {
		return fmt.Errorf("argument %d (%s): %w", e.n, typeOf[T](), err)
	}
	return nil
}

func decodeArg[T any](d *Decoder, dst *T) error {
	d.n++
	b, err := d.r.Bytes()
	if err != nil {
		return fmt.Errorf("argument %d (%s): %w", d.n, typeOf[T](), err)
	}
	if p, ok := any(dst).(*[]byte); ok {
		*p = append([]byte{}, b...)
		return nil
	}
	if m, ok := any(*dst).(proto.Message); ok {
		msg := m.ProtoReflect().Type().New().Interface()
		if err := proto.Unmarshal(b, msg); err != nil {
			return fmt.Errorf("argument %d (%s): %w", d.n, typeOf[T](), err)
		}
		*dst = msg.(T)
		return nil
	}
	if err := d.codec.Decode(b, dst); err != nil {
		return fmt.Errorf("argument %d (%s): %w", d.n, typeOf[T](), err)
	}
	return nil
}
