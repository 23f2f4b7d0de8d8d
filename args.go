// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

//go:generate go run ./cmd/duorpc-genargs -out args_gen.go -max 10

import (
	"reflect"

	"github.com/luxfi/duorpc/wire"
)

// Args is a typed argument list. Implementations are the generated tuples
// Args0..Args10 and Raw.
type Args interface {
	MarshalArgs(enc *Encoder) error
	// UnmarshalArgs returns a fresh value decoded from dec; the receiver is
	// only used for its type.
	UnmarshalArgs(dec *Decoder) (Args, error)
	ArgTypes() []reflect.Type
}

// Args0 is the empty argument list.
type Args0 struct{}

// Pack0 builds an Args0.
func Pack0() Args0 { return Args0{} }

func (Args0) MarshalArgs(*Encoder) error { return nil }

func (Args0) UnmarshalArgs(*Decoder) (Args, error) { return Args0{}, nil }

func (Args0) ArgTypes() []reflect.Type { return nil }

// Raw carries a payload whose layout the caller writes by hand, for
// procedures with many arguments or a layout that varies per message.
type Raw struct {
	Payload []byte
}

// BuildRaw runs fill against a fresh writer and wraps the result.
func BuildRaw(fill func(w *wire.Writer) error) (Raw, error) {
	w := wire.NewWriter(nil)
	if err := fill(w); err != nil {
		return Raw{}, err
	}
	return Raw{Payload: w.Bytes()}, nil
}

// Reader returns a cursor over the payload.
func (r Raw) Reader() *wire.Reader { return wire.NewReader(r.Payload) }

func (r Raw) MarshalArgs(enc *Encoder) error {
	enc.w.Raw(r.Payload)
	return nil
}

func (Raw) UnmarshalArgs(dec *Decoder) (Args, error) {
	return Raw{Payload: append([]byte{}, dec.r.Rest()...)}, nil
}

func (Raw) ArgTypes() []reflect.Type { return nil }
