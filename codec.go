// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
)

// Codec serializes argument values that are neither []byte nor protobuf
// messages.
type Codec interface {
	Name() string
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// CBORCodec encodes with canonical CBOR, so equal values always produce equal
// bytes on every peer.
type CBORCodec struct{}

var (
	cborEnc, _ = cbor.CanonicalEncOptions().EncMode()
	cborDec, _ = cbor.DecOptions{}.DecMode()
)

func (CBORCodec) Name() string { return "cbor" }

func (CBORCodec) Encode(v any) ([]byte, error) { return cborEnc.Marshal(v) }

func (CBORCodec) Decode(data []byte, v any) error { return cborDec.Unmarshal(data, v) }

// JSONCodec is a JSON-based codec
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// BinaryCodec passes bytes through unchanged and falls back to JSON for
// anything else.
type BinaryCodec struct{}

func (BinaryCodec) Name() string { return "binary" }

func (BinaryCodec) Encode(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	if b, ok := v.(*[]byte); ok {
		return *b, nil
	}
	return json.Marshal(v)
}

func (BinaryCodec) Decode(data []byte, v any) error {
	if b, ok := v.(*[]byte); ok {
		*b = data
		return nil
	}
	return json.Unmarshal(data, v)
}

// defaultCodec is used when no codec is specified
var defaultCodec Codec = CBORCodec{}

// CodecByName resolves the names used in configuration files.
func CodecByName(name string) (Codec, bool) {
	switch name {
	case "", "cbor":
		return CBORCodec{}, true
	case "json":
		return JSONCodec{}, true
	case "binary":
		return BinaryCodec{}, true
	}
	return nil, false
}
