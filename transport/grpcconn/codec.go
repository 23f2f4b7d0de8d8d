// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package grpcconn

import "fmt"

// frameMsg is the stream message: one encoded duorpc frame.
type frameMsg struct {
	b []byte
}

// rawCodec moves frames through gRPC untouched, so no generated protobuf
// code is needed for the stream.
type rawCodec struct{}

func (rawCodec) Name() string { return "duorpc-raw" }

func (rawCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(*frameMsg)
	if !ok {
		return nil, fmt.Errorf("grpcconn: cannot marshal %T", v)
	}
	return m.b, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(*frameMsg)
	if !ok {
		return fmt.Errorf("grpcconn: cannot unmarshal into %T", v)
	}
	m.b = append([]byte(nil), data...)
	return nil
}
