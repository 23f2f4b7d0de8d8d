// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import "errors"

var (
	// ErrReadFailed reports a payload that could not be decoded into the
	// invoker's argument types.
	ErrReadFailed = errors.New("duorpc: read failed")
	// ErrWriteFailed reports arguments that could not be serialized.
	ErrWriteFailed = errors.New("duorpc: write failed")

	ErrClosed              = errors.New("duorpc: dispatcher closed")
	ErrNilConn             = errors.New("duorpc: nil connection")
	ErrNotVerified         = errors.New("duorpc: high-speed connection not verified")
	ErrConnClosed          = errors.New("duorpc: connection closed")
	ErrNotRequest          = errors.New("duorpc: message carries no request key")
	ErrNoAcknowledgement   = errors.New("duorpc: message did not request an acknowledgement")
	ErrAlreadyAcknowledged = errors.New("duorpc: message already acknowledged")
	ErrUnknownTransport    = errors.New("duorpc: unknown transport")
	ErrHandshake           = errors.New("duorpc: high-speed handshake failed")
)
