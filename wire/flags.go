// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import "strings"

// Flags describes how a message is routed and which optional header fields
// follow the selector.
type Flags uint8

const (
	FlagNone    Flags = 0
	FlagRequest Flags = 1 << (iota - 1)
	FlagRunOriginalMethodOnRequest
	FlagRequestResponse
	FlagAcknowledgeRequest
	FlagAcknowledgeResponse
	FlagRequestResponseWithAcknowledgeRequest
	FlagHighSpeed
	FlagGuid
)

// keyed lists every flag that carries a request key.
const keyed = FlagRequest | FlagRequestResponse | FlagAcknowledgeRequest |
	FlagAcknowledgeResponse | FlagRequestResponseWithAcknowledgeRequest

// replies lists the flags that answer an earlier request.
const replies = FlagRequestResponse | FlagAcknowledgeResponse |
	FlagRequestResponseWithAcknowledgeRequest

// Has reports whether every bit of x is set in f.
func (f Flags) Has(x Flags) bool { return x != 0 && f&x == x }

// HasRequestKey reports whether a header with these flags carries a request key.
func (f Flags) HasRequestKey() bool { return f&keyed != 0 }

// HasResponseKey reports whether a header with these flags carries a response key.
func (f Flags) HasResponseKey() bool { return f&FlagRequestResponseWithAcknowledgeRequest != 0 }

// IsReply reports whether the message answers a pending request.
func (f Flags) IsReply() bool { return f&replies != 0 }

var flagNames = []struct {
	f    Flags
	name string
}{
	{FlagRequest, "Request"},
	{FlagRunOriginalMethodOnRequest, "RunOriginalMethodOnRequest"},
	{FlagRequestResponse, "RequestResponse"},
	{FlagAcknowledgeRequest, "AcknowledgeRequest"},
	{FlagAcknowledgeResponse, "AcknowledgeResponse"},
	{FlagRequestResponseWithAcknowledgeRequest, "RequestResponseWithAcknowledgeRequest"},
	{FlagHighSpeed, "HighSpeed"},
	{FlagGuid, "Guid"},
}

func (f Flags) String() string {
	if f == FlagNone {
		return "None"
	}
	parts := make([]string, 0, 2)
	for _, n := range flagNames {
		if f&n.f != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
