// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"net"

	"github.com/lithammer/shortuuid/v4"
)

// ConnKind tells primary sessions apart from high-speed sockets.
type ConnKind uint8

const (
	KindPrimary ConnKind = iota
	KindHighSpeed
)

func (k ConnKind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindHighSpeed:
		return "highspeed"
	default:
		return "unknown"
	}
}

// Conn is one peer session. Send writes a complete frame; implementations
// must be safe for concurrent use.
type Conn interface {
	ID() string
	Kind() ConnKind
	RemoteAddr() net.Addr
	Send(frame []byte) error
	Close() error
}

// boundConn is implemented by high-speed sockets to name the primary session
// they were opened for.
type boundConn interface {
	Primary() Conn
}

// Hooks observe connection lifecycle in transport adapters.
type Hooks struct {
	OnOpen  func(Conn)
	OnClose func(Conn)
}

// Opened invokes OnOpen if set. Transport adapters call it once per session.
func (h Hooks) Opened(c Conn) {
	if h.OnOpen != nil {
		h.OnOpen(c)
	}
}

// Closed invokes OnClose if set.
func (h Hooks) Closed(c Conn) {
	if h.OnClose != nil {
		h.OnClose(c)
	}
}

// NewConnID returns a short random connection id.
func NewConnID() string { return shortuuid.New() }

// hostOf returns the host part of addr, or its string form if it has no port.
func hostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
