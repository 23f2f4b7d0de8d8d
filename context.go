// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"sync/atomic"
	"time"

	"github.com/luxfi/duorpc/wire"
)

// Context describes one received message: who sent it, over which channel,
// and with which header.
type Context struct {
	Conn Conn
	// Primary is the primary session behind Conn. It equals Conn for
	// messages that arrived on the primary transport.
	Primary   Conn
	Header    wire.Overhead
	HighSpeed bool
	Received  time.Time

	d     *Dispatcher
	acked atomic.Bool
}

func newContext(d *Dispatcher, conn Conn, h wire.Overhead, received time.Time) *Context {
	ctx := &Context{
		Conn:      conn,
		Primary:   conn,
		Header:    h,
		HighSpeed: conn.Kind() == KindHighSpeed,
		Received:  received,
		d:         d,
	}
	if b, ok := conn.(boundConn); ok && b.Primary() != nil {
		ctx.Primary = b.Primary()
	}
	return ctx
}

// Dispatcher returns the dispatcher that delivered the message.
func (c *Context) Dispatcher() *Dispatcher { return c.d }

// WantsAck reports whether the sender asked for an acknowledgement.
func (c *Context) WantsAck() bool {
	return c.Header.Flags&(wire.FlagAcknowledgeRequest|wire.FlagRequestResponseWithAcknowledgeRequest) != 0
}

// Acknowledged reports whether an acknowledgement has been sent.
func (c *Context) Acknowledged() bool { return c.acked.Load() }

// Acknowledge sends the acknowledgement now instead of waiting for the
// handler result. A message is acknowledged at most once.
func (c *Context) Acknowledge(code Status) error {
	if !c.WantsAck() {
		return ErrNoAcknowledgement
	}
	if !c.acked.CompareAndSwap(false, true) {
		return ErrAlreadyAcknowledged
	}
	return c.d.sendAck(c, code)
}

// ackKey is the key the sender is waiting on: the response key of a
// response-with-ack, otherwise the request key.
func (c *Context) ackKey() int64 {
	if c.Header.Flags.HasResponseKey() {
		return c.Header.ResponseKey
	}
	return c.Header.RequestKey
}
