// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/duorpc/stream"
	"github.com/luxfi/duorpc/wire"
)

const (
	socketReadBuffer   = 64 * 1024
	socketWriteTimeout = 30 * time.Second
)

// socketConn is one raw TCP high-speed socket. Frames read from it are
// reassembled and handed to the dispatcher; until the handshake verifies it,
// only handshake selectors get through and Send is refused.
type socketConn struct {
	id      string
	nc      net.Conn
	primary Conn
	d       *Dispatcher
	log     *zap.Logger
	reasm   *stream.Reassembler
	onClose func(*socketConn)

	writeMu   sync.Mutex
	verified  atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	opened    time.Time
}

func newSocketConn(nc net.Conn, primary Conn, d *Dispatcher, maxMessageSize int, onClose func(*socketConn)) *socketConn {
	c := &socketConn{
		id:      NewConnID(),
		nc:      nc,
		primary: primary,
		d:       d,
		onClose: onClose,
		done:    make(chan struct{}),
		opened:  time.Now(),
	}
	c.log = d.log.With(
		zap.String("conn", c.id),
		zap.String("primary", primary.ID()),
		zap.Stringer("remote", nc.RemoteAddr()),
	)
	c.reasm = stream.New(c.deliver, stream.WithMaxMessageSize(maxMessageSize))
	return c
}

func (c *socketConn) ID() string { return c.id }

func (c *socketConn) Kind() ConnKind { return KindHighSpeed }

func (c *socketConn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

func (c *socketConn) Primary() Conn { return c.primary }

func (c *socketConn) Verified() bool { return c.verified.Load() }

// markVerified flips the socket to verified. Only the first call succeeds.
func (c *socketConn) markVerified() bool { return c.verified.CompareAndSwap(false, true) }

// Done is closed when the socket shuts down.
func (c *socketConn) Done() <-chan struct{} { return c.done }

func (c *socketConn) Send(frame []byte) error {
	if !c.verified.Load() {
		return ErrNotVerified
	}
	return c.write(frame)
}

// write sends frame regardless of verification; the handshake uses it.
func (c *socketConn) write(frame []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.nc.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
	if _, err := c.nc.Write(frame); err != nil {
		go c.shutdown(err)
		return err
	}
	return nil
}

func (c *socketConn) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *socketConn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.nc.Close()
		close(c.done)
		switch {
		case cause == nil:
			c.log.Debug("high-speed socket closed")
		case isConnLoss(cause):
			c.log.Info("high-speed socket lost", zap.Error(cause))
		default:
			c.log.Warn("high-speed socket failed", zap.Error(cause))
		}
		if c.onClose != nil {
			c.onClose(c)
		}
	})
}

// readLoop runs until the socket closes.
func (c *socketConn) readLoop() {
	buf := make([]byte, socketReadBuffer)
	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			if ferr := c.reasm.Feed(buf[:n]); ferr != nil {
				c.shutdown(ferr)
				return
			}
		}
		if err != nil {
			c.shutdown(err)
			return
		}
		if n == 0 {
			c.shutdown(io.EOF)
			return
		}
	}
}

func (c *socketConn) deliver(frame []byte) {
	if !c.verified.Load() {
		h, err := wire.DecodeOverhead(frame)
		if err != nil || !isHandshakeSelector(h.Selector) {
			c.d.drop(dropUnverified)
			c.log.Debug("frame on unverified socket dropped", zap.Int("len", len(frame)))
			return
		}
	}
	c.d.Deliver(c, frame)
}

// isConnLoss reports errors that mean the peer went away rather than a
// protocol fault.
func isConnLoss(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"reset", "aborted", "broken pipe", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
