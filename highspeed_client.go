// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

type clientSession struct {
	primary Conn
	sock    *socketConn
	ready   []func(hs Conn)
	timer   *time.Timer
}

// HighSpeedClient answers server invitations by dialing the side channel
// and proving it holds the primary session.
type HighSpeedClient struct {
	d      *Dispatcher
	cfg    HighSpeedConfig
	log    *zap.Logger
	hs     handshake
	dialer net.Dialer

	mu       sync.Mutex
	sessions map[string]*clientSession
	waiting  map[string][]func(hs Conn) // queued before any socket exists
	closed   bool
	wg       sync.WaitGroup
}

// NewHighSpeedClient defines the handshake procedures on d and attaches the
// client so high-speed invokers route through its verified sockets.
func NewHighSpeedClient(d *Dispatcher, cfg HighSpeedConfig) *HighSpeedClient {
	c := &HighSpeedClient{
		d:        d,
		cfg:      cfg.withDefaults(),
		log:      d.log.Named("highspeed"),
		hs:       defineHandshake(d),
		sessions: make(map[string]*clientSession),
		waiting:  make(map[string][]func(hs Conn)),
	}
	Handle(d, c.hs.open, FromServer, c.onOpen)
	Handle(d, c.hs.verify, FromServer, c.onToken)
	Handle(d, c.hs.confirm, FromServer, c.onConfirm)
	d.attachRouter(c)
	return c
}

// onOpen dials the advertised port on the primary peer's host. The
// acknowledgement follows the dial.
func (c *HighSpeedClient) onOpen(ctx *Context, args Args1[uint16]) Result {
	primary := ctx.Conn
	addr := net.JoinHostPort(hostOf(primary.RemoteAddr()), strconv.Itoa(int(args.V1)))
	return Defer(func() Status {
		dctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
		defer cancel()
		nc, err := c.dialer.DialContext(dctx, "tcp", addr)
		if err != nil {
			c.log.Warn("high-speed dial failed", zap.String("addr", addr), zap.Error(err))
			return Failure
		}
		if !c.attach(primary, nc) {
			_ = nc.Close()
			return Failure
		}
		return Success
	})
}

func (c *HighSpeedClient) attach(primary Conn, nc net.Conn) bool {
	sock := newSocketConn(nc, primary, c.d, c.cfg.MaxMessageSize, c.socketClosed)
	sess := &clientSession{primary: primary, sock: sock}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	prev := c.sessions[primary.ID()]
	c.sessions[primary.ID()] = sess
	sess.ready = c.waiting[primary.ID()]
	delete(c.waiting, primary.ID())
	if prev != nil {
		sess.ready = append(prev.ready, sess.ready...)
		prev.ready = nil
	}
	sess.timer = time.AfterFunc(c.cfg.HandshakeTimeout, func() {
		if !sock.Verified() {
			sock.log.Warn("high-speed handshake timed out")
			_ = sock.Close()
		}
	})
	c.mu.Unlock()
	if prev != nil {
		_ = prev.sock.Close()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		sock.readLoop()
	}()
	sock.log.Debug("high-speed socket dialed")
	return true
}

// onToken answers the server's token over the primary session.
func (c *HighSpeedClient) onToken(ctx *Context, args Args1[[]byte]) Result {
	if !ctx.HighSpeed {
		c.log.Warn("high-speed token on primary session ignored", zap.String("conn", ctx.Conn.ID()))
		return nil
	}
	if len(args.V1) != tokenSize {
		c.log.Warn("high-speed token has wrong size", zap.Int("len", len(args.V1)))
		return nil
	}
	if err := c.hs.verify.Send(ctx.Primary, Pack1(proofOf(args.V1))); err != nil {
		c.log.Warn("high-speed proof not sent", zap.Error(err))
	}
	return nil
}

func (c *HighSpeedClient) onConfirm(ctx *Context, _ Args0) Result {
	sock, ok := ctx.Conn.(*socketConn)
	if !ok {
		return nil
	}
	if !sock.markVerified() {
		return nil
	}
	c.mu.Lock()
	sess := c.sessions[sock.primary.ID()]
	var ready []func(hs Conn)
	if sess != nil && sess.sock == sock {
		sess.timer.Stop()
		ready = sess.ready
		sess.ready = nil
	}
	c.mu.Unlock()
	sock.log.Info("high-speed socket verified")
	for _, fn := range ready {
		fn(sock)
	}
	return nil
}

// WhenReady runs fn with the verified side channel of primary, right away if
// it is already verified, otherwise once the handshake completes.
func (c *HighSpeedClient) WhenReady(primary Conn, fn func(hs Conn)) {
	c.mu.Lock()
	sess := c.sessions[primary.ID()]
	if sess != nil && sess.sock.Verified() {
		c.mu.Unlock()
		fn(sess.sock)
		return
	}
	if sess != nil {
		sess.ready = append(sess.ready, fn)
	} else {
		c.waiting[primary.ID()] = append(c.waiting[primary.ID()], fn)
	}
	c.mu.Unlock()
}

func (c *HighSpeedClient) socketClosed(sock *socketConn) {
	c.mu.Lock()
	if sess := c.sessions[sock.primary.ID()]; sess != nil && sess.sock == sock {
		if sess.timer != nil {
			sess.timer.Stop()
		}
		delete(c.sessions, sock.primary.ID())
		if len(sess.ready) > 0 && !c.closed {
			c.waiting[sock.primary.ID()] = append(c.waiting[sock.primary.ID()], sess.ready...)
		}
	}
	c.mu.Unlock()
	c.d.FailConn(sock)
}

func (c *HighSpeedClient) route(primary Conn) Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sess := c.sessions[primary.ID()]; sess != nil && sess.sock.Verified() {
		return sess.sock
	}
	return nil
}

// Lookup returns the verified side channel of primary, or nil.
func (c *HighSpeedClient) Lookup(primary Conn) Conn { return c.route(primary) }

// Forget closes the socket of primary and drops queued work.
func (c *HighSpeedClient) Forget(primary Conn) {
	c.mu.Lock()
	sess := c.sessions[primary.ID()]
	if sess != nil {
		sess.ready = nil
	}
	delete(c.waiting, primary.ID())
	c.mu.Unlock()
	if sess != nil {
		_ = sess.sock.Close()
	}
}

func (c *HighSpeedClient) Sessions() []SessionInfo {
	c.mu.Lock()
	out := make([]SessionInfo, 0, len(c.sessions))
	for _, sess := range c.sessions {
		out = append(out, sessionInfo(sess.primary, sess.sock))
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Primary < out[j].Primary })
	return out
}

// Close closes every socket.
func (c *HighSpeedClient) Close() error {
	c.mu.Lock()
	c.closed = true
	socks := make([]*socketConn, 0, len(c.sessions))
	for _, sess := range c.sessions {
		socks = append(socks, sess.sock)
	}
	clear(c.waiting)
	c.mu.Unlock()
	for _, sock := range socks {
		_ = sock.Close()
	}
	c.wg.Wait()
	return nil
}
