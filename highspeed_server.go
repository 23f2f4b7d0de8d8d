// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

type serverSession struct {
	primary Conn
	sock    *socketConn
	token   []byte
	timer   *time.Timer
}

// HighSpeedServer accepts side-channel sockets for primary sessions it has
// invited with Open and verifies them before use.
type HighSpeedServer struct {
	d   *Dispatcher
	cfg HighSpeedConfig
	log *zap.Logger
	hs  handshake

	mu       sync.Mutex
	ln       net.Listener
	awaiting map[string][]Conn // peer host -> invited primaries, oldest first
	sessions map[string]*serverSession
	closed   bool
	wg       sync.WaitGroup
}

// NewHighSpeedServer defines the handshake procedures on d and attaches the
// server so high-speed invokers route through its verified sockets.
func NewHighSpeedServer(d *Dispatcher, cfg HighSpeedConfig) *HighSpeedServer {
	s := &HighSpeedServer{
		d:        d,
		cfg:      cfg.withDefaults(),
		log:      d.log.Named("highspeed"),
		hs:       defineHandshake(d),
		awaiting: make(map[string][]Conn),
		sessions: make(map[string]*serverSession),
	}
	Handle(d, s.hs.verify, FromClient, s.onProof)
	d.attachRouter(s)
	return s
}

// Listen opens the socket listener.
func (s *HighSpeedServer) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("high-speed listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.log.Info("high-speed listener started", zap.Stringer("addr", ln.Addr()))
	return nil
}

// Addr returns the listener address, or nil before Listen.
func (s *HighSpeedServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts sockets until ctx ends or the server closes.
func (s *HighSpeedServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		ln = s.ln
		s.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}
		s.accept(nc)
	}
}

func (s *HighSpeedServer) port() uint16 {
	if s.cfg.AdvertisePort != 0 {
		return s.cfg.AdvertisePort
	}
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return uint16(addr.Port)
	}
	return 0
}

// Open invites the peer of primary to connect a side channel. The returned
// future resolves when the peer has dialed (or failed to). An invitation that
// is declined or times out is withdrawn.
func (s *HighSpeedServer) Open(ctx context.Context, primary Conn) (*AckFuture, error) {
	port := s.port()
	if port == 0 {
		return nil, fmt.Errorf("%w: listener not started", ErrHandshake)
	}
	host := hostOf(primary.RemoteAddr())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.awaiting[host] = append(s.awaiting[host], primary)
	s.mu.Unlock()

	timeout := s.cfg.HandshakeTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	f, err := s.hs.open.RequestAck(primary, Pack1(port), WithTimeout(timeout))
	if err != nil {
		s.unawait(host, primary)
		return nil, err
	}
	// A peer that never dials must not leave its invitation behind for the
	// next socket from the same host.
	f.Then(func(ack Ack, err error) {
		if err != nil || !ack.Responded || ack.Code != Success {
			s.unawait(host, primary)
		}
	})
	s.log.Debug("high-speed channel offered",
		zap.String("primary", primary.ID()), zap.Uint16("port", port))
	return f, nil
}

func (s *HighSpeedServer) unawait(host string, primary Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.awaiting[host]
	for i, c := range list {
		if c == primary {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.awaiting, host)
	} else {
		s.awaiting[host] = list
	}
}

func (s *HighSpeedServer) accept(nc net.Conn) {
	host := hostOf(nc.RemoteAddr())

	s.mu.Lock()
	list := s.awaiting[host]
	if s.closed || len(list) == 0 {
		s.mu.Unlock()
		s.log.Warn("unmatched high-speed connection rejected", zap.Stringer("remote", nc.RemoteAddr()))
		_ = nc.Close()
		return
	}
	primary := list[0]
	if len(list) == 1 {
		delete(s.awaiting, host)
	} else {
		s.awaiting[host] = list[1:]
	}
	s.mu.Unlock()

	token, err := newToken()
	if err != nil {
		s.log.Error("high-speed token", zap.Error(err))
		_ = nc.Close()
		return
	}
	sock := newSocketConn(nc, primary, s.d, s.cfg.MaxMessageSize, s.socketClosed)
	sess := &serverSession{primary: primary, sock: sock, token: token}

	s.mu.Lock()
	prev := s.sessions[primary.ID()]
	s.sessions[primary.ID()] = sess
	sess.timer = time.AfterFunc(s.cfg.HandshakeTimeout, func() { s.handshakeExpired(sess) })
	s.mu.Unlock()
	if prev != nil {
		_ = prev.sock.Close()
	}
	s.updateGauges()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sock.readLoop()
	}()

	frame, err := s.hs.verify.Encode(wireHighSpeed(), Pack1(token))
	if err == nil {
		err = sock.write(frame)
	}
	if err != nil {
		s.log.Warn("high-speed token not sent", zap.String("conn", sock.ID()), zap.Error(err))
		_ = sock.Close()
		return
	}
	sock.log.Debug("high-speed socket pending verification")
}

func (s *HighSpeedServer) handshakeExpired(sess *serverSession) {
	if sess.sock.Verified() {
		return
	}
	sess.sock.log.Warn("high-speed handshake timed out")
	_ = sess.sock.Close()
}

// onProof handles the client's proof. It is only accepted on the primary
// session; the token travels on the socket, so a proof sent back on the
// socket proves nothing.
func (s *HighSpeedServer) onProof(ctx *Context, args Args1[[]byte]) Result {
	if ctx.Conn.Kind() == KindHighSpeed {
		s.log.Warn("high-speed proof on side channel rejected",
			zap.String("conn", ctx.Conn.ID()), zap.String("primary", ctx.Primary.ID()))
		return Failure
	}
	s.mu.Lock()
	sess := s.sessions[ctx.Primary.ID()]
	s.mu.Unlock()
	if sess == nil {
		s.log.Warn("high-speed proof without socket", zap.String("primary", ctx.Primary.ID()))
		return Failure
	}
	if sess.sock.Verified() {
		return Success
	}
	if !validProof(sess.token, args.V1) {
		sess.sock.log.Warn("high-speed proof mismatch")
		return Failure
	}
	if !sess.sock.markVerified() {
		return Success
	}
	sess.timer.Stop()
	s.updateGauges()
	sess.sock.log.Info("high-speed socket verified")
	if err := s.hs.confirm.Send(sess.sock, Pack0()); err != nil {
		sess.sock.log.Warn("high-speed confirm not sent", zap.Error(err))
		return Failure
	}
	return Success
}

func (s *HighSpeedServer) socketClosed(sock *socketConn) {
	s.mu.Lock()
	if sess := s.sessions[sock.primary.ID()]; sess != nil && sess.sock == sock {
		sess.timer.Stop()
		delete(s.sessions, sock.primary.ID())
	}
	s.mu.Unlock()
	s.updateGauges()
	s.d.FailConn(sock)
}

func (s *HighSpeedServer) route(primary Conn) Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.sessions[primary.ID()]; sess != nil && sess.sock.Verified() {
		return sess.sock
	}
	return nil
}

// Lookup returns the verified side channel of primary, or nil.
func (s *HighSpeedServer) Lookup(primary Conn) Conn { return s.route(primary) }

// Forget drops any invitation or socket of primary. Call it when the
// primary session ends.
func (s *HighSpeedServer) Forget(primary Conn) {
	s.unawait(hostOf(primary.RemoteAddr()), primary)
	s.mu.Lock()
	sess := s.sessions[primary.ID()]
	s.mu.Unlock()
	if sess != nil {
		_ = sess.sock.Close()
	}
}

// Sessions lists the tracked sockets.
func (s *HighSpeedServer) Sessions() []SessionInfo {
	s.mu.Lock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sessionInfo(sess.primary, sess.sock))
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Primary < out[j].Primary })
	return out
}

func (s *HighSpeedServer) updateGauges() {
	var verified, pending int
	for _, info := range s.Sessions() {
		if info.Verified {
			verified++
		} else {
			pending++
		}
	}
	highSpeedSessions.WithLabelValues(s.d.name, "verified").Set(float64(verified))
	highSpeedSessions.WithLabelValues(s.d.name, "pending").Set(float64(pending))
}

// Close stops accepting and closes every socket.
func (s *HighSpeedServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	socks := make([]*socketConn, 0, len(s.sessions))
	for _, sess := range s.sessions {
		socks = append(socks, sess.sock)
	}
	clear(s.awaiting)
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	}
	for _, sock := range socks {
		_ = sock.Close()
	}
	s.wg.Wait()
	return err
}
