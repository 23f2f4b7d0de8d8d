// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package grpcconn carries primary sessions over one bidirectional gRPC
// stream per session, method /duorpc.Primary/Exchange.
package grpcconn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/peer"

	"github.com/luxfi/duorpc"
)

const (
	ServiceName = "duorpc.Primary"
	MethodName  = "/" + ServiceName + "/Exchange"
)

func init() {
	duorpc.RegisterTransport(duorpc.TransportGRPC, dial, listen)
}

type primaryServer interface {
	exchange(stream grpc.ServerStream) error
}

func exchangeHandler(srv any, stream grpc.ServerStream) error {
	return srv.(primaryServer).exchange(stream)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*primaryServer)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    "Exchange",
		Handler:       exchangeHandler,
		ServerStreams: true,
		ClientStreams: true,
	}},
	Metadata: "duorpc/primary",
}

// frameStream is the part of grpc.ServerStream and grpc.ClientStream a
// session needs.
type frameStream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
}

// Conn is one gRPC stream session.
type Conn struct {
	id     string
	remote net.Addr
	stream frameStream
	d      *duorpc.Dispatcher
	hooks  duorpc.Hooks
	log    *zap.Logger
	cancel context.CancelFunc
	cc     *grpc.ClientConn // client side only

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newConn(stream frameStream, remote net.Addr, d *duorpc.Dispatcher, hooks duorpc.Hooks, cancel context.CancelFunc) *Conn {
	c := &Conn{
		id:     duorpc.NewConnID(),
		remote: remote,
		stream: stream,
		d:      d,
		hooks:  hooks,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.log = d.Logger().With(zap.String("conn", c.id), zap.String("transport", "grpc"))
	return c
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Kind() duorpc.ConnKind { return duorpc.KindPrimary }

func (c *Conn) RemoteAddr() net.Addr { return c.remote }

func (c *Conn) Send(frame []byte) error {
	select {
	case <-c.done:
		return duorpc.ErrConnClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.stream.SendMsg(&frameMsg{b: frame})
}

func (c *Conn) Close() error {
	c.shutdown(nil)
	return nil
}

// Done is closed when the session ends.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		close(c.done)
		if cs, ok := c.stream.(grpc.ClientStream); ok {
			c.writeMu.Lock()
			_ = cs.CloseSend()
			c.writeMu.Unlock()
		}
		if c.cancel != nil {
			c.cancel()
		}
		if c.cc != nil {
			_ = c.cc.Close()
		}
		if cause != nil && !errors.Is(cause, io.EOF) && !errors.Is(cause, context.Canceled) {
			c.log.Debug("grpc session ended", zap.Error(cause))
		}
		c.hooks.Closed(c)
	})
}

// recvLoop delivers frames until the stream ends.
func (c *Conn) recvLoop() error {
	for {
		var m frameMsg
		if err := c.stream.RecvMsg(&m); err != nil {
			c.shutdown(err)
			return err
		}
		c.d.Deliver(c, m.b)
	}
}

// Listener serves the Exchange stream.
type Listener struct {
	ln    net.Listener
	srv   *grpc.Server
	d     *duorpc.Dispatcher
	hooks duorpc.Hooks
}

func listen(addr string, d *duorpc.Dispatcher, hooks duorpc.Hooks) (duorpc.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpcconn listen %s: %w", addr, err)
	}
	return NewListener(ln, d, hooks), nil
}

// NewListener serves sessions on an existing net.Listener.
func NewListener(ln net.Listener, d *duorpc.Dispatcher, hooks duorpc.Hooks, opts ...grpc.ServerOption) *Listener {
	l := &Listener{ln: ln, d: d, hooks: hooks}
	opts = append([]grpc.ServerOption{grpc.ForceServerCodec(rawCodec{})}, opts...)
	l.srv = grpc.NewServer(opts...)
	l.srv.RegisterService(&serviceDesc, l)
	return l
}

func (l *Listener) exchange(stream grpc.ServerStream) error {
	var remote net.Addr
	if p, ok := peer.FromContext(stream.Context()); ok {
		remote = p.Addr
	}
	ctx, cancel := context.WithCancel(stream.Context())
	c := newConn(stream, remote, l.d, l.hooks, cancel)
	c.hooks.Opened(c)

	errCh := make(chan error, 1)
	go func() { errCh <- c.recvLoop() }()
	select {
	case err := <-errCh:
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	case <-ctx.Done():
		c.shutdown(ctx.Err())
		return nil
	}
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Serve blocks until ctx ends or the server stops.
func (l *Listener) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- l.srv.Serve(l.ln) }()
	select {
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-ctx.Done():
		l.srv.Stop()
		return nil
	}
}

func (l *Listener) Close() error {
	l.srv.Stop()
	return nil
}

type targetAddr string

func (a targetAddr) Network() string { return "tcp" }
func (a targetAddr) String() string  { return string(a) }

func dial(ctx context.Context, addr string, d *duorpc.Dispatcher, hooks duorpc.Hooks) (duorpc.Conn, error) {
	return Dial(ctx, addr, d, hooks)
}

// Dial opens one session to a Listener at addr. Extra dial options (for
// example a custom context dialer) are appended to the defaults.
func Dial(ctx context.Context, addr string, d *duorpc.Dispatcher, hooks duorpc.Hooks, opts ...grpc.DialOption) (*Conn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rawCodec{})),
	}, opts...)
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	if err := ctx.Err(); err != nil {
		_ = cc.Close()
		return nil, err
	}
	sctx, cancel := context.WithCancel(context.Background())
	stream, err := cc.NewStream(sctx, &serviceDesc.Streams[0], MethodName)
	if err != nil {
		cancel()
		_ = cc.Close()
		return nil, fmt.Errorf("grpc open stream: %w", err)
	}
	c := newConn(stream, targetAddr(addr), d, hooks, cancel)
	c.cc = cc
	hooks.Opened(c)
	go func() { _ = c.recvLoop() }()
	return c, nil
}
