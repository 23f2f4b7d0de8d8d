// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memconn is an in-process primary transport. Frames sent on one end
// of a pipe are delivered, in order, to the dispatcher of the other end.
// It backs tests and single-process demos.
package memconn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/luxfi/duorpc"
)

func init() {
	duorpc.RegisterTransport(duorpc.TransportMem, dial, listen)
}

var nextPort atomic.Int32

// loopback hands out distinct 127.0.0.1 addresses so host matching behaves
// like a real socket pair.
func loopback() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000 + int(nextPort.Add(1))%20000}
}

// Conn is one end of an in-process session.
type Conn struct {
	id     string
	local  net.Addr
	remote net.Addr
	d      *duorpc.Dispatcher
	hooks  duorpc.Hooks
	peer   *Conn

	mu     sync.Mutex
	queue  [][]byte
	signal chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(d *duorpc.Dispatcher, hooks duorpc.Hooks, local, remote net.Addr) *Conn {
	return &Conn{
		id:     duorpc.NewConnID(),
		local:  local,
		remote: remote,
		d:      d,
		hooks:  hooks,
		signal: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Pipe connects dispatchers a and b. The first Conn is a's view of the
// session (sending on it reaches b) and the second is b's.
func Pipe(a, b *duorpc.Dispatcher) (*Conn, *Conn) {
	return pipe(a, duorpc.Hooks{}, b, duorpc.Hooks{})
}

// PipeWithHooks is Pipe with lifecycle hooks for each side.
func PipeWithHooks(a *duorpc.Dispatcher, ha duorpc.Hooks, b *duorpc.Dispatcher, hb duorpc.Hooks) (*Conn, *Conn) {
	return pipe(a, ha, b, hb)
}

func pipe(a *duorpc.Dispatcher, ha duorpc.Hooks, b *duorpc.Dispatcher, hb duorpc.Hooks) (*Conn, *Conn) {
	addrA, addrB := loopback(), loopback()
	ca := newConn(a, ha, addrA, addrB)
	cb := newConn(b, hb, addrB, addrA)
	ca.peer, cb.peer = cb, ca
	go ca.deliverLoop()
	go cb.deliverLoop()
	ha.Opened(ca)
	hb.Opened(cb)
	return ca, cb
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Kind() duorpc.ConnKind { return duorpc.KindPrimary }

func (c *Conn) LocalAddr() net.Addr { return c.local }

func (c *Conn) RemoteAddr() net.Addr { return c.remote }

// Send queues a copy of frame for the peer. It never blocks on the peer's
// handlers.
func (c *Conn) Send(frame []byte) error {
	select {
	case <-c.closed:
		return duorpc.ErrConnClosed
	default:
	}
	return c.peer.enqueue(append([]byte(nil), frame...))
}

func (c *Conn) enqueue(frame []byte) error {
	select {
	case <-c.closed:
		return duorpc.ErrConnClosed
	default:
	}
	c.mu.Lock()
	c.queue = append(c.queue, frame)
	c.mu.Unlock()
	select {
	case c.signal <- struct{}{}:
	default:
	}
	return nil
}

func (c *Conn) deliverLoop() {
	for {
		select {
		case <-c.closed:
			return
		case <-c.signal:
		}
		for {
			c.mu.Lock()
			if len(c.queue) == 0 {
				c.mu.Unlock()
				break
			}
			frame := c.queue[0]
			c.queue[0] = nil
			c.queue = c.queue[1:]
			c.mu.Unlock()
			c.d.Deliver(c, frame)
		}
	}
}

// Close ends both sides of the session.
func (c *Conn) Close() error {
	c.shutdown()
	c.peer.shutdown()
	return nil
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.hooks.Closed(c)
	})
}

// Done is closed when the session ends.
func (c *Conn) Done() <-chan struct{} { return c.closed }

var (
	listenersMu sync.Mutex
	listeners   = map[string]*Listener{}
)

// Listener accepts in-process dials by name.
type Listener struct {
	name   string
	d      *duorpc.Dispatcher
	hooks  duorpc.Hooks
	once   sync.Once
	closed chan struct{}
}

func listen(name string, d *duorpc.Dispatcher, hooks duorpc.Hooks) (duorpc.Listener, error) {
	return Listen(name, d, hooks)
}

// Listen registers a named listener.
func Listen(name string, d *duorpc.Dispatcher, hooks duorpc.Hooks) (*Listener, error) {
	listenersMu.Lock()
	defer listenersMu.Unlock()
	if _, ok := listeners[name]; ok {
		return nil, fmt.Errorf("memconn: listener %q already exists", name)
	}
	l := &Listener{name: name, d: d, hooks: hooks, closed: make(chan struct{})}
	listeners[name] = l
	return l, nil
}

func (l *Listener) Addr() net.Addr { return memAddr(l.name) }

// Serve blocks until ctx ends or the listener closes. Sessions are set up by
// Dial, so there is nothing to accept.
func (l *Listener) Serve(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return l.Close()
	case <-l.closed:
		return nil
	}
}

func (l *Listener) Close() error {
	l.once.Do(func() {
		close(l.closed)
		listenersMu.Lock()
		if listeners[l.name] == l {
			delete(listeners, l.name)
		}
		listenersMu.Unlock()
	})
	return nil
}

func dial(ctx context.Context, name string, d *duorpc.Dispatcher, hooks duorpc.Hooks) (duorpc.Conn, error) {
	return Dial(ctx, name, d, hooks)
}

// Dial opens a session to the listener called name.
func Dial(ctx context.Context, name string, d *duorpc.Dispatcher, hooks duorpc.Hooks) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	listenersMu.Lock()
	l := listeners[name]
	listenersMu.Unlock()
	if l == nil {
		return nil, errors.New("memconn: no such listener " + name)
	}
	local, _ := pipe(d, hooks, l.d, l.hooks)
	return local, nil
}

type memAddr string

func (a memAddr) Network() string { return "mem" }
func (a memAddr) String() string  { return string(a) }
