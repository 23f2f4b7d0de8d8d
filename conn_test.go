// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luxfi/duorpc/wire"
)

var testPorts atomic.Int32

func loopbackAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 30000 + int(testPorts.Add(1))}
}

// recordConn keeps every frame sent on it and never answers.
type recordConn struct {
	id     string
	remote net.Addr

	mu     sync.Mutex
	frames [][]byte
	err    error
}

func newRecordConn() *recordConn {
	return &recordConn{id: NewConnID(), remote: loopbackAddr()}
}

func (c *recordConn) ID() string           { return c.id }
func (c *recordConn) Kind() ConnKind       { return KindPrimary }
func (c *recordConn) RemoteAddr() net.Addr { return c.remote }
func (c *recordConn) Close() error         { return nil }

func (c *recordConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, append([]byte(nil), frame...))
	return nil
}

func (c *recordConn) failWith(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *recordConn) sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.frames...)
}

// loopConn is one end of an in-test session; frames sent on it are
// delivered in order to the peer's dispatcher on a separate goroutine.
type loopConn struct {
	id     string
	remote net.Addr
	d      *Dispatcher
	peer   *loopConn

	mu     sync.Mutex
	queue  [][]byte
	signal chan struct{}

	once   sync.Once
	closed chan struct{}
}

func pipe(t *testing.T, a, b *Dispatcher) (*loopConn, *loopConn) {
	t.Helper()
	ca := &loopConn{id: NewConnID(), remote: loopbackAddr(), d: a, signal: make(chan struct{}, 1), closed: make(chan struct{})}
	cb := &loopConn{id: NewConnID(), remote: loopbackAddr(), d: b, signal: make(chan struct{}, 1), closed: make(chan struct{})}
	ca.peer, cb.peer = cb, ca
	go ca.loop()
	go cb.loop()
	t.Cleanup(func() { _ = ca.Close() })
	return ca, cb
}

func (c *loopConn) ID() string           { return c.id }
func (c *loopConn) Kind() ConnKind       { return KindPrimary }
func (c *loopConn) RemoteAddr() net.Addr { return c.remote }

func (c *loopConn) Send(frame []byte) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}
	p := c.peer
	p.mu.Lock()
	p.queue = append(p.queue, append([]byte(nil), frame...))
	p.mu.Unlock()
	select {
	case p.signal <- struct{}{}:
	default:
	}
	return nil
}

func (c *loopConn) loop() {
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
			c.queue = c.queue[1:]
			c.mu.Unlock()
			c.d.Deliver(c, frame)
		}
	}
}

func (c *loopConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	c.peer.once.Do(func() { close(c.peer.closed) })
	return nil
}

func newTestDispatcher(t *testing.T, role Role, opts ...Option) *Dispatcher {
	t.Helper()
	base := []Option{
		WithRole(role),
		WithLogger(zap.NewNop()),
		WithName(t.Name() + "/" + role.String()),
	}
	d := NewDispatcher(append(base, opts...)...)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// decodeAck returns the header and status of an acknowledgement frame.
func decodeAck(t *testing.T, frame []byte) (wire.Overhead, Status) {
	t.Helper()
	h, payload, err := wire.SplitFrame(frame)
	require.NoError(t, err)
	require.True(t, h.Flags.Has(wire.FlagAcknowledgeResponse), "flags %s", h.Flags)
	require.Len(t, payload, 4)
	return h, Status(int32(binary.LittleEndian.Uint32(payload)))
}

func TestConnKindString(t *testing.T) {
	require.Equal(t, "primary", KindPrimary.String())
	require.Equal(t, "highspeed", KindHighSpeed.String())
	require.Equal(t, "unknown", ConnKind(9).String())
}

func TestHostOf(t *testing.T) {
	require.Equal(t, "127.0.0.1", hostOf(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 80}))
	require.Equal(t, "::1", hostOf(&net.TCPAddr{IP: net.IPv6loopback, Port: 80}))
	require.Equal(t, "", hostOf(nil))
}

func TestHooks(t *testing.T) {
	var opened, closed int
	h := Hooks{
		OnOpen:  func(Conn) { opened++ },
		OnClose: func(Conn) { closed++ },
	}
	c := newRecordConn()
	h.Opened(c)
	h.Closed(c)
	Hooks{}.Opened(c)
	require.Equal(t, 1, opened)
	require.Equal(t, 1, closed)
}

var errBrokenConn = errors.New("broken")
