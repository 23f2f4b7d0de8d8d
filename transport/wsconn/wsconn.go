// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wsconn carries primary sessions over WebSocket. Every frame is one
// binary message.
package wsconn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/luxfi/duorpc"
	"github.com/luxfi/duorpc/stream"
)

// Path is the HTTP path the listener upgrades.
const Path = "/duorpc"

const writeTimeout = 10 * time.Second

func init() {
	duorpc.RegisterTransport(duorpc.TransportWebSocket, dial, listen)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// Conn is one WebSocket session.
type Conn struct {
	id    string
	ws    *websocket.Conn
	d     *duorpc.Dispatcher
	hooks duorpc.Hooks
	log   *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newConn(ws *websocket.Conn, d *duorpc.Dispatcher, hooks duorpc.Hooks) *Conn {
	c := &Conn{
		id:    duorpc.NewConnID(),
		ws:    ws,
		d:     d,
		hooks: hooks,
		done:  make(chan struct{}),
	}
	c.log = d.Logger().With(zap.String("conn", c.id), zap.Stringer("remote", ws.RemoteAddr()))
	ws.SetReadLimit(stream.DefaultMaxMessageSize)
	return c
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Kind() duorpc.ConnKind { return duorpc.KindPrimary }

func (c *Conn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *Conn) Send(frame []byte) error {
	select {
	case <-c.done:
		return duorpc.ErrConnClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.BinaryMessage, frame)
}

func (c *Conn) Close() error {
	c.shutdown()
	return nil
}

// Done is closed when the session ends.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.ws.Close()
		c.hooks.Closed(c)
	})
}

// readPump delivers messages until the socket fails or closes.
func (c *Conn) readPump() {
	defer c.shutdown()
	for {
		kind, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		if kind != websocket.BinaryMessage {
			c.log.Debug("non-binary websocket message ignored")
			continue
		}
		c.d.Deliver(c, msg)
	}
}

// Listener serves WebSocket upgrades on Path.
type Listener struct {
	ln    net.Listener
	srv   *http.Server
	d     *duorpc.Dispatcher
	hooks duorpc.Hooks

	mu    sync.Mutex
	conns map[*Conn]struct{}
}

func listen(addr string, d *duorpc.Dispatcher, hooks duorpc.Hooks) (duorpc.Listener, error) {
	return Listen(addr, d, hooks)
}

// Listen binds addr and returns a Listener ready to Serve.
func Listen(addr string, d *duorpc.Dispatcher, hooks duorpc.Hooks) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("wsconn listen %s: %w", addr, err)
	}
	l := &Listener{ln: ln, d: d, hooks: hooks, conns: make(map[*Conn]struct{})}
	mux := http.NewServeMux()
	mux.HandleFunc(Path, l.handle)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return l, nil
}

// Handler exposes the upgrade handler for mounting on another server.
func (l *Listener) Handler() http.Handler { return http.HandlerFunc(l.handle) }

func (l *Listener) handle(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.d.Logger().Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newConn(ws, l.d, duorpc.Hooks{
		OnOpen:  l.hooks.OnOpen,
		OnClose: func(c duorpc.Conn) {
			l.forget(c.(*Conn))
			l.hooks.Closed(c)
		},
	})
	l.mu.Lock()
	l.conns[c] = struct{}{}
	l.mu.Unlock()
	c.hooks.Opened(c)
	go c.readPump()
}

func (l *Listener) forget(c *Conn) {
	l.mu.Lock()
	delete(l.conns, c)
	l.mu.Unlock()
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Serve blocks until ctx ends or the listener closes.
func (l *Listener) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- l.srv.Serve(l.ln) }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return l.Close()
	}
}

// Close stops the server and ends every session.
func (l *Listener) Close() error {
	err := l.srv.Close()
	l.mu.Lock()
	conns := make([]*Conn, 0, len(l.conns))
	for c := range l.conns {
		conns = append(conns, c)
	}
	l.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
	return err
}

func dial(ctx context.Context, addr string, d *duorpc.Dispatcher, hooks duorpc.Hooks) (duorpc.Conn, error) {
	return Dial(ctx, addr, d, hooks)
}

// URL turns "host:port" into the WebSocket URL of a Listener. Full ws:// or
// wss:// URLs are returned unchanged.
func URL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	return "ws://" + addr + Path
}

// Dial opens a session to a Listener.
func Dial(ctx context.Context, addr string, d *duorpc.Dispatcher, hooks duorpc.Hooks) (*Conn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, URL(addr), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("wsconn dial %s: %w", addr, err)
	}
	c := newConn(ws, d, hooks)
	hooks.Opened(c)
	go c.readPump()
	return c, nil
}
