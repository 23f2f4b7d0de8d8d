// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luxfi/duorpc"
	"github.com/luxfi/duorpc/wire"
)

// nullConn accepts frames and never answers.
type nullConn struct{}

func (nullConn) ID() string            { return "null" }
func (nullConn) Kind() duorpc.ConnKind { return duorpc.KindPrimary }
func (nullConn) RemoteAddr() net.Addr  { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1} }
func (nullConn) Send([]byte) error     { return nil }
func (nullConn) Close() error          { return nil }

type fakeSessions []duorpc.SessionInfo

func (f fakeSessions) Sessions() []duorpc.SessionInfo { return f }

func newNode(t *testing.T) *duorpc.Dispatcher {
	d := duorpc.NewDispatcher(duorpc.WithName("admin-test"), duorpc.WithLogger(zap.NewNop()))
	t.Cleanup(func() { _ = d.Close() })
	inv := duorpc.Define[duorpc.Args1[string]](d, "ping", wire.Compact(7))
	duorpc.Handle(d, inv, duorpc.FromClient, func(*duorpc.Context, duorpc.Args1[string]) duorpc.Result { return nil })
	_, err := inv.RequestAck(nullConn{}, duorpc.Pack1("x"), duorpc.WithTimeout(time.Minute))
	require.NoError(t, err)
	return d
}

func TestAdminAPI(t *testing.T) {
	d := newNode(t)
	sessions := fakeSessions{{Primary: "p1", Socket: "s1", Remote: "127.0.0.1:9", Verified: true}}
	handler, err := NewHandler(d, sessions)
	require.NoError(t, err)

	var sawHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawHeader = r.Header.Get("X-Node")
		handler.ServeHTTP(w, r)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, zap.NewNop())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	procs, err := c.Procedures(ctx, WithHeader("X-Node", "n1"))
	require.NoError(t, err)
	require.Len(t, procs, 1)
	assert.Equal(t, "ping", procs[0].Name)
	assert.Equal(t, []string{"from-client"}, procs[0].Directions)
	assert.Equal(t, "n1", sawHeader)

	pending, err := c.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ping", pending[0].Procedure)
	assert.True(t, pending[0].Ack)
	assert.Equal(t, "null", pending[0].Conn)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin-test", stats.Name)
	assert.Equal(t, "server", stats.Role)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, uint64(1), stats.Sent)

	got, err := c.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Verified)
	assert.Equal(t, "s1", got[0].Socket)
}

func TestSessionsWithoutHighSpeed(t *testing.T) {
	handler, err := NewHandler(newNode(t), nil)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", nil)
	require.NoError(t, err)
	got, err := c.Sessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHealthAndMetrics(t *testing.T) {
	handler, err := NewHandler(newNode(t), nil)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + HealthPath)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + MetricsPath)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "duorpc_correlation_pending_requests")
	assert.Contains(t, string(body), "duorpc_dispatch_messages_sent_total")
}

func TestServerLifecycle(t *testing.T) {
	s, err := NewServer("127.0.0.1:0", newNode(t), nil, zap.NewNop())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	c, err := NewClient("http://"+s.Addr().String(), nil)
	require.NoError(t, err)
	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin-test", stats.Name)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("admin server did not stop")
	}
}

func TestClientErrors(t *testing.T) {
	_, err := NewClient("127.0.0.1:7302", nil)
	assert.Error(t, err, "scheme required")

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)
	_, err = c.Stats(context.Background())
	assert.ErrorContains(t, err, "404")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c, err = NewClient("http://"+addr, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = c.Stats(ctx)
	assert.Error(t, err)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(io.EOF))
	assert.True(t, isRetryableError(&net.OpError{Op: "dial", Err: errString("connection refused")}))
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(errString("bad request")))
}

type errString string

func (e errString) Error() string { return string(e) }
