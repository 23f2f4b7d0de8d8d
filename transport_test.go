// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubListener struct{ addr net.Addr }

func (l stubListener) Serve(context.Context) error { return nil }
func (l stubListener) Addr() net.Addr              { return l.addr }
func (l stubListener) Close() error                { return nil }

func TestTransportRegistry(t *testing.T) {
	conn := newRecordConn()
	var dialed string
	RegisterTransport("stub", func(_ context.Context, addr string, _ *Dispatcher, hooks Hooks) (Conn, error) {
		dialed = addr
		hooks.Opened(conn)
		return conn, nil
	}, func(addr string, _ *Dispatcher, _ Hooks) (Listener, error) {
		return stubListener{addr: conn.RemoteAddr()}, nil
	})

	assert.True(t, HasTransport("stub"))
	assert.Contains(t, AvailableTransports(), "stub")

	d := newTestDispatcher(t, RoleClient)
	opened := 0
	c, err := Dial(context.Background(), "stub", "somewhere", d, Hooks{OnOpen: func(Conn) { opened++ }})
	require.NoError(t, err)
	assert.Same(t, conn, c)
	assert.Equal(t, "somewhere", dialed)
	assert.Equal(t, 1, opened)

	l, err := Listen("stub", "anywhere", d, Hooks{})
	require.NoError(t, err)
	assert.Equal(t, conn.RemoteAddr(), l.Addr())
}

func TestUnknownTransport(t *testing.T) {
	d := newTestDispatcher(t, RoleClient)
	assert.False(t, HasTransport("carrier-pigeon"))
	_, err := Dial(context.Background(), "carrier-pigeon", "x", d, Hooks{})
	assert.ErrorIs(t, err, ErrUnknownTransport)
	_, err = Listen("carrier-pigeon", "x", d, Hooks{})
	assert.ErrorIs(t, err, ErrUnknownTransport)
}
