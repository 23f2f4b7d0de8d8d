// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
)

// Primary transport names.
const (
	TransportMem       = "mem"
	TransportWebSocket = "ws"
	TransportGRPC      = "grpc"
)

// DefaultTransport is used when configuration names none.
const DefaultTransport = TransportWebSocket

// Listener accepts primary sessions and hands their frames to a dispatcher.
type Listener interface {
	Serve(ctx context.Context) error
	Addr() net.Addr
	Close() error
}

// DialFunc opens one primary session to addr.
type DialFunc func(ctx context.Context, addr string, d *Dispatcher, hooks Hooks) (Conn, error)

// ListenFunc binds a primary listener on addr.
type ListenFunc func(addr string, d *Dispatcher, hooks Hooks) (Listener, error)

var (
	transportsMu sync.RWMutex
	transports   = map[string]struct {
		dial   DialFunc
		listen ListenFunc
	}{}
)

// RegisterTransport makes a primary transport available by name. Adapter
// packages call it from init.
func RegisterTransport(name string, dial DialFunc, listen ListenFunc) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	transports[name] = struct {
		dial   DialFunc
		listen ListenFunc
	}{dial, listen}
}

// AvailableTransports returns the registered transport names, sorted.
func AvailableTransports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	result := make([]string, 0, len(transports))
	for name := range transports {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// HasTransport checks if a transport is available
func HasTransport(name string) bool {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	_, ok := transports[name]
	return ok
}

// Dial connects a primary session over the named transport.
func Dial(ctx context.Context, transport, addr string, d *Dispatcher, hooks Hooks) (Conn, error) {
	transportsMu.RLock()
	t, ok := transports[transport]
	transportsMu.RUnlock()
	if !ok || t.dial == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, transport)
	}
	return t.dial(ctx, addr, d, hooks)
}

// Listen binds a primary listener over the named transport.
func Listen(transport, addr string, d *Dispatcher, hooks Hooks) (Listener, error) {
	transportsMu.RLock()
	t, ok := transports[transport]
	transportsMu.RUnlock()
	if !ok || t.listen == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, transport)
	}
	return t.listen(addr, d, hooks)
}
