// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/duorpc/wire"
)

// testProcs is the same procedure table defined on both peers.
type testProcs struct {
	ping *Invoker[Args1[string]]
	echo *Invoker[Args2[string, int64]]
	note *Invoker[Args1[string]]
}

func defineTestProcs(d *Dispatcher) testProcs {
	return testProcs{
		ping: Define[Args1[string]](d, "ping", wire.Compact(7)),
		echo: Define[Args2[string, int64]](d, "echo", wire.Compact(8)),
		note: Define[Args1[string]](d, "note", wire.StableFromName(uuid.NameSpaceURL, "duorpc/test/note")),
	}
}

type peers struct {
	server, client     *Dispatcher
	sprocs, cprocs     testProcs
	toClient, toServer *loopConn
}

func newPeers(t *testing.T) *peers {
	t.Helper()
	p := &peers{
		server: newTestDispatcher(t, RoleServer),
		client: newTestDispatcher(t, RoleClient),
	}
	p.sprocs = defineTestProcs(p.server)
	p.cprocs = defineTestProcs(p.client)
	p.toServer, p.toClient = pipe(t, p.client, p.server)
	return p
}

// serveEcho answers echo requests with the string suffixed and the number
// incremented.
func (p *peers) serveEcho(t *testing.T) {
	require.True(t, Handle(p.server, p.sprocs.echo, FromClient, func(ctx *Context, a Args2[string, int64]) Result {
		require.NoError(t, p.sprocs.echo.Respond(ctx, Pack2(a.V1+"!", a.V2+1)))
		return nil
	}))
}

func TestPingAcknowledged(t *testing.T) {
	p := newPeers(t)
	Handle(p.server, p.sprocs.ping, FromClient, func(*Context, Args1[string]) Result { return nil })

	f, err := p.cprocs.ping.RequestAck(p.toServer, Pack1("ping"))
	require.NoError(t, err)
	ack, err := f.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.True(t, ack.Responded)
	assert.Equal(t, Success, ack.Code)
	require.NotNil(t, ack.Context)
	assert.True(t, ack.Context.Header.Flags.Has(wire.FlagAcknowledgeResponse))
	assert.Equal(t, wire.Compact(7), ack.Context.Header.Selector)
}

func TestRequestRespond(t *testing.T) {
	p := newPeers(t)
	p.serveEcho(t)

	f, err := p.cprocs.echo.Request(p.toServer, Pack2("hello", int64(41)))
	require.NoError(t, err)
	resp, err := f.Wait(waitCtx(t))
	require.NoError(t, err)
	require.True(t, resp.Responded)
	assert.Equal(t, "hello!", resp.Args.V1)
	assert.Equal(t, int64(42), resp.Args.V2)
	assert.Equal(t, f.Key(), resp.Context.Header.RequestKey)
	assert.Same(t, p.toServer, resp.Context.Conn)
	assert.False(t, resp.Context.HighSpeed)
}

func TestRespondRequiresRequest(t *testing.T) {
	p := newPeers(t)
	errs := make(chan error, 1)
	Handle(p.server, p.sprocs.echo, FromClient, func(ctx *Context, a Args2[string, int64]) Result {
		errs <- p.sprocs.echo.Respond(ctx, a)
		return nil
	})
	require.NoError(t, p.cprocs.echo.Send(p.toServer, Pack2("x", int64(1))))
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrNotRequest)
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
}

func TestRespondWithAck(t *testing.T) {
	p := newPeers(t)
	acks := make(chan *AckFuture, 1)
	Handle(p.server, p.sprocs.echo, FromClient, func(ctx *Context, a Args2[string, int64]) Result {
		f, err := p.sprocs.echo.RespondWithAck(ctx, Pack2(a.V1, a.V2*2))
		require.NoError(t, err)
		acks <- f
		return nil
	})

	f, err := p.cprocs.echo.Request(p.toServer, Pack2("twice", int64(21)))
	require.NoError(t, err)
	resp, err := f.Wait(waitCtx(t))
	require.NoError(t, err)
	require.True(t, resp.Responded)
	assert.Equal(t, int64(42), resp.Args.V2)
	assert.True(t, resp.Context.Header.Flags.Has(wire.FlagRequestResponseWithAcknowledgeRequest))

	var serverAck *AckFuture
	select {
	case serverAck = <-acks:
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
	ack, err := serverAck.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.True(t, ack.Responded)
	assert.Equal(t, Success, ack.Code)
	assert.Equal(t, serverAck.Key(), ack.Context.Header.RequestKey)
}

func TestHandlerRunsOnResponse(t *testing.T) {
	p := newPeers(t)
	p.serveEcho(t)
	seen := make(chan *Context, 1)
	require.True(t, Handle(p.client, p.cprocs.echo, FromServer, func(ctx *Context, a Args2[string, int64]) Result {
		assert.Equal(t, "run!", a.V1)
		seen <- ctx
		return nil
	}))

	f, err := p.cprocs.echo.Request(p.toServer, Pack2("run", int64(0)), WithHandlerOnResponse())
	require.NoError(t, err)
	resp, err := f.Wait(waitCtx(t))
	require.NoError(t, err)
	require.True(t, resp.Responded)

	select {
	case ctx := <-seen:
		assert.True(t, ctx.Header.Flags.Has(wire.FlagRequestResponse))
		assert.True(t, ctx.Header.Flags.Has(wire.FlagRunOriginalMethodOnRequest))
	case <-time.After(time.Second):
		t.Fatal("handler did not run on the response")
	}

	// Without the flag the handler stays out of it.
	f, err = p.cprocs.echo.Request(p.toServer, Pack2("run", int64(0)))
	require.NoError(t, err)
	_, err = f.Wait(waitCtx(t))
	require.NoError(t, err)
	select {
	case <-seen:
		t.Fatal("handler ran on a plain response")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConcurrentRequests(t *testing.T) {
	p := newPeers(t)
	p.serveEcho(t)

	const n = 1000
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		keys = make(map[int64]struct{}, n)
	)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := p.cprocs.echo.Request(p.toServer, Pack2(fmt.Sprint(i), int64(i)))
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			keys[f.Key()] = struct{}{}
			mu.Unlock()
			resp, err := f.Wait(waitCtx(t))
			if err != nil {
				errs <- err
				return
			}
			if !resp.Responded || resp.Args.V1 != fmt.Sprint(i)+"!" || resp.Args.V2 != int64(i)+1 {
				errs <- fmt.Errorf("request %d got %+v", i, resp.Args)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.Len(t, keys, n)
	assert.Zero(t, p.client.Stats().Pending)
	assert.Equal(t, uint64(n), p.client.Stats().Responded)
}

func TestStableSelectorRoundTrip(t *testing.T) {
	p := newPeers(t)
	got := make(chan string, 1)
	Handle(p.server, p.sprocs.note, FromClient, func(_ *Context, a Args1[string]) Result {
		got <- a.V1
		return Status(2)
	})

	f, err := p.cprocs.note.RequestAck(p.toServer, Pack1("stable"))
	require.NoError(t, err)
	ack, err := f.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, Status(2), ack.Code)
	assert.Equal(t, "stable", <-got)
	assert.True(t, ack.Context.Header.Selector.IsStable())
}

func TestServerRequestsAllClients(t *testing.T) {
	server := newTestDispatcher(t, RoleServer)
	sp := defineTestProcs(server)

	var conns []Conn
	for _, name := range []string{"a", "b", "c"} {
		client := newTestDispatcher(t, RoleClient, WithName(name))
		cp := defineTestProcs(client)
		Handle(client, cp.echo, FromServer, func(ctx *Context, a Args2[string, int64]) Result {
			_ = cp.echo.Respond(ctx, Pack2(ctx.Dispatcher().Name(), a.V2))
			return nil
		})
		_, toClient := pipe(t, client, server)
		conns = append(conns, toClient)
	}

	futures, err := sp.echo.RequestAll(conns, Pack2("", int64(9)))
	require.NoError(t, err)
	require.Len(t, futures, 3)
	for i, want := range []string{"a", "b", "c"} {
		resp, err := futures[i].Wait(waitCtx(t))
		require.NoError(t, err)
		assert.Equal(t, want, resp.Args.V1)
		assert.Equal(t, int64(9), resp.Args.V2)
	}

	acks, err := sp.ping.RequestAckAll(conns, Pack1("all"), WithTimeout(30*time.Millisecond))
	require.NoError(t, err)
	for _, f := range acks {
		ack, err := f.Wait(waitCtx(t))
		require.NoError(t, err)
		assert.False(t, ack.Responded, "clients have no ping handler")
	}
}

func TestSendAll(t *testing.T) {
	server := newTestDispatcher(t, RoleServer)
	sp := defineTestProcs(server)
	got := make(chan string, 4)

	var conns []Conn
	for i := 0; i < 3; i++ {
		client := newTestDispatcher(t, RoleClient)
		cp := defineTestProcs(client)
		Handle(client, cp.note, FromServer, func(_ *Context, a Args1[string]) Result {
			got <- a.V1
			return nil
		})
		_, toClient := pipe(t, client, server)
		conns = append(conns, toClient)
	}
	broken := newRecordConn()
	broken.failWith(errBrokenConn)

	err := sp.note.SendAll(append(conns, broken, nil), Pack1("broadcast"))
	assert.ErrorIs(t, err, errBrokenConn)
	for i := 0; i < 3; i++ {
		select {
		case v := <-got:
			assert.Equal(t, "broadcast", v)
		case <-time.After(time.Second):
			t.Fatalf("client %d missed the broadcast", i)
		}
	}
}

func TestUnansweredRequestTimesOut(t *testing.T) {
	p := newPeers(t)
	Handle(p.server, p.sprocs.echo, FromClient, func(*Context, Args2[string, int64]) Result { return nil })

	f, err := p.cprocs.echo.Request(p.toServer, Pack2("", int64(0)), WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	resp, err := f.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.False(t, resp.Responded)
	assert.Zero(t, resp.Args)
}
