// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package demo holds the procedures duorpcd serves and exercises.
package demo

import (
	"context"
	"crypto/rand"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/duorpc"
	"github.com/luxfi/duorpc/wire"
)

var (
	SelectorPing = wire.Compact(7)
	SelectorEcho = wire.Compact(8)
	SelectorBlob = wire.Compact(9)
)

// Procedures are defined identically on both peers.
type Procedures struct {
	Ping *duorpc.Invoker[duorpc.Args1[string]]
	Echo *duorpc.Invoker[duorpc.Args2[string, int64]]
	Blob *duorpc.Invoker[duorpc.Args2[string, []byte]]
}

func Define(d *duorpc.Dispatcher) *Procedures {
	return &Procedures{
		Ping: duorpc.Define[duorpc.Args1[string]](d, "Ping", SelectorPing),
		Echo: duorpc.Define[duorpc.Args2[string, int64]](d, "Echo", SelectorEcho),
		Blob: duorpc.Define[duorpc.Args2[string, []byte]](d, "Blob", SelectorBlob, duorpc.HighSpeed()),
	}
}

// Serve installs the server-side handlers.
func (p *Procedures) Serve(d *duorpc.Dispatcher) {
	log := d.Logger()
	duorpc.Handle(d, p.Ping, duorpc.FromClient, func(ctx *duorpc.Context, a duorpc.Args1[string]) duorpc.Result {
		log.Debug("ping", zap.String("from", ctx.Conn.ID()), zap.String("note", a.V1))
		return duorpc.Success
	})
	duorpc.Handle(d, p.Echo, duorpc.FromClient, func(ctx *duorpc.Context, a duorpc.Args2[string, int64]) duorpc.Result {
		if err := p.Echo.Respond(ctx, a); err != nil {
			log.Warn("echo reply failed", zap.Error(err))
			return duorpc.Failure
		}
		return nil
	})
	duorpc.Handle(d, p.Blob, duorpc.FromClient, func(ctx *duorpc.Context, a duorpc.Args2[string, []byte]) duorpc.Result {
		log.Info("blob received",
			zap.String("name", a.V1),
			zap.Int("bytes", len(a.V2)),
			zap.Bool("highspeed", ctx.HighSpeed),
		)
		return duorpc.Success
	})
}

// RunClient pings and echoes over conn every interval, and sends one blob
// over the side channel once it is verified. It returns when ctx ends.
func (p *Procedures) RunClient(ctx context.Context, conn duorpc.Conn, hs *duorpc.HighSpeedClient, interval time.Duration, log *zap.Logger) {
	if hs != nil {
		hs.WhenReady(conn, func(duorpc.Conn) {
			go p.sendBlob(ctx, conn, log)
		})
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var seq int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		seq++

		ack, err := p.Ping.RequestAck(conn, duorpc.Pack1("hello"))
		if err != nil {
			log.Warn("ping not sent", zap.Error(err))
			continue
		}
		res, err := ack.Wait(ctx)
		if err != nil {
			return
		}
		log.Info("ping", zap.Bool("responded", res.Responded), zap.Stringer("code", res.Code),
			zap.Duration("rtt", time.Since(ack.Created())))

		f, err := p.Echo.Request(conn, duorpc.Pack2("echo", seq))
		if err != nil {
			log.Warn("echo not sent", zap.Error(err))
			continue
		}
		echo, err := f.Wait(ctx)
		if err != nil && ctx.Err() != nil {
			return
		}
		log.Info("echo", zap.Bool("responded", echo.Responded), zap.Int64("seq", echo.Args.V2), zap.Error(err))
	}
}

func (p *Procedures) sendBlob(ctx context.Context, conn duorpc.Conn, log *zap.Logger) {
	data := make([]byte, 256*1024)
	_, _ = rand.Read(data)
	f, err := p.Blob.RequestAck(conn, duorpc.Pack2("random.bin", data), duorpc.WithTimeout(30*time.Second))
	if err != nil {
		log.Warn("blob not sent", zap.Error(err))
		return
	}
	ack, err := f.Wait(ctx)
	if err != nil {
		return
	}
	log.Info("blob acknowledged", zap.Bool("responded", ack.Responded), zap.Stringer("code", ack.Code))
}
