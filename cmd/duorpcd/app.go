// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/luxfi/duorpc"
	"github.com/luxfi/duorpc/admin"
	"github.com/luxfi/duorpc/config"
	"github.com/luxfi/duorpc/internal/demo"
	"github.com/luxfi/duorpc/logging"

	_ "github.com/luxfi/duorpc/transport/grpcconn"
	_ "github.com/luxfi/duorpc/transport/memconn"
	_ "github.com/luxfi/duorpc/transport/wsconn"
)

// run is the main entry point after CLI parsing.
func run(opts Options) int {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}
	if opts.Role != "" {
		cfg.Node.Role = opts.Role
	}
	role, err := duorpc.ParseRole(cfg.Node.Role)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		return 1
	}

	logger, err := logging.Setup(cfg.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("duorpcd starting",
		zap.String("name", cfg.Node.Name),
		zap.Stringer("role", role),
		zap.Strings("transports", duorpc.AvailableTransports()),
	)
	logger.Debug("effective configuration", zap.Any("config", cfg))

	codec, _ := duorpc.CodecByName(cfg.Dispatch.Codec)
	d := duorpc.NewDispatcher(
		duorpc.WithRole(role),
		duorpc.WithName(cfg.Node.Name),
		duorpc.WithLogger(logger),
		duorpc.WithCodec(codec),
		duorpc.WithDefaultTimeout(cfg.Dispatch.DefaultTimeout),
		duorpc.WithMaxTimeout(cfg.Dispatch.MaxTimeout),
	)
	defer func() { _ = d.Close() }()
	procs := demo.Define(d)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hsCfg := duorpc.HighSpeedConfig{
		ListenAddr:       cfg.HighSpeed.Listen,
		AdvertisePort:    cfg.HighSpeed.Port,
		HandshakeTimeout: cfg.HighSpeed.HandshakeTimeout,
		MaxMessageSize:   cfg.Dispatch.MaxMessageSize,
	}

	var sessions admin.SessionSource
	switch role {
	case duorpc.RoleServer:
		procs.Serve(d)
		if code := runServer(ctx, cfg, d, hsCfg, &sessions, logger); code != 0 {
			return code
		}
	case duorpc.RoleClient:
		if code := runClient(ctx, cfg, opts, d, procs, hsCfg, &sessions, logger); code != 0 {
			return code
		}
	}

	if cfg.Admin.Enabled {
		srv, err := admin.NewServer(cfg.Admin.Listen, d, sessions, logger)
		if err != nil {
			logger.Error("failed to start admin server", zap.Error(err))
			return 1
		}
		go func() {
			if err := srv.Serve(ctx); err != nil {
				logger.Warn("admin server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("node is running; press Ctrl+C to exit")
	<-ctx.Done()
	logger.Info("shutting down")
	return 0
}

func runServer(ctx context.Context, cfg *config.Config, d *duorpc.Dispatcher, hsCfg duorpc.HighSpeedConfig, sessions *admin.SessionSource, logger *zap.Logger) int {
	var hooks duorpc.Hooks
	if cfg.HighSpeed.Enabled {
		hs := duorpc.NewHighSpeedServer(d, hsCfg)
		if err := hs.Listen(); err != nil {
			logger.Error("failed to start high-speed listener", zap.Error(err))
			return 1
		}
		go func() {
			if err := hs.Serve(ctx); err != nil {
				logger.Warn("high-speed listener stopped", zap.Error(err))
			}
		}()
		context.AfterFunc(ctx, func() { _ = hs.Close() })
		*sessions = hs
		hooks = duorpc.Hooks{
			OnOpen: func(c duorpc.Conn) {
				go func() {
					f, err := hs.Open(ctx, c)
					if err != nil {
						logger.Warn("high-speed offer failed", zap.String("conn", c.ID()), zap.Error(err))
						return
					}
					ack, err := f.Wait(ctx)
					if err == nil && (!ack.Responded || ack.Code != duorpc.Success) {
						logger.Warn("high-speed offer declined",
							zap.String("conn", c.ID()),
							zap.Bool("responded", ack.Responded),
							zap.Stringer("code", ack.Code))
					}
				}()
			},
			OnClose: hs.Forget,
		}
	}

	ln, err := duorpc.Listen(cfg.Primary.Transport, cfg.Primary.Listen, d, hooks)
	if err != nil {
		logger.Error("failed to start primary listener", zap.Error(err))
		return 1
	}
	logger.Info("primary listener started",
		zap.String("transport", cfg.Primary.Transport),
		zap.Stringer("addr", ln.Addr()))
	go func() {
		if err := ln.Serve(ctx); err != nil {
			logger.Warn("primary listener stopped", zap.Error(err))
		}
	}()
	return 0
}

func runClient(ctx context.Context, cfg *config.Config, opts Options, d *duorpc.Dispatcher, procs *demo.Procedures, hsCfg duorpc.HighSpeedConfig, sessions *admin.SessionSource, logger *zap.Logger) int {
	var hs *duorpc.HighSpeedClient
	if cfg.HighSpeed.Enabled {
		hs = duorpc.NewHighSpeedClient(d, hsCfg)
		context.AfterFunc(ctx, func() { _ = hs.Close() })
		*sessions = hs
	}
	conn, err := duorpc.Dial(ctx, cfg.Primary.Transport, cfg.Primary.Dial, d, duorpc.Hooks{
		OnClose: func(c duorpc.Conn) {
			logger.Warn("primary session closed", zap.String("conn", c.ID()))
			if hs != nil {
				hs.Forget(c)
			}
		},
	})
	if err != nil {
		logger.Error("failed to dial primary", zap.String("addr", cfg.Primary.Dial), zap.Error(err))
		return 1
	}
	context.AfterFunc(ctx, func() { _ = conn.Close() })
	logger.Info("primary session open", zap.String("conn", conn.ID()), zap.Stringer("remote", conn.RemoteAddr()))
	go procs.RunClient(ctx, conn, hs, opts.Interval, logger)
	return 0
}
