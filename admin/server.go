// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package admin serves a JSON-RPC 2.0 introspection API for a running node
// and Prometheus metrics next to it.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/luxfi/duorpc"
)

const (
	RPCPath     = "/rpc"
	MetricsPath = "/metrics"
	HealthPath  = "/healthz"
)

// Source is the dispatcher view the admin API reads.
type Source interface {
	Name() string
	Procedures() []duorpc.ProcedureInfo
	PendingRequests() []duorpc.PendingInfo
	Stats() duorpc.Stats
}

// SessionSource lists high-speed sockets. Both HighSpeedServer and
// HighSpeedClient implement it.
type SessionSource interface {
	Sessions() []duorpc.SessionInfo
}

type NoArgs struct{}

type ProceduresReply struct {
	Procedures []duorpc.ProcedureInfo `json:"procedures"`
}

type PendingReply struct {
	Pending []duorpc.PendingInfo `json:"pending"`
}

type StatsReply struct {
	Stats duorpc.Stats `json:"stats"`
}

type SessionsReply struct {
	Sessions []duorpc.SessionInfo `json:"sessions"`
}

// DispatcherService is exposed as "Dispatcher.*".
type DispatcherService struct {
	src Source
}

func (s *DispatcherService) Procedures(_ *http.Request, _ *NoArgs, reply *ProceduresReply) error {
	reply.Procedures = s.src.Procedures()
	return nil
}

func (s *DispatcherService) Pending(_ *http.Request, _ *NoArgs, reply *PendingReply) error {
	reply.Pending = s.src.PendingRequests()
	return nil
}

func (s *DispatcherService) Stats(_ *http.Request, _ *NoArgs, reply *StatsReply) error {
	reply.Stats = s.src.Stats()
	return nil
}

// HighSpeedService is exposed as "HighSpeed.*".
type HighSpeedService struct {
	src SessionSource
}

func (s *HighSpeedService) Sessions(_ *http.Request, _ *NoArgs, reply *SessionsReply) error {
	reply.Sessions = []duorpc.SessionInfo{}
	if s.src != nil {
		reply.Sessions = s.src.Sessions()
	}
	return nil
}

// NewHandler builds the admin mux. sessions may be nil when the high-speed
// channel is disabled.
func NewHandler(src Source, sessions SessionSource) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json2.NewCodec(), "application/json")
	if err := server.RegisterService(&DispatcherService{src: src}, "Dispatcher"); err != nil {
		return nil, fmt.Errorf("register Dispatcher service: %w", err)
	}
	if err := server.RegisterService(&HighSpeedService{src: sessions}, "HighSpeed"); err != nil {
		return nil, fmt.Errorf("register HighSpeed service: %w", err)
	}

	duorpc.RegisterMetrics()
	mux := http.NewServeMux()
	mux.Handle(RPCPath, server)
	mux.Handle(MetricsPath, promhttp.Handler())
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux, nil
}

// Server runs the admin handler on its own listener.
type Server struct {
	log  *zap.Logger
	ln   net.Listener
	http *http.Server
}

func NewServer(addr string, src Source, sessions SessionSource, log *zap.Logger) (*Server, error) {
	handler, err := NewHandler(src, sessions)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("admin listen %s: %w", addr, err)
	}
	if log == nil {
		log = zap.L()
	}
	return &Server{
		log: log.Named("admin"),
		ln:  ln,
		http: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve blocks until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("admin server started", zap.Stringer("addr", s.ln.Addr()))
		errCh <- s.http.Serve(s.ln)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) Close() error { return s.http.Close() }
