// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/duorpc/wire"
)

// Role is the side of the primary transport a dispatcher runs on.
type Role uint8

const (
	RoleServer Role = iota
	RoleClient
)

func (r Role) String() string {
	if r == RoleClient {
		return "client"
	}
	return "server"
}

// ParseRole maps "server" and "client" to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "server":
		return RoleServer, nil
	case "client":
		return RoleClient, nil
	}
	return 0, fmt.Errorf("duorpc: unknown role %q", s)
}

// incoming is the direction of every message this role receives.
func (r Role) incoming() Direction {
	if r == RoleClient {
		return FromServer
	}
	return FromClient
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithRole(r Role) Option { return func(d *Dispatcher) { d.role = r } }

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

func WithCodec(c Codec) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.codec = c
		}
	}
}

func WithDefaultTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.defaultTimeout = t
		}
	}
}

func WithMaxTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.maxTimeout = t
		}
	}
}

// WithName labels the dispatcher in logs and metrics.
func WithName(name string) Option { return func(d *Dispatcher) { d.name = name } }

// procedure is the untyped half of an Invoker.
type procedure struct {
	name      string
	selector  wire.Selector
	highSpeed bool
	argTypes  []reflect.Type
	decode    func(codec Codec, payload []byte) (Args, error)
}

type handlerKey struct {
	selector wire.Selector
	dir      Direction
}

type handlerEntry struct {
	proc *procedure
	dir  Direction
	call func(ctx *Context, args Args) Result
}

// highSpeedRouter finds the verified side channel of a primary session.
type highSpeedRouter interface {
	route(primary Conn) Conn
}

// Dispatcher owns the procedure table, the handler table and the
// outstanding requests of one node. Transports hand it every received frame
// through Deliver.
type Dispatcher struct {
	name           string
	role           Role
	log            *zap.Logger
	codec          Codec
	defaultTimeout time.Duration
	maxTimeout     time.Duration

	mu       sync.Mutex
	procs    map[wire.Selector]*procedure
	handlers map[handlerKey]*handlerEntry
	pending  map[int64]*PendingRequest
	routers  []highSpeedRouter
	closed   bool
	closing  chan struct{}

	received  atomic.Uint64
	dropped   atomic.Uint64
	sent      atomic.Uint64
	responded atomic.Uint64
	timedOut  atomic.Uint64
	failed    atomic.Uint64
}

// NewDispatcher returns a Dispatcher with the server role, the global zap
// logger and the CBOR codec unless overridden.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		role:           RoleServer,
		log:            zap.L(),
		codec:          defaultCodec,
		defaultTimeout: DefaultTimeout,
		maxTimeout:     MaxTimeout,
		procs:          make(map[wire.Selector]*procedure),
		handlers:       make(map[handlerKey]*handlerEntry),
		pending:        make(map[int64]*PendingRequest),
		closing:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.name == "" {
		d.name = d.role.String()
	}
	if d.defaultTimeout > d.maxTimeout {
		d.defaultTimeout = d.maxTimeout
	}
	d.log = d.log.With(zap.String("dispatcher", d.name))
	RegisterMetrics()
	return d
}

func (d *Dispatcher) Name() string { return d.name }

func (d *Dispatcher) Role() Role { return d.role }

func (d *Dispatcher) Codec() Codec { return d.codec }

func (d *Dispatcher) Logger() *zap.Logger { return d.log }

// register adds p to the procedure table. The first procedure registered for
// a selector keeps it.
func (d *Dispatcher) register(p *procedure) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.procs[p.selector]; ok {
		d.log.Warn("duplicate selector, keeping first registration",
			zap.Stringer("selector", p.selector),
			zap.String("procedure", p.name),
			zap.String("registered", prev.name),
		)
		return false
	}
	d.procs[p.selector] = p
	return true
}

func (d *Dispatcher) addHandler(entry *handlerEntry) bool {
	log := d.log.With(
		zap.Stringer("selector", entry.proc.selector),
		zap.String("procedure", entry.proc.name),
		zap.Stringer("direction", entry.dir),
	)
	if entry.dir != FromEither && entry.dir != d.role.incoming() {
		log.Warn("handler direction never received by this role, disqualified",
			zap.Stringer("role", d.role))
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.procs[entry.proc.selector] != entry.proc {
		log.Warn("handler bound to an invoker that does not own its selector, disqualified")
		return false
	}
	key := handlerKey{selector: entry.proc.selector, dir: entry.dir}
	if _, ok := d.handlers[key]; ok {
		log.Warn("duplicate handler, keeping first registration")
		return false
	}
	d.handlers[key] = entry
	return true
}

// lookupHandler prefers a handler registered for the exact direction over a
// FromEither one. d.mu must be held.
func (d *Dispatcher) lookupHandler(sel wire.Selector) *handlerEntry {
	if h, ok := d.handlers[handlerKey{selector: sel, dir: d.role.incoming()}]; ok {
		return h
	}
	return d.handlers[handlerKey{selector: sel, dir: FromEither}]
}

func (d *Dispatcher) attachRouter(r highSpeedRouter) {
	d.mu.Lock()
	d.routers = append(d.routers, r)
	d.mu.Unlock()
}

// highSpeedFor returns the verified side channel for primary, if any.
func (d *Dispatcher) highSpeedFor(primary Conn) Conn {
	d.mu.Lock()
	routers := d.routers
	d.mu.Unlock()
	for _, r := range routers {
		if c := r.route(primary); c != nil {
			return c
		}
	}
	return nil
}

func (d *Dispatcher) clampTimeout(t time.Duration) time.Duration {
	switch {
	case t <= 0:
		return d.defaultTimeout
	case t > d.maxTimeout:
		d.log.Warn("request timeout above ceiling, clamped",
			zap.Duration("requested", t),
			zap.Duration("max", d.maxTimeout),
		)
		return d.maxTimeout
	}
	return t
}

// newPending registers a request before its frame is sent so a fast reply
// always finds it.
func (d *Dispatcher) newPending(key int64, proc *procedure, kind pendingKind, conn Conn, timeout time.Duration) (*PendingRequest, error) {
	timeout = d.clampTimeout(timeout)
	p := &PendingRequest{
		key:     key,
		proc:    proc,
		kind:    kind,
		conn:    conn,
		created: time.Now(),
		owner:   d,
		done:    make(chan struct{}),
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	d.pending[key] = p
	pendingGauge.WithLabelValues(d.name).Set(float64(len(d.pending)))
	d.mu.Unlock()

	p.mu.Lock()
	p.arm(timeout)
	p.mu.Unlock()
	return p, nil
}

// takePending removes and returns the request a reply completes. The
// selector and the expected reply kind must match.
func (d *Dispatcher) takePending(h wire.Overhead) *PendingRequest {
	p, ok := d.pending[h.RequestKey]
	if !ok || p.proc.selector != h.Selector {
		return nil
	}
	isAck := h.Flags.Has(wire.FlagAcknowledgeResponse)
	if isAck != (p.kind == pendingAck) {
		return nil
	}
	delete(d.pending, h.RequestKey)
	pendingGauge.WithLabelValues(d.name).Set(float64(len(d.pending)))
	return p
}

// dropPending removes p after it completed without a reply.
func (d *Dispatcher) dropPending(p *PendingRequest, outcome string) {
	d.mu.Lock()
	if d.pending[p.key] == p {
		delete(d.pending, p.key)
		pendingGauge.WithLabelValues(d.name).Set(float64(len(d.pending)))
	}
	d.mu.Unlock()
	d.countOutcome(outcome, p)
}

func (d *Dispatcher) countOutcome(outcome string, p *PendingRequest) {
	switch outcome {
	case outcomeResponded:
		d.responded.Add(1)
	case outcomeTimeout:
		d.timedOut.Add(1)
		d.log.Debug("request timed out",
			zap.Stringer("selector", p.proc.selector),
			zap.Int64("request_key", p.key),
		)
	default:
		d.failed.Add(1)
	}
	recordOutcome(d.name, outcome, time.Since(p.created))
}

// cancelPending fails p, used when its frame could not be sent.
func (d *Dispatcher) cancelPending(p *PendingRequest, err error) {
	if p.finish(nil, false, nil, nil, Failure, err) {
		d.dropPending(p, outcomeFailed)
	}
}

// FailConn completes every request waiting on conn as not responded. High
// speed sockets call it when they are lost.
func (d *Dispatcher) FailConn(conn Conn) int {
	d.mu.Lock()
	var victims []*PendingRequest
	for key, p := range d.pending {
		if p.conn == conn {
			victims = append(victims, p)
			delete(d.pending, key)
		}
	}
	pendingGauge.WithLabelValues(d.name).Set(float64(len(d.pending)))
	d.mu.Unlock()

	n := 0
	for _, p := range victims {
		if p.finish(nil, false, nil, nil, Failure, ErrConnClosed) {
			d.countOutcome(outcomeFailed, p)
			n++
		}
	}
	if n > 0 {
		d.log.Info("failed requests of lost connection",
			zap.String("conn", conn.ID()),
			zap.Int("requests", n),
		)
	}
	return n
}

// Close fails every outstanding request. Later deliveries are dropped.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.closing)
	victims := make([]*PendingRequest, 0, len(d.pending))
	for _, p := range d.pending {
		victims = append(victims, p)
	}
	clear(d.pending)
	pendingGauge.WithLabelValues(d.name).Set(0)
	d.mu.Unlock()

	for _, p := range victims {
		if p.finish(nil, false, nil, nil, Failure, ErrClosed) {
			d.countOutcome(outcomeFailed, p)
		}
	}
	return nil
}

func (d *Dispatcher) send(conn Conn, frame []byte) error {
	if conn == nil {
		return ErrNilConn
	}
	if err := conn.Send(frame); err != nil {
		return fmt.Errorf("send to %s: %w", conn.ID(), err)
	}
	d.sent.Add(1)
	recordSent(d.name, conn.Kind())
	return nil
}

func (d *Dispatcher) sendAck(ctx *Context, code Status) error {
	flags := wire.FlagAcknowledgeResponse
	if ctx.Conn.Kind() == KindHighSpeed {
		flags |= wire.FlagHighSpeed
	}
	var payload [4]byte
	binary.LittleEndian.PutUint32(payload[:], uint32(code))
	frame, err := wire.Frame(wire.Overhead{
		Flags:      flags,
		Selector:   ctx.Header.Selector,
		RequestKey: ctx.ackKey(),
	}, payload[:])
	if err != nil {
		return err
	}
	if err := d.send(ctx.Conn, frame); err != nil {
		d.log.Warn("acknowledgement not sent",
			append(msgFields(ctx.Conn, ctx.Header), zap.Error(err))...)
		return err
	}
	return nil
}

func msgFields(conn Conn, h wire.Overhead) []zap.Field {
	fields := []zap.Field{
		zap.Stringer("selector", h.Selector),
		zap.Stringer("flags", h.Flags),
		zap.Int32("payload_size", h.PayloadSize),
	}
	if conn != nil {
		fields = append(fields, zap.String("conn", conn.ID()), zap.Stringer("transport", conn.Kind()))
	}
	if h.Flags.HasRequestKey() {
		fields = append(fields, zap.Int64("request_key", h.RequestKey))
	}
	if h.Flags.HasResponseKey() {
		fields = append(fields, zap.Int64("response_key", h.ResponseKey))
	}
	return fields
}

// Deliver handles one complete frame received on conn. It never panics; a
// frame that cannot be handled is logged and dropped.
func (d *Dispatcher) Deliver(conn Conn, frame []byte) {
	var h wire.Overhead
	defer func() {
		if r := recover(); r != nil {
			d.drop(dropPanic)
			d.log.Error("panic while dispatching",
				append(msgFields(conn, h), zap.Any("panic", r), zap.Stack("stack"))...)
		}
	}()

	received := time.Now()
	h, payload, err := wire.SplitFrame(frame)
	if err != nil {
		d.drop(dropDecode)
		d.log.Warn("undecodable frame dropped",
			zap.String("conn", conn.ID()), zap.Int("len", len(frame)), zap.Error(err))
		return
	}
	d.received.Add(1)
	recordReceived(d.name, conn.Kind())

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	proc, ok := d.procs[h.Selector]
	if !ok {
		d.mu.Unlock()
		d.drop(dropUnknown)
		d.log.Debug("unknown selector, dropped", msgFields(conn, h)...)
		return
	}
	var pend *PendingRequest
	if h.Flags.IsReply() {
		pend = d.takePending(h)
	}
	entry := d.lookupHandler(h.Selector)
	d.mu.Unlock()

	ctx := newContext(d, conn, h, received)

	if h.Flags.Has(wire.FlagAcknowledgeResponse) {
		if pend == nil {
			d.drop(dropUnmatchedAck)
			d.log.Debug("acknowledgement without pending request", msgFields(conn, h)...)
			return
		}
		d.completeAck(pend, ctx, payload)
		return
	}

	if pend != nil {
		d.completeResponse(pend, proc, ctx, payload)
		if !h.Flags.Has(wire.FlagRunOriginalMethodOnRequest) {
			if ctx.WantsAck() {
				_ = ctx.Acknowledge(Success)
			}
			return
		}
	}

	if entry == nil {
		if pend == nil {
			d.drop(dropNoHandler)
			d.log.Debug("no handler for selector, dropped", msgFields(conn, h)...)
		} else if ctx.WantsAck() {
			_ = ctx.Acknowledge(Success)
		}
		return
	}

	args, err := proc.decode(d.codec, payload)
	if err != nil {
		d.drop(dropReadFailed)
		d.log.Warn("arguments could not be read, dropped",
			append(msgFields(conn, h), zap.String("procedure", proc.name), zap.Error(err))...)
		return
	}

	res, ok := d.invoke(entry, ctx, args)
	if !ok {
		return
	}
	d.acknowledge(ctx, res)
}

func (d *Dispatcher) drop(reason string) {
	d.dropped.Add(1)
	recordDropped(d.name, reason)
}

func (d *Dispatcher) completeResponse(p *PendingRequest, proc *procedure, ctx *Context, payload []byte) {
	args, err := proc.decode(d.codec, payload)
	if err != nil {
		d.log.Warn("response could not be read",
			append(msgFields(ctx.Conn, ctx.Header), zap.String("procedure", proc.name), zap.Error(err))...)
		err = fmt.Errorf("%w: %s: %w", ErrReadFailed, proc.name, err)
		args = nil
	}
	if p.finish(nil, true, ctx, args, Success, err) {
		d.countOutcome(outcomeResponded, p)
	}
}

func (d *Dispatcher) completeAck(p *PendingRequest, ctx *Context, payload []byte) {
	code := Success
	if len(payload) >= 4 {
		code = Status(int32(binary.LittleEndian.Uint32(payload)))
	}
	if p.finish(nil, true, ctx, nil, code, nil) {
		d.countOutcome(outcomeResponded, p)
	}
}

// invoke runs the handler and reports false if it panicked.
func (d *Dispatcher) invoke(entry *handlerEntry, ctx *Context, args Args) (res Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.drop(dropPanic)
			d.log.Error("handler panicked",
				append(msgFields(ctx.Conn, ctx.Header),
					zap.String("procedure", entry.proc.name),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)...)
			ok = false
		}
	}()
	return entry.call(ctx, args), true
}

// acknowledge sends the acknowledgement implied by a handler result unless
// the handler already sent one.
func (d *Dispatcher) acknowledge(ctx *Context, res Result) {
	if !ctx.WantsAck() || ctx.Acknowledged() {
		return
	}
	switch r := res.(type) {
	case nil:
		_ = ctx.Acknowledge(Success)
	case Status:
		_ = ctx.Acknowledge(r)
	case *Deferred:
		if r == nil {
			_ = ctx.Acknowledge(Success)
			return
		}
		if s, ok := r.Status(); ok {
			_ = ctx.Acknowledge(s)
			return
		}
		go func() {
			select {
			case <-r.Done():
				s, _ := r.Status()
				_ = ctx.Acknowledge(s)
			case <-d.closing:
			}
		}()
	}
}

// ProcedureInfo describes one registered procedure.
type ProcedureInfo struct {
	Name       string   `json:"name"`
	Selector   string   `json:"selector"`
	Stable     bool     `json:"stable"`
	HighSpeed  bool     `json:"highSpeed"`
	ArgTypes   []string `json:"argTypes"`
	Directions []string `json:"directions"`
}

// Procedures lists the procedure table sorted by name.
func (d *Dispatcher) Procedures() []ProcedureInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ProcedureInfo, 0, len(d.procs))
	for sel, p := range d.procs {
		info := ProcedureInfo{
			Name:      p.name,
			Selector:  sel.String(),
			Stable:    sel.IsStable(),
			HighSpeed: p.highSpeed,
		}
		for _, t := range p.argTypes {
			info.ArgTypes = append(info.ArgTypes, t.String())
		}
		for _, dir := range []Direction{FromClient, FromServer, FromEither} {
			if _, ok := d.handlers[handlerKey{selector: sel, dir: dir}]; ok {
				info.Directions = append(info.Directions, dir.String())
			}
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PendingInfo describes one outstanding request.
type PendingInfo struct {
	Key       int64     `json:"key"`
	Procedure string    `json:"procedure"`
	Selector  string    `json:"selector"`
	Conn      string    `json:"conn"`
	Ack       bool      `json:"ack"`
	Created   time.Time `json:"created"`
	Deadline  time.Time `json:"deadline"`
}

// PendingRequests lists outstanding requests, oldest first.
func (d *Dispatcher) PendingRequests() []PendingInfo {
	d.mu.Lock()
	snapshot := make([]*PendingRequest, 0, len(d.pending))
	for _, p := range d.pending {
		snapshot = append(snapshot, p)
	}
	d.mu.Unlock()

	out := make([]PendingInfo, 0, len(snapshot))
	for _, p := range snapshot {
		info := PendingInfo{
			Key:       p.key,
			Procedure: p.proc.name,
			Selector:  p.proc.selector.String(),
			Ack:       p.kind == pendingAck,
			Created:   p.created,
			Deadline:  p.Deadline(),
		}
		if p.conn != nil {
			info.Conn = p.conn.ID()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Stats is a point-in-time snapshot of dispatcher counters.
type Stats struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Procedures int    `json:"procedures"`
	Handlers   int    `json:"handlers"`
	Pending    int    `json:"pending"`
	Received   uint64 `json:"received"`
	Dropped    uint64 `json:"dropped"`
	Sent       uint64 `json:"sent"`
	Responded  uint64 `json:"responded"`
	TimedOut   uint64 `json:"timedOut"`
	Failed     uint64 `json:"failed"`
}

func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	s := Stats{
		Name:       d.name,
		Role:       d.role.String(),
		Procedures: len(d.procs),
		Handlers:   len(d.handlers),
		Pending:    len(d.pending),
	}
	d.mu.Unlock()
	s.Received = d.received.Load()
	s.Dropped = d.dropped.Load()
	s.Sent = d.sent.Load()
	s.Responded = d.responded.Load()
	s.TimedOut = d.timedOut.Load()
	s.Failed = d.failed.Load()
	return s
}
