// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/duorpc/wire"
)

// InvokerOption configures an Invoker at definition time.
type InvokerOption func(*procedure)

// HighSpeed routes the procedure over the verified side channel of the
// target session whenever one exists.
func HighSpeed() InvokerOption {
	return func(p *procedure) { p.highSpeed = true }
}

// RequestOption configures one outgoing request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	timeout time.Duration
	flags   wire.Flags
}

// WithTimeout sets how long to wait for the reply. Zero or negative selects
// the dispatcher default; values above the ceiling are clamped.
func WithTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) { o.timeout = d }
}

// WithHandlerOnResponse asks for the local handler to run on the reply in
// addition to completing the request. Responders echo the flag.
func WithHandlerOnResponse() RequestOption {
	return func(o *requestOptions) { o.flags |= wire.FlagRunOriginalMethodOnRequest }
}

func newRequestOptions(opts []RequestOption) requestOptions {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Invoker is a typed procedure: it encodes A into frames, decodes frames
// back into A, and sends them in the supported delivery patterns.
type Invoker[A Args] struct {
	d    *Dispatcher
	proc *procedure
	// routed is false when another invoker already owned the selector.
	routed bool
}

// Define registers a procedure on d. Call it once per procedure during
// startup. A selector clash is logged and the earlier invoker keeps
// receiving; the returned invoker can still send.
func Define[A Args](d *Dispatcher, name string, sel wire.Selector, opts ...InvokerOption) *Invoker[A] {
	var zero A
	p := &procedure{
		name:     name,
		selector: sel,
		argTypes: zero.ArgTypes(),
		decode: func(codec Codec, payload []byte) (Args, error) {
			return decodeArgs[A](codec, payload)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	inv := &Invoker[A]{d: d, proc: p}
	inv.routed = d.register(p)
	return inv
}

func decodeArgs[A Args](codec Codec, payload []byte) (out A, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	var zero A
	a, err := zero.UnmarshalArgs(newDecoder(codec, payload))
	if err != nil {
		return zero, err
	}
	return a.(A), nil
}

func (inv *Invoker[A]) Name() string { return inv.proc.name }

func (inv *Invoker[A]) Selector() wire.Selector { return inv.proc.selector }

func (inv *Invoker[A]) IsHighSpeed() bool { return inv.proc.highSpeed }

// Routed reports whether received messages for the selector reach this
// invoker's handlers.
func (inv *Invoker[A]) Routed() bool { return inv.routed }

func zapProcedure(p *procedure) []zap.Field {
	return []zap.Field{zap.String("procedure", p.name), zap.Stringer("selector", p.selector)}
}

// Encode returns header + arguments as one frame. The selector and payload
// size of h are filled in.
func (inv *Invoker[A]) Encode(h wire.Overhead, args A) (frame []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrWriteFailed, inv.proc.name, r)
		}
		if err != nil {
			inv.d.log.Warn("arguments could not be written", append(zapProcedure(inv.proc), zap.Error(err))...)
		}
	}()
	enc := newEncoder(inv.d.codec, nil)
	if err := args.MarshalArgs(enc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWriteFailed, inv.proc.name, err)
	}
	h.Selector = inv.proc.selector
	frame, err = wire.Frame(h, enc.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWriteFailed, inv.proc.name, err)
	}
	return frame, nil
}

// Decode reads a payload into A.
func (inv *Invoker[A]) Decode(payload []byte) (A, error) {
	a, err := decodeArgs[A](inv.d.codec, payload)
	if err != nil {
		inv.d.log.Warn("arguments could not be read", append(zapProcedure(inv.proc), zap.Error(err))...)
		return a, fmt.Errorf("%w: %s: %w", ErrReadFailed, inv.proc.name, err)
	}
	return a, nil
}

// target picks the connection a frame for conn actually travels on.
func (inv *Invoker[A]) target(conn Conn) (Conn, wire.Flags) {
	if conn.Kind() == KindHighSpeed {
		return conn, wire.FlagHighSpeed
	}
	if inv.proc.highSpeed {
		if hs := inv.d.highSpeedFor(conn); hs != nil {
			return hs, wire.FlagHighSpeed
		}
	}
	return conn, wire.FlagNone
}

// Send delivers args without waiting for anything.
func (inv *Invoker[A]) Send(conn Conn, args A) error {
	if conn == nil {
		return ErrNilConn
	}
	to, hs := inv.target(conn)
	frame, err := inv.Encode(wire.Overhead{Flags: hs}, args)
	if err != nil {
		return err
	}
	return inv.d.send(to, frame)
}

// SendAll delivers one serialized frame to every connection. Errors are
// joined; a failed connection does not stop the others.
func (inv *Invoker[A]) SendAll(conns []Conn, args A) error {
	frame, err := inv.Encode(wire.Overhead{}, args)
	if err != nil {
		return err
	}
	var errs []error
	for _, conn := range conns {
		if conn == nil {
			continue
		}
		to, hs := inv.target(conn)
		out := frame
		if hs != wire.FlagNone {
			out = append([]byte(nil), frame...)
			out[0] |= byte(hs)
		}
		if err := inv.d.send(to, out); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// request registers a pending entry under a fresh key, patches the key into
// frame and sends it.
func (inv *Invoker[A]) request(conn Conn, frame []byte, kind pendingKind, timeout time.Duration) (*PendingRequest, error) {
	if conn == nil {
		return nil, ErrNilConn
	}
	to, hs := inv.target(conn)
	frame[0] |= byte(hs)
	key := NextRequestKey()
	if err := wire.PutRequestKey(frame, key); err != nil {
		return nil, err
	}
	p, err := inv.d.newPending(key, inv.proc, kind, to, timeout)
	if err != nil {
		return nil, err
	}
	if err := inv.d.send(to, frame); err != nil {
		inv.d.cancelPending(p, err)
		return nil, err
	}
	return p, nil
}

// Request sends args and returns a Future for the typed reply.
func (inv *Invoker[A]) Request(conn Conn, args A, opts ...RequestOption) (*Future[A], error) {
	o := newRequestOptions(opts)
	frame, err := inv.Encode(wire.Overhead{Flags: wire.FlagRequest | o.flags}, args)
	if err != nil {
		return nil, err
	}
	p, err := inv.request(conn, frame, pendingResponse, o.timeout)
	if err != nil {
		return nil, err
	}
	return &Future[A]{PendingRequest: p}, nil
}

// RequestAll sends one serialized frame to every connection, each with its
// own request key. The result is aligned with conns; failed entries are nil
// and their errors joined.
func (inv *Invoker[A]) RequestAll(conns []Conn, args A, opts ...RequestOption) ([]*Future[A], error) {
	o := newRequestOptions(opts)
	frame, err := inv.Encode(wire.Overhead{Flags: wire.FlagRequest | o.flags}, args)
	if err != nil {
		return nil, err
	}
	out := make([]*Future[A], len(conns))
	var errs []error
	for i, conn := range conns {
		p, err := inv.request(conn, append([]byte(nil), frame...), pendingResponse, o.timeout)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[i] = &Future[A]{PendingRequest: p}
	}
	return out, errors.Join(errs...)
}

// RequestAck sends args and returns an AckFuture for the status code the
// receiver acknowledges with.
func (inv *Invoker[A]) RequestAck(conn Conn, args A, opts ...RequestOption) (*AckFuture, error) {
	o := newRequestOptions(opts)
	frame, err := inv.Encode(wire.Overhead{Flags: wire.FlagAcknowledgeRequest | o.flags}, args)
	if err != nil {
		return nil, err
	}
	p, err := inv.request(conn, frame, pendingAck, o.timeout)
	if err != nil {
		return nil, err
	}
	return &AckFuture{PendingRequest: p}, nil
}

// RequestAckAll is RequestAck for many connections with one serialization.
func (inv *Invoker[A]) RequestAckAll(conns []Conn, args A, opts ...RequestOption) ([]*AckFuture, error) {
	o := newRequestOptions(opts)
	frame, err := inv.Encode(wire.Overhead{Flags: wire.FlagAcknowledgeRequest | o.flags}, args)
	if err != nil {
		return nil, err
	}
	out := make([]*AckFuture, len(conns))
	var errs []error
	for i, conn := range conns {
		p, err := inv.request(conn, append([]byte(nil), frame...), pendingAck, o.timeout)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[i] = &AckFuture{PendingRequest: p}
	}
	return out, errors.Join(errs...)
}

// replyFlags are the flags of a reply to the message described by ctx.
func replyFlags(ctx *Context, base wire.Flags) wire.Flags {
	f := base | ctx.Header.Flags&wire.FlagRunOriginalMethodOnRequest
	if ctx.Conn.Kind() == KindHighSpeed {
		f |= wire.FlagHighSpeed
	}
	return f
}

// Respond answers the request in ctx with args.
func (inv *Invoker[A]) Respond(ctx *Context, args A) error {
	if !ctx.Header.Flags.HasRequestKey() {
		return ErrNotRequest
	}
	frame, err := inv.Encode(wire.Overhead{
		Flags:      replyFlags(ctx, wire.FlagRequestResponse),
		RequestKey: ctx.Header.RequestKey,
	}, args)
	if err != nil {
		return err
	}
	return inv.d.send(ctx.Conn, frame)
}

// RespondWithAck answers the request in ctx and waits for the requester to
// acknowledge the answer.
func (inv *Invoker[A]) RespondWithAck(ctx *Context, args A, opts ...RequestOption) (*AckFuture, error) {
	if !ctx.Header.Flags.HasRequestKey() {
		return nil, ErrNotRequest
	}
	o := newRequestOptions(opts)
	key := NextRequestKey()
	frame, err := inv.Encode(wire.Overhead{
		Flags:       replyFlags(ctx, wire.FlagRequestResponseWithAcknowledgeRequest|o.flags),
		RequestKey:  ctx.Header.RequestKey,
		ResponseKey: key,
	}, args)
	if err != nil {
		return nil, err
	}
	p, err := inv.d.newPending(key, inv.proc, pendingAck, ctx.Conn, o.timeout)
	if err != nil {
		return nil, err
	}
	if err := inv.d.send(ctx.Conn, frame); err != nil {
		inv.d.cancelPending(p, err)
		return nil, err
	}
	return &AckFuture{PendingRequest: p}, nil
}
