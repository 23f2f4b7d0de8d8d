// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/duorpc/wire"
)

const (
	// DefaultTimeout applies when a request does not set one.
	DefaultTimeout = 5 * time.Second
	// MaxTimeout is the ceiling; longer timeouts are clamped.
	MaxTimeout = 600 * time.Second
)

type pendingKind uint8

const (
	pendingResponse pendingKind = iota
	pendingAck
)

// PendingRequest is an outgoing request waiting for its reply. It completes
// exactly once: on a matching reply, on timeout, or when its connection or
// dispatcher goes away.
type PendingRequest struct {
	key     int64
	proc    *procedure
	kind    pendingKind
	conn    Conn
	created time.Time
	owner   *Dispatcher

	mu        sync.Mutex
	deadline  time.Time
	timer     *time.Timer
	gen       uint64
	done      chan struct{}
	completed bool

	responded bool
	ctx       *Context
	args      Args
	code      Status
	err       error
}

func (p *PendingRequest) Key() int64 { return p.key }

func (p *PendingRequest) Selector() wire.Selector { return p.proc.selector }

func (p *PendingRequest) Conn() Conn { return p.conn }

func (p *PendingRequest) Created() time.Time { return p.created }

// Deadline returns the current expiry time.
func (p *PendingRequest) Deadline() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deadline
}

// Done is closed on completion.
func (p *PendingRequest) Done() <-chan struct{} { return p.done }

// Completed reports whether the request has finished. Callers on a
// cooperative loop can poll it instead of waiting on Done; an overdue request
// is expired on the spot.
func (p *PendingRequest) Completed() bool {
	p.mu.Lock()
	completed, gen, overdue := p.completed, p.gen, time.Now().After(p.deadline)
	p.mu.Unlock()
	if !completed && overdue {
		p.expire(gen)
		return p.isCompleted()
	}
	return completed
}

func (p *PendingRequest) isCompleted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}

// KeepAlive moves the deadline to d from now. It returns false if the
// request already completed.
func (p *PendingRequest) KeepAlive(d time.Duration) bool {
	d = p.owner.clampTimeout(d)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.completed {
		return false
	}
	p.arm(d)
	return true
}

// arm replaces the timer. p.mu must be held.
func (p *PendingRequest) arm(d time.Duration) {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.gen++
	gen := p.gen
	p.deadline = time.Now().Add(d)
	p.timer = time.AfterFunc(d, func() { p.expire(gen) })
}

func (p *PendingRequest) expire(gen uint64) {
	if !p.finish(&gen, false, nil, nil, Failure, nil) {
		return
	}
	p.owner.dropPending(p, outcomeTimeout)
}

// finish records the outcome. When gen is non-nil the call only succeeds if
// no KeepAlive re-armed the timer since gen was taken.
func (p *PendingRequest) finish(gen *uint64, responded bool, ctx *Context, args Args, code Status, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.completed || (gen != nil && *gen != p.gen) {
		return false
	}
	p.completed = true
	if p.timer != nil {
		p.timer.Stop()
	}
	p.responded = responded
	p.ctx = ctx
	p.args = args
	p.code = code
	p.err = err
	close(p.done)
	return true
}

func (p *PendingRequest) wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Response is the outcome of a typed request. Responded is false after a
// timeout or connection loss, and Args is then the zero value.
type Response[A Args] struct {
	Responded bool
	Context   *Context
	Args      A
}

// Future resolves to the typed reply of a request.
type Future[A Args] struct {
	*PendingRequest
}

func (f *Future[A]) response() (Response[A], error) {
	p := f.PendingRequest
	p.mu.Lock()
	defer p.mu.Unlock()
	r := Response[A]{Responded: p.responded, Context: p.ctx}
	if a, ok := p.args.(A); ok {
		r.Args = a
	}
	return r, p.err
}

// Poll returns the response if the request has completed.
func (f *Future[A]) Poll() (Response[A], bool) {
	if !f.Completed() {
		return Response[A]{}, false
	}
	r, _ := f.response()
	return r, true
}

// Wait blocks until the request completes or ctx ends. The error is non-nil
// when ctx ended first, when the reply could not be decoded (ErrReadFailed),
// or when the connection or dispatcher closed under the request.
func (f *Future[A]) Wait(ctx context.Context) (Response[A], error) {
	if err := f.wait(ctx); err != nil {
		return Response[A]{}, err
	}
	return f.response()
}

// Then calls fn on its own goroutine once the request completes.
func (f *Future[A]) Then(fn func(Response[A], error)) {
	go func() {
		<-f.done
		fn(f.response())
	}()
}

// Ack is the outcome of an acknowledged request. Code is Failure when no
// acknowledgement arrived.
type Ack struct {
	Responded bool
	Context   *Context
	Code      Status
}

// AckFuture resolves to an acknowledgement.
type AckFuture struct {
	*PendingRequest
}

func (f *AckFuture) ack() (Ack, error) {
	p := f.PendingRequest
	p.mu.Lock()
	defer p.mu.Unlock()
	return Ack{Responded: p.responded, Context: p.ctx, Code: p.code}, p.err
}

// Poll returns the acknowledgement if the request has completed.
func (f *AckFuture) Poll() (Ack, bool) {
	if !f.Completed() {
		return Ack{}, false
	}
	a, _ := f.ack()
	return a, true
}

// Wait blocks until the acknowledgement arrives, the request times out, or
// ctx ends.
func (f *AckFuture) Wait(ctx context.Context) (Ack, error) {
	if err := f.wait(ctx); err != nil {
		return Ack{}, err
	}
	return f.ack()
}

// Then calls fn on its own goroutine once the request completes.
func (f *AckFuture) Then(fn func(Ack, error)) {
	go func() {
		<-f.done
		fn(f.ack())
	}()
}
