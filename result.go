// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"fmt"
	"sync"
)

// Status is the code carried by an acknowledgement.
type Status int32

const (
	Success Status = 0
	Failure Status = 1
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Result is what a handler returns: nil, a Status, or a *Deferred.
type Result interface {
	isResult()
}

func (Status) isResult() {}

func (*Deferred) isResult() {}

// Deferred is a status that becomes known after the handler returns. The
// dispatcher acknowledges once it resolves, without blocking delivery.
type Deferred struct {
	once   sync.Once
	done   chan struct{}
	status Status
}

// NewDeferred returns an unresolved Deferred.
func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Defer runs fn on its own goroutine and resolves with its status. A panic
// in fn resolves as Failure.
func Defer(fn func() Status) *Deferred {
	d := NewDeferred()
	go func() {
		status := Failure
		defer func() {
			_ = recover()
			d.Resolve(status)
		}()
		status = fn()
	}()
	return d
}

// Resolve sets the status. Only the first call has an effect; it reports
// whether this call resolved d.
func (d *Deferred) Resolve(s Status) bool {
	resolved := false
	d.once.Do(func() {
		d.status = s
		close(d.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the status is known.
func (d *Deferred) Done() <-chan struct{} { return d.done }

// Status returns the resolved status and whether it is resolved.
func (d *Deferred) Status() (Status, bool) {
	select {
	case <-d.done:
		return d.status, true
	default:
		return 0, false
	}
}
