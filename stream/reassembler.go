// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package stream rebuilds discrete frames from a byte stream.
//
// A socket read may return part of a frame, exactly one frame, or several
// frames back to back. Reassembler keeps at most one partial frame per
// connection and hands every completed frame to a callback in arrival order.
package stream

import (
	"errors"
	"fmt"

	"github.com/luxfi/duorpc/wire"
)

// DefaultMaxMessageSize bounds a single frame (header + payload).
const DefaultMaxMessageSize = 16 * 1024 * 1024

var ErrMessageTooLarge = errors.New("stream: message too large")

// Option configures a Reassembler.
type Option func(*Reassembler)

// WithMaxMessageSize sets the largest accepted frame.
func WithMaxMessageSize(n int) Option {
	return func(r *Reassembler) {
		if n > 0 {
			r.max = n
		}
	}
}

// Reassembler is not safe for concurrent use; each connection owns one and
// feeds it from its read loop.
type Reassembler struct {
	deliver func([]byte)
	max     int

	buf      []byte
	expected int // 0 until the header of the pending frame is complete
}

// New returns a Reassembler that calls deliver for every complete frame.
// The slice passed to deliver is owned by the callee.
func New(deliver func([]byte), opts ...Option) *Reassembler {
	r := &Reassembler{deliver: deliver, max: DefaultMaxMessageSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pending returns the number of buffered bytes of the partial frame.
func (r *Reassembler) Pending() int { return len(r.buf) }

// Reset drops any partial frame.
func (r *Reassembler) Reset() {
	r.buf = nil
	r.expected = 0
}

// Feed consumes one read. On a corrupt or oversized header all pending state
// is cleared and the error is returned; frames completed earlier in the same
// read have already been delivered.
func (r *Reassembler) Feed(p []byte) error {
	for len(p) > 0 {
		if len(r.buf) == 0 {
			n, err := r.frameLen(p)
			if err != nil {
				r.Reset()
				return err
			}
			switch {
			case n == 0:
				// Header incomplete; keep what we have.
				r.buf = append(make([]byte, 0, wire.MaxStableHeaderLen), p...)
				return nil
			case len(p) == n:
				r.emit(p)
				return nil
			case len(p) > n:
				r.emit(p[:n])
				p = p[n:]
				continue
			default:
				r.expected = n
				r.buf = append(make([]byte, 0, n), p...)
				return nil
			}
		}

		if r.expected == 0 {
			// The pending bytes are a partial header: top it up until the
			// frame length is known.
			need := r.headerNeed()
			take := min(need-len(r.buf), len(p))
			r.buf = append(r.buf, p[:take]...)
			p = p[take:]
			n, err := r.frameLen(r.buf)
			if err != nil {
				r.Reset()
				return err
			}
			if n == 0 {
				continue
			}
			r.expected = n
			if len(r.buf) == n {
				r.flush()
			}
			continue
		}

		take := min(r.expected-len(r.buf), len(p))
		r.buf = append(r.buf, p[:take]...)
		p = p[take:]
		if len(r.buf) == r.expected {
			r.flush()
		}
	}
	return nil
}

// headerNeed returns how many bytes the pending partial header must reach
// before it can be decoded.
func (r *Reassembler) headerNeed() int {
	if len(r.buf) == 0 {
		return 1
	}
	return wire.HeaderLen(wire.Flags(r.buf[0]))
}

// frameLen returns the full frame length announced by the header at the start
// of b, or 0 when b does not hold a complete header yet.
func (r *Reassembler) frameLen(b []byte) (int, error) {
	if len(b) == 0 || len(b) < wire.HeaderLen(wire.Flags(b[0])) {
		return 0, nil
	}
	h, err := wire.DecodeOverhead(b)
	if err != nil {
		return 0, err
	}
	n := int64(h.Len()) + int64(h.PayloadSize)
	if n > int64(r.max) {
		return 0, fmt.Errorf("%w: %d bytes (limit %d)", ErrMessageTooLarge, n, r.max)
	}
	return int(n), nil
}

func (r *Reassembler) flush() {
	msg := r.buf
	r.buf = nil
	r.expected = 0
	r.deliver(msg)
}

func (r *Reassembler) emit(p []byte) {
	msg := make([]byte, len(p))
	copy(msg, p)
	r.deliver(msg)
}
