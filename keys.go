// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"sync/atomic"
	"time"
)

// keySource hands out request keys derived from 100ns clock ticks. When two
// callers land on the same tick, or the clock steps back, the later caller
// takes last+1, so keys strictly increase for the life of the process.
type keySource struct {
	last atomic.Int64
	now  func() time.Time
}

func (k *keySource) Next() int64 {
	tick := k.clock().UnixNano() / 100
	for {
		last := k.last.Load()
		next := tick
		if next <= last {
			next = last + 1
		}
		if k.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

func (k *keySource) clock() time.Time {
	if k.now != nil {
		return k.now()
	}
	return time.Now()
}

var requestKeys keySource

// NextRequestKey returns a fresh process-wide request key.
func NextRequestKey() int64 { return requestKeys.Next() }
