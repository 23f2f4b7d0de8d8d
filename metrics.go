// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	messagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duorpc",
			Subsystem: "dispatch",
			Name:      "messages_received_total",
			Help:      "Messages handed to the dispatcher.",
		},
		[]string{"dispatcher", "transport"},
	)
	messagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duorpc",
			Subsystem: "dispatch",
			Name:      "messages_dropped_total",
			Help:      "Messages dropped before or during handling.",
		},
		[]string{"dispatcher", "reason"},
	)
	messagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duorpc",
			Subsystem: "dispatch",
			Name:      "messages_sent_total",
			Help:      "Frames written to connections.",
		},
		[]string{"dispatcher", "transport"},
	)
	pendingGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "duorpc",
			Subsystem: "correlation",
			Name:      "pending_requests",
			Help:      "Requests awaiting a reply.",
		},
		[]string{"dispatcher"},
	)
	requestOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duorpc",
			Subsystem: "correlation",
			Name:      "requests_total",
			Help:      "Completed requests by outcome.",
		},
		[]string{"dispatcher", "outcome"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "duorpc",
			Subsystem: "correlation",
			Name:      "request_duration_seconds",
			Help:      "Time from send to reply for answered requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"dispatcher"},
	)
	highSpeedSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "duorpc",
			Subsystem: "highspeed",
			Name:      "sessions",
			Help:      "High-speed sockets by handshake state.",
		},
		[]string{"dispatcher", "state"},
	)
)

// RegisterMetrics adds the package collectors to the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			messagesReceived,
			messagesDropped,
			messagesSent,
			pendingGauge,
			requestOutcomes,
			requestDuration,
			highSpeedSessions,
		)
	})
}

func recordReceived(dispatcher string, kind ConnKind) {
	messagesReceived.WithLabelValues(dispatcher, kind.String()).Inc()
}

func recordDropped(dispatcher, reason string) {
	messagesDropped.WithLabelValues(dispatcher, reason).Inc()
}

func recordSent(dispatcher string, kind ConnKind) {
	messagesSent.WithLabelValues(dispatcher, kind.String()).Inc()
}

func recordOutcome(dispatcher, outcome string, elapsed time.Duration) {
	requestOutcomes.WithLabelValues(dispatcher, outcome).Inc()
	if outcome == outcomeResponded {
		requestDuration.WithLabelValues(dispatcher).Observe(elapsed.Seconds())
	}
}

const (
	outcomeResponded = "responded"
	outcomeTimeout   = "timeout"
	outcomeFailed    = "failed"

	dropDecode       = "decode"
	dropUnknown      = "unknown_selector"
	dropNoHandler    = "no_handler"
	dropReadFailed   = "read_failed"
	dropPanic        = "panic"
	dropUnverified   = "unverified"
	dropUnmatchedAck = "unmatched_ack"
)
