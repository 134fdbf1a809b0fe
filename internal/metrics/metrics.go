// Package metrics provides Prometheus instrumentation for the web widget. It
// exposes a connection gauge, a counter of messages by moderation outcome and
// a histogram of moderation call latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Message outcomes used as the "outcome" label of MessagesTotal.
const (
	OutcomeSubmitted = "submitted"
	OutcomeRejected  = "rejected"
	OutcomeClean     = "clean"
	OutcomeFlagged   = "flagged"
	OutcomeFailed    = "failed"
)

var (
	// Connections tracks the current number of active WebSocket connections.
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cleanchat_connections",
		Help: "Current number of active WebSocket connections",
	})

	// MessagesTotal counts messages by outcome.
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cleanchat_messages_total",
		Help: "Total number of messages by moderation outcome",
	}, []string{"outcome"})

	// ModerationLatency records moderation call latency in seconds.
	ModerationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cleanchat_moderation_latency_seconds",
		Help:    "Moderation call latency in seconds",
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})
)

func init() {
	prometheus.MustRegister(
		Connections,
		MessagesTotal,
		ModerationLatency,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
