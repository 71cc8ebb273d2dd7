// Package metrics provides Prometheus instrumentation for the messaging
// service. It exposes gauges for connection and presence counts, counters for
// message throughput, and histograms for latency tracking.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveConnections tracks the current number of active WebSocket
	// connections.
	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "messaging_active_connections",
		Help: "Current number of active WebSocket connections",
	})

	// OnlineUsers tracks the number of users with a live presence entry on
	// this instance.
	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "messaging_online_users",
		Help: "Current number of users online on this instance",
	})

	// MessagesTotal counts messages processed, labeled by outcome:
	// "sent", "delivered", "notified", or "rejected".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "messaging_messages_total",
		Help: "Total number of messages processed",
	}, []string{"outcome"})

	// SendLatency records persist-then-publish latency in seconds.
	SendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "messaging_send_latency_seconds",
		Help:    "Message persist and publish latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// ReadReceiptsTotal counts mark-read operations that updated at least one
	// message.
	ReadReceiptsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "messaging_read_receipts_total",
		Help: "Total number of effective mark-read operations",
	})

	// InboxBuildLatency records how long the conversation rollup takes,
	// fetch included.
	InboxBuildLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "messaging_inbox_build_latency_seconds",
		Help:    "Inbox aggregation latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})
)

func init() {
	prometheus.MustRegister(
		ActiveConnections,
		OnlineUsers,
		MessagesTotal,
		SendLatency,
		ReadReceiptsTotal,
		InboxBuildLatency,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
