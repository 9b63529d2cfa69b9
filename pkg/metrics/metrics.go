// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks bridge HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_request_duration_seconds",
			Help:    "Bridge HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total bridge HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_requests_total",
			Help: "Total bridge HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// DispatchDuration tracks completion round-trip latency.
	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_dispatch_duration_seconds",
			Help:    "Completion endpoint round-trip duration",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"dispatcher", "outcome"},
	)

	// TokensTotal tracks tokens reported by the completion service.
	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_tokens_total",
			Help: "Total tokens reported by the completion service",
		},
		[]string{"dispatcher"},
	)

	// FailuresTotal tracks classified failures.
	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_failures_total",
			Help: "Classified failures by kind",
		},
		[]string{"kind"},
	)

	// MessagesTotal tracks messages appended to sessions.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_messages_total",
			Help: "Messages appended to sessions",
		},
		[]string{"sender", "status"},
	)

	// PreferenceSignalsTotal tracks newly detected interest tags.
	PreferenceSignalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_preference_signals_total",
			Help: "Newly detected preference tags",
		},
		[]string{"topic"},
	)

	// PendingDispatches tracks in-flight sends.
	PendingDispatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_pending_dispatches",
			Help: "Number of in-flight completion requests",
		},
	)

	// SSEConnectionsActive tracks active session event streams.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)
)

// RecordRequest records metrics for a bridge HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordDispatch records the outcome of a completion round-trip.
func RecordDispatch(dispatcher, outcome string, duration float64, tokens int) {
	DispatchDuration.WithLabelValues(dispatcher, outcome).Observe(duration)
	if tokens > 0 {
		TokensTotal.WithLabelValues(dispatcher).Add(float64(tokens))
	}
}

// RecordFailure records a classified failure.
func RecordFailure(kind string) {
	FailuresTotal.WithLabelValues(kind).Inc()
}

// RecordMessage records an appended message.
func RecordMessage(sender, status string) {
	MessagesTotal.WithLabelValues(sender, status).Inc()
}

// RecordPreference records a newly detected topic.
func RecordPreference(topic string) {
	PreferenceSignalsTotal.WithLabelValues(topic).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
