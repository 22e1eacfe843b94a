// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Stream metrics
	EventsReceived prometheus.Counter
	EventsDeduped  prometheus.Counter
	WSReconnects   prometheus.Counter
	LastEventUnix  prometheus.Gauge

	// Inference metrics
	IntentsDetected *prometheus.CounterVec
	InferenceErrors prometheus.Counter

	// Execution metrics
	TradesExecuted   prometheus.Counter
	TradesFailed     *prometheus.CounterVec
	ExecutionLatency *prometheus.HistogramVec

	// Journal metrics
	JournalErrors prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_mirror"
	}

	return &Metrics{
		EventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_received_total",
			Help:      "Total number of raw feed events received",
		}),
		EventsDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_deduped_total",
			Help:      "Total number of events skipped as duplicate signatures",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnect attempts",
		}),
		LastEventUnix: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "last_event_timestamp",
			Help:      "Unix timestamp of the last event received",
		}),
		IntentsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intent",
			Name:      "detected_total",
			Help:      "Total number of mirror intents detected by kind",
		}, []string{"kind"}),
		InferenceErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intent",
			Name:      "inference_errors_total",
			Help:      "Total number of events dropped due to inference errors",
		}),
		TradesExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_executed_total",
			Help:      "Total number of mirror trades accepted by the node",
		}),
		TradesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_failed_total",
			Help:      "Total number of failed mirror trade attempts by stage",
		}, []string{"stage"}),
		ExecutionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "stage_latency_seconds",
			Help:      "Execution pipeline stage latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		JournalErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "errors_total",
			Help:      "Total number of trade journal write errors",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventReceived increments the events received counter.
func RecordEventReceived(unixTime float64) {
	DefaultMetrics.EventsReceived.Inc()
	DefaultMetrics.LastEventUnix.Set(unixTime)
}

// RecordEventDeduped increments the dedup counter.
func RecordEventDeduped() {
	DefaultMetrics.EventsDeduped.Inc()
}

// RecordReconnect increments the reconnect counter.
func RecordReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordIntent records a detected mirror intent.
func RecordIntent(kind string) {
	DefaultMetrics.IntentsDetected.WithLabelValues(kind).Inc()
}

// RecordInferenceError increments the inference error counter.
func RecordInferenceError() {
	DefaultMetrics.InferenceErrors.Inc()
}

// RecordTradeExecuted increments the executed trade counter.
func RecordTradeExecuted() {
	DefaultMetrics.TradesExecuted.Inc()
}

// RecordTradeFailed records a failed trade attempt by pipeline stage.
func RecordTradeFailed(stage string) {
	DefaultMetrics.TradesFailed.WithLabelValues(stage).Inc()
}

// RecordStageLatency records execution stage latency.
func RecordStageLatency(stage string, seconds float64) {
	DefaultMetrics.ExecutionLatency.WithLabelValues(stage).Observe(seconds)
}

// RecordJournalError increments the journal error counter.
func RecordJournalError() {
	DefaultMetrics.JournalErrors.Inc()
}
