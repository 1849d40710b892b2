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
	// Alert engine metrics
	MessagesHandled   *prometheus.CounterVec
	MentionsRecorded  prometheus.Counter
	NotificationsSent *prometheus.CounterVec

	// Oracle metrics
	OracleLookups       *prometheus.CounterVec
	OracleLookupLatency prometheus.Histogram
	OracleForeignIDs    prometheus.Counter

	// Sweep metrics
	SweepRunsTotal   *prometheus.CounterVec
	SweepDuration    prometheus.Histogram
	TokensPruned     prometheus.Counter
	TrackedTokens    prometheus.Gauge
	LastSuccessSweep prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mention_radar"
	}

	return &Metrics{
		MessagesHandled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "messages_handled_total",
			Help:      "Total number of inbound messages by path and outcome",
		}, []string{"path", "outcome"}),
		MentionsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "mentions_recorded_total",
			Help:      "Total number of mention records stored",
		}),
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total number of notifications by delivery status",
		}, []string{"status"}),

		OracleLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "lookups_total",
			Help:      "Total number of oracle lookups by result",
		}, []string{"result"}),
		OracleLookupLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "lookup_latency_seconds",
			Help:      "Oracle lookup latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		OracleForeignIDs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "foreign_identifiers_total",
			Help:      "Lookups for identifiers that are not 32-byte Solana addresses",
		}),

		SweepRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Total number of pruning sweep passes by status",
		}, []string{"status"}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Pruning sweep pass duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		TokensPruned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "tokens_pruned_total",
			Help:      "Total number of tokens deleted for low valuation",
		}),
		TrackedTokens: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "tracked_tokens",
			Help:      "Number of tracked tokens seen by the last sweep pass",
		}),
		LastSuccessSweep: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sweep_timestamp",
			Help:      "Unix timestamp of last successful sweep pass",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordMessageHandled counts a handled message.
func RecordMessageHandled(path, outcome string) {
	DefaultMetrics.MessagesHandled.WithLabelValues(path, outcome).Inc()
}

// RecordMentionRecorded increments the mentions recorded counter.
func RecordMentionRecorded() {
	DefaultMetrics.MentionsRecorded.Inc()
}

// RecordNotification counts a notification delivery attempt.
func RecordNotification(err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	DefaultMetrics.NotificationsSent.WithLabelValues(status).Inc()
}

// RecordOracleLookup records an oracle lookup result and latency.
func RecordOracleLookup(result string, seconds float64) {
	DefaultMetrics.OracleLookups.WithLabelValues(result).Inc()
	DefaultMetrics.OracleLookupLatency.Observe(seconds)
}

// RecordOracleForeignIdentifier counts a lookup for a non-Solana identifier.
func RecordOracleForeignIdentifier() {
	DefaultMetrics.OracleForeignIDs.Inc()
}

// RecordSweepRun records a sweep pass.
func RecordSweepRun(status string, durationSeconds float64, checked, pruned int) {
	DefaultMetrics.SweepRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.SweepDuration.Observe(durationSeconds)
	DefaultMetrics.TokensPruned.Add(float64(pruned))
	if status == "success" {
		DefaultMetrics.TrackedTokens.Set(float64(checked - pruned))
		DefaultMetrics.LastSuccessSweep.SetToCurrentTime()
	}
}
