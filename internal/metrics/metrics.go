// Package metrics provides Prometheus metrics for Vigil.
// It tracks record intake, rule matching and per-attempt dispatch outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "vigil"
)

// Record metrics track the intake pipeline.
var (
	// RecordsReceivedTotal counts records received by the ingest API.
	RecordsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_received_total",
			Help:      "Total number of activity records received",
		},
		[]string{"connector"},
	)

	// RecordsPublishedTotal counts records published to the queue.
	RecordsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Total number of records published to the message queue",
		},
		[]string{"connector"},
	)

	// RecordsProcessedTotal counts evaluation passes by result.
	RecordsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Total number of records evaluated against enabled alerts",
		},
		[]string{"result"}, // result: ok, storage_error, invalid
	)

	// RecordProcessingLatency measures one full evaluation pass.
	RecordProcessingLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "record_processing_latency_seconds",
			Help:      "Time to match and dispatch a single record in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// QueuePublishLatency measures time to publish a record to the queue.
	QueuePublishLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_publish_latency_seconds",
			Help:      "Time to publish a record to the queue in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
		},
	)
)

// Matching metrics.
var (
	// AlertMatchesTotal counts matches by trigger kind.
	AlertMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_matches_total",
			Help:      "Total number of (alert, record) matches",
		},
		[]string{"trigger_kind"},
	)

	// InertAlertsTotal counts evaluations skipped because the trigger kind did not resolve.
	InertAlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inert_alerts_total",
			Help:      "Total number of alert evaluations skipped due to unresolved trigger kinds",
		},
		[]string{"trigger_kind"},
	)

	// MatchErrorsTotal counts trigger evaluations that failed on malformed filters.
	MatchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_errors_total",
			Help:      "Total number of trigger evaluations that returned an error",
		},
		[]string{"trigger_kind"},
	)
)

// Dispatch metrics.
var (
	// DispatchAttemptsTotal counts dispatch outcomes per notifier kind.
	DispatchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_attempts_total",
			Help:      "Total number of dispatch outcomes",
		},
		[]string{"notifier_kind", "outcome"},
	)

	// DispatchLatency measures time spent inside notifiers.
	DispatchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_latency_seconds",
			Help:      "Time spent invoking a notifier in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"notifier_kind"},
	)

	// DedupRaceLossesTotal counts dispatches that found the pair already
	// claimed by a concurrent evaluation when writing the marker.
	DedupRaceLossesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_race_losses_total",
			Help:      "Total number of dedup claims lost to a concurrent dispatch",
		},
		[]string{"notifier_kind"},
	)

	// DispatchQueueDepth tracks jobs waiting for a dispatch worker.
	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_queue_depth",
			Help:      "Current number of dispatch jobs waiting for a worker",
		},
	)
)

// Registry metrics.
var (
	// RegistryRejectionsTotal counts implementations refused at registration.
	RegistryRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_rejections_total",
			Help:      "Total number of trigger or notifier registrations rejected",
		},
		[]string{"registry", "kind"},
	)
)

// Storage metrics track database and cache operations.
var (
	// StorageOperationLatency measures latency of storage operations.
	StorageOperationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_operation_latency_seconds",
			Help:      "Latency of storage operations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"store", "operation"}, // store: postgres, redis
	)

	// StorageOperationsTotal counts storage operations.
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Total number of storage operations",
		},
		[]string{"store", "operation", "status"}, // status: success, failure
	)
)

// ObserveStorage records latency and status of one storage call.
func ObserveStorage(store, operation string, start time.Time, err error) {
	StorageOperationLatency.WithLabelValues(store, operation).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "failure"
	}
	StorageOperationsTotal.WithLabelValues(store, operation, status).Inc()
}
