// Package metrics provides Prometheus metrics for the mining leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the leaderboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Update pipeline metrics
	updatesApplied   prometheus.Counter
	updatesDuplicate prometheus.Counter
	updatesFailed    *prometheus.CounterVec
	mergeLatency     prometheus.Histogram

	// Queue metrics
	queuePending  prometheus.Gauge
	overflowDepth prometheus.Gauge
	queueErrors   prometheus.Counter

	// Storage metrics
	storeLatency *prometheus.HistogramVec

	// Ranking index metrics
	rankingUpserts      prometheus.Counter
	rankingQueryLatency prometheus.Histogram

	// Board metrics
	boardAccounts  *prometheus.GaugeVec
	archiveRecords *prometheus.CounterVec

	// Worker metrics
	workerCount  prometheus.Gauge
	batchLatency prometheus.Histogram

	// Error tracking
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mineworlds",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.updatesApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "updates_applied_total",
		Help:      "Total number of mining updates merged into aggregates",
	})

	m.updatesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "updates_duplicate_total",
		Help:      "Total number of redelivered updates dropped by the dedupe cache",
	})

	m.updatesFailed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "updates_failed_total",
		Help:      "Total number of updates that failed to merge, by timeframe",
	}, []string{"timeframe"})

	m.mergeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "merge_latency_milliseconds",
		Help:      "Histogram of merge-and-write latency per batch in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.queuePending = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_pending",
		Help:      "Number of raw updates awaiting aggregation",
	})

	m.overflowDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_overflow_depth",
		Help:      "Number of updates held in the in-process overflow buffer",
	})

	m.queueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_errors_total",
		Help:      "Total number of update queue write failures",
	})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_latency_milliseconds",
		Help:      "Histogram of storage operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"store", "operation"})

	m.rankingUpserts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_upserts_total",
		Help:      "Total number of per-metric score upserts into the ranking index",
	})

	m.rankingQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_query_latency_milliseconds",
		Help:      "Histogram of rank and list query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.boardAccounts = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "board_accounts",
		Help:      "Number of accounts tracked in the live window, by timeframe",
	}, []string{"timeframe"})

	m.archiveRecords = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "archive_records_total",
		Help:      "Total number of point-in-time snapshots written to the archive, by timeframe",
	}, []string{"timeframe"})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of update workers",
	})

	m.batchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_latency_milliseconds",
		Help:      "Histogram of end-to-end batch processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Total number of errors by component and kind",
	}, []string{"component", "kind"})
}

// Update pipeline functions.

// RecordUpdateApplied increments the applied updates counter.
func RecordUpdateApplied() {
	globalManager.updatesApplied.Inc()
}

// RecordUpdateDuplicate increments the duplicate updates counter.
func RecordUpdateDuplicate() {
	globalManager.updatesDuplicate.Inc()
}

// RecordUpdatesFailed adds to the failed updates counter for a timeframe.
func RecordUpdatesFailed(timeframe string, count int) {
	globalManager.updatesFailed.WithLabelValues(timeframe).Add(float64(count))
}

// RecordMergeLatency records merge-and-write latency in milliseconds.
func RecordMergeLatency(ms float64) {
	globalManager.mergeLatency.Observe(ms)
}

// Queue functions.

// UpdateQueuePending sets the pending update count.
func UpdateQueuePending(n int64) {
	globalManager.queuePending.Set(float64(n))
}

// UpdateOverflowDepth sets the overflow buffer depth.
func UpdateOverflowDepth(n int) {
	globalManager.overflowDepth.Set(float64(n))
}

// RecordQueueError increments the queue write failure counter.
func RecordQueueError() {
	globalManager.queueErrors.Inc()
}

// Storage functions.

// RecordStoreLatency records a storage operation latency in milliseconds.
func RecordStoreLatency(store, operation string, ms float64) {
	globalManager.storeLatency.WithLabelValues(store, operation).Observe(ms)
}

// Ranking index functions.

// RecordRankingUpserts adds to the score upsert counter.
func RecordRankingUpserts(count int) {
	globalManager.rankingUpserts.Add(float64(count))
}

// RecordRankingQueryLatency records rank/list query latency in milliseconds.
func RecordRankingQueryLatency(ms float64) {
	globalManager.rankingQueryLatency.Observe(ms)
}

// Board functions.

// UpdateBoardAccounts sets the live account count for a timeframe.
func UpdateBoardAccounts(timeframe string, count int) {
	globalManager.boardAccounts.WithLabelValues(timeframe).Set(float64(count))
}

// RecordArchiveRecords adds to the archive write counter for a timeframe.
func RecordArchiveRecords(timeframe string, count int) {
	globalManager.archiveRecords.WithLabelValues(timeframe).Add(float64(count))
}

// Worker functions.

// UpdateWorkerCount sets the number of update workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordBatchLatency records end-to-end batch latency in milliseconds.
func RecordBatchLatency(ms float64) {
	globalManager.batchLatency.Observe(ms)
}

// Error tracking functions.

// RecordErrorByComponent records an error with component and kind labels.
func RecordErrorByComponent(component, kind string) {
	globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
