// Package metrics provides Prometheus metrics for the teamform service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Ranking
	rankRequests      *prometheus.CounterVec
	candidatesScored  *prometheus.CounterVec
	resultsReturned   *prometheus.HistogramVec
	scoringLatency    *prometheus.HistogramVec
	zeroScoreFiltered *prometheus.CounterVec

	// Store
	storeReadLatency *prometheus.HistogramVec
	storeErrors      *prometheus.CounterVec
	storeWrites      *prometheus.CounterVec
	entityCount      *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     *prometheus.CounterVec
	idempotentReplays   prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // service registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "teamform",
		subsystem:        "matching",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	msBuckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250}

	m.rankRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_requests_total",
		Help:      "Ranking requests by mode (relevance, explore, suggestion)",
	}, []string{"mode"})

	m.candidatesScored = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "candidates_scored_total",
		Help:      "Candidates passed through a scoring strategy",
	}, []string{"mode"})

	m.resultsReturned = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "results_returned",
		Help:      "Number of ranked results returned per request",
		Buckets:   []float64{0, 1, 2, 3, 6, 10, 25, 50, 100, 500},
	}, []string{"mode"})

	m.scoringLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_latency_milliseconds",
		Help:      "Time to score and rank one candidate set",
		Buckets:   msBuckets,
	}, []string{"mode"})

	m.zeroScoreFiltered = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "zero_score_filtered_total",
		Help:      "Candidates dropped by the ranker for scoring zero",
	}, []string{"mode"})

	m.storeReadLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "read_latency_milliseconds",
		Help:      "Bulk-read latency per entity kind",
		Buckets:   msBuckets,
	}, []string{"kind"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "errors_total",
		Help:      "Store operation failures",
	}, []string{"op"})

	m.storeWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "writes_total",
		Help:      "Entities created or updated",
	}, []string{"kind", "op"})

	m.entityCount = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "entities",
		Help:      "Entities per kind as of the last bulk read",
	}, []string{"kind"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRateLimited = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	}, []string{"endpoint"})

	m.idempotentReplays = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "idempotent_replays_total",
		Help:      "Create requests skipped because their Idempotency-Key was already seen",
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordRankRequest counts one ranking request.
func RecordRankRequest(mode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.rankRequests.WithLabelValues(mode).Inc()
}

// RecordCandidatesScored adds n to the scored-candidates counter.
func RecordCandidatesScored(mode string, n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.candidatesScored.WithLabelValues(mode).Add(float64(n))
}

// RecordResultsReturned observes the size of a ranked result list.
func RecordResultsReturned(mode string, n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.resultsReturned.WithLabelValues(mode).Observe(float64(n))
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(mode string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.scoringLatency.WithLabelValues(mode).Observe(latencyMs)
}

// RecordZeroScoreFiltered counts candidates dropped for scoring zero.
func RecordZeroScoreFiltered(mode string, n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.zeroScoreFiltered.WithLabelValues(mode).Add(float64(n))
}

// RecordStoreReadLatency records a bulk read in milliseconds.
func RecordStoreReadLatency(kind string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeReadLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// RecordStoreWrite counts a successful create or update.
func RecordStoreWrite(kind, op string) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeWrites.WithLabelValues(kind, op).Inc()
}

// UpdateEntityCount sets the entity gauge for kind.
func UpdateEntityCount(kind string, count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.entityCount.WithLabelValues(kind).Set(float64(count))
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited(endpoint string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRateLimited.WithLabelValues(endpoint).Inc()
}

// RecordIdempotentReplay counts a create skipped by the idempotency check.
func RecordIdempotentReplay() {
	if !globalManager.enabled {
		return
	}
	globalManager.idempotentReplays.Inc()
}

// UpdateSystemMemoryUsage sets the heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
