package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-adp-curriculum/internal/adoption"
	"github.com/noah-isme/sma-adp-curriculum/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
// It doubles as the recorder for the query cache and the adoption machine.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	cacheLookups        *prometheus.CounterVec
	cacheHitRatio       prometheus.Gauge
	upstreamDuration    *prometheus.HistogramVec
	discardedResponses  *prometheus.CounterVec
	adoptionTransitions *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	discardedCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	upstreamCount        uint64
	upstreamDurationSum  uint64
	rollbackCount        uint64

	entries func() int
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "query_cache_lookups_total",
		Help: "Query cache lookups by operation and result",
	}, []string{"operation", "result"})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "query_cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_operation_duration_seconds",
		Help:    "Latency of remote operations by name and outcome",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	discardedResponses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "query_cache_discarded_responses_total",
		Help: "Responses dropped because they were superseded or no longer relevant",
	}, []string{"operation", "reason"})

	adoptionTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adoption_transitions_total",
		Help: "Template adoption transitions by target status and outcome",
	}, []string{"target", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheHitRatio, upstreamDuration, discardedResponses, adoptionTransitions, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:            registry,
		handler:             handler,
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLookups:        cacheLookups,
		cacheHitRatio:       cacheHitRatio,
		upstreamDuration:    upstreamDuration,
		discardedResponses:  discardedResponses,
		adoptionTransitions: adoptionTransitions,
	}
}

// TrackEntries registers a gauge reporting the number of cached entries.
func (m *MetricsService) TrackEntries(count func() int) {
	if m == nil || count == nil {
		return
	}
	m.entries = count
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "query_cache_entries",
		Help: "Number of entries held by the resource cache",
	}, func() float64 {
		return float64(count())
	}))
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheLookup records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheLookup(operation string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues(operation, "hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheLookups.WithLabelValues(operation, "miss").Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveExecution tracks remote operation latency.
func (m *MetricsService) ObserveExecution(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
	atomic.AddUint64(&m.upstreamCount, 1)
	atomic.AddUint64(&m.upstreamDurationSum, uint64(elapsed.Nanoseconds()))
}

// RecordDiscarded counts responses that were not applied to the cache.
func (m *MetricsService) RecordDiscarded(operation, reason string) {
	if m == nil {
		return
	}
	m.discardedResponses.WithLabelValues(operation, reason).Inc()
	atomic.AddUint64(&m.discardedCount, 1)
}

// RecordAdoptionTransition counts adoption transitions by outcome.
func (m *MetricsService) RecordAdoptionTransition(target, outcome string) {
	if m == nil {
		return
	}
	m.adoptionTransitions.WithLabelValues(target, outcome).Inc()
	if outcome == adoption.OutcomeRolledBack {
		atomic.AddUint64(&m.rollbackCount, 1)
	}
}

// Snapshot returns aggregated metrics suitable for the health endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	upstream := atomic.LoadUint64(&m.upstreamCount)
	upstreamDuration := atomic.LoadUint64(&m.upstreamDurationSum)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgUpstreamMs float64
	if upstream > 0 {
		avgUpstreamMs = float64(upstreamDuration) / float64(upstream) / float64(time.Millisecond)
	}

	var entries int
	if m.entries != nil {
		entries = m.entries()
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheEntries:             entries,
		DiscardedResponses:       atomic.LoadUint64(&m.discardedCount),
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		UpstreamCalls:            upstream,
		AverageUpstreamMs:        avgUpstreamMs,
		AdoptionRollbacks:        atomic.LoadUint64(&m.rollbackCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
