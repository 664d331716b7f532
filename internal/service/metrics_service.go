package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer,
// the cache, the feeds and the planner operations.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheLookups     *prometheus.CounterVec
	feedRequests     *prometheus.CounterVec
	mutations        *prometheus.CounterVec
	autoSchedule     prometheus.Histogram
	autoForced       prometheus.Counter
	autoPlaced       *prometheus.CounterVec
	catalogSyncTotal *prometheus.CounterVec
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	feedRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_requests_total",
		Help: "Requests to the institutional feeds by feed and result",
	}, []string{"feed", "result"})

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_mutations_total",
		Help: "Projection mutations by operation and result",
	}, []string{"operation", "result"})

	autoSchedule := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_auto_schedule_seconds",
		Help:    "Duration of automatic scheduling runs, persistence included",
		Buckets: prometheus.DefBuckets,
	})

	autoForced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_auto_schedule_forced_total",
		Help: "Semesters filled by the deadlock-breaking forced pass",
	})

	autoPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_auto_schedule_courses_total",
		Help: "Courses placed by the automatic scheduler by pass",
	}, []string{"pass"})

	catalogSyncTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_sync_total",
		Help: "Catalog synchronisations by trigger and result",
	}, []string{"trigger", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups, feedRequests,
		mutations, autoSchedule, autoForced, autoPlaced, catalogSyncTotal, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheLookups:     cacheLookups,
		feedRequests:     feedRequests,
		mutations:        mutations,
		autoSchedule:     autoSchedule,
		autoForced:       autoForced,
		autoPlaced:       autoPlaced,
		catalogSyncTotal: catalogSyncTotal,
	}
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordFeedRequest counts one request to an institutional feed.
func (m *MetricsService) RecordFeedRequest(feed, result string) {
	if m == nil {
		return
	}
	m.feedRequests.WithLabelValues(feed, result).Inc()
}

// RecordMutation counts a projection mutation; err decides the result label.
func (m *MetricsService) RecordMutation(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.mutations.WithLabelValues(operation, result).Inc()
}

// ObserveAutoSchedule records one automatic scheduling run.
func (m *MetricsService) ObserveAutoSchedule(duration time.Duration, forcedGroups int, placedByPass map[string]int) {
	if m == nil {
		return
	}
	m.autoSchedule.Observe(duration.Seconds())
	m.autoForced.Add(float64(forcedGroups))
	for pass, count := range placedByPass {
		m.autoPlaced.WithLabelValues(pass).Add(float64(count))
	}
}

// RecordCatalogSync counts a catalog synchronisation.
func (m *MetricsService) RecordCatalogSync(trigger string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.catalogSyncTotal.WithLabelValues(trigger, result).Inc()
}
