package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the service.
type Metrics struct {
	registry             *prometheus.Registry
	handler              http.Handler
	requestsTotal        *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	cacheHits            *prometheus.CounterVec
	cacheMisses          *prometheus.CounterVec
	invalidationFailures prometheus.Counter
	invalidationRetries  *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "userdir_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "userdir_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "userdir_cache_hits_total",
		Help: "User cache reads served from the cache.",
	}, []string{"entry"})
	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "userdir_cache_misses_total",
		Help: "User cache reads that fell through to the store.",
	}, []string{"entry"})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "userdir_cache_invalidation_failures_total",
		Help: "Cache deletions that failed after a successful write.",
	})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "userdir_cache_invalidation_retries_total",
		Help: "Background invalidation retries by outcome.",
	}, []string{"status"})
	registry.MustRegister(
		requests, duration, hits, misses, failures, retries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:        requests,
		requestDuration:      duration,
		cacheHits:            hits,
		cacheMisses:          misses,
		invalidationFailures: failures,
		invalidationRetries:  retries,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// CacheHit counts a read served from the cache entry kind.
func (m *Metrics) CacheHit(entry string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(entry).Inc()
}

// CacheMiss counts a read that fell through to the store.
func (m *Metrics) CacheMiss(entry string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(entry).Inc()
}

// InvalidationFailed counts a failed cache deletion.
func (m *Metrics) InvalidationFailed() {
	if m == nil {
		return
	}
	m.invalidationFailures.Inc()
}

// InvalidationRetried counts a processed retry task; status is "success" or
// "error".
func (m *Metrics) InvalidationRetried(status string) {
	if m == nil {
		return
	}
	m.invalidationRetries.WithLabelValues(status).Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
