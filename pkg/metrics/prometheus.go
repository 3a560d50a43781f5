// Package metrics provides Prometheus metrics for the wrwatch record resolver.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for resolve calls.
const (
	OutcomeOK                 = "ok"
	OutcomeConfigurationError = "configuration_error"
	OutcomeUpstreamError      = "upstream_error"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace    string
	subsystem    string
	httpBuckets  []float64
	enabled      bool
	constLabels  map[string]string
	metricPrefix string
	registry     prometheus.Registerer

	// Resolution
	resolveTotal      *prometheus.CounterVec
	recordCacheHits   prometheus.Counter
	recordCacheMisses prometheus.Counter
	variantsExpanded  prometheus.Histogram
	runsUnwatchable   prometheus.Counter
	passesTotal       prometheus.Counter
	passDuration      prometheus.Histogram

	// Upstream
	entityFetches      *prometheus.CounterVec
	entityCacheHits    *prometheus.CounterVec
	entityFetchErrors  *prometheus.CounterVec
	leaderboardFetches *prometheus.CounterVec
	leaderboardErrors  *prometheus.CounterVec
	leaderboardLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:   "wrwatch",
		subsystem:   "records",
		httpBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000, 30000},
		enabled:     true,
		constLabels: make(map[string]string),
		registry:    prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix != "" {
		return m.metricPrefix + "_" + n
	}
	return n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.resolveTotal = auto.NewCounterVec(
		m.counterOpts("resolve_total", "Category resolutions by outcome"),
		[]string{"outcome"},
	)
	m.recordCacheHits = auto.NewCounter(m.counterOpts("record_cache_hits_total", "Resolutions answered from the per-pass record cache"))
	m.recordCacheMisses = auto.NewCounter(m.counterOpts("record_cache_misses_total", "Resolutions that had to query upstream"))
	m.variantsExpanded = auto.NewHistogram(m.histogramOpts(
		"variants_per_category",
		"Number of leaderboard variants a category configuration expands to",
		[]float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
	))
	m.runsUnwatchable = auto.NewCounter(m.counterOpts("runs_unwatchable_total", "Runs dropped from candidate sets because they are unwatchable"))
	m.passesTotal = auto.NewCounter(m.counterOpts("passes_total", "Resolution passes started"))
	m.passDuration = auto.NewHistogram(m.histogramOpts(
		"pass_duration_milliseconds",
		"Wall time of a full resolution pass in milliseconds",
		[]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	))

	m.entityFetches = auto.NewCounterVec(
		m.counterOpts("entity_fetches_total", "Upstream entity lookups by kind"),
		[]string{"kind"},
	)
	m.entityCacheHits = auto.NewCounterVec(
		m.counterOpts("entity_cache_hits_total", "Entity lookups answered from the per-pass cache"),
		[]string{"kind"},
	)
	m.entityFetchErrors = auto.NewCounterVec(
		m.counterOpts("entity_fetch_errors_total", "Failed upstream entity lookups by kind"),
		[]string{"kind"},
	)
	m.leaderboardFetches = auto.NewCounterVec(
		m.counterOpts("leaderboard_fetches_total", "Upstream leaderboard queries by scope"),
		[]string{"scope"},
	)
	m.leaderboardErrors = auto.NewCounterVec(
		m.counterOpts("leaderboard_errors_total", "Failed upstream leaderboard queries by scope"),
		[]string{"scope"},
	)
	m.leaderboardLatency = auto.NewHistogramVec(
		m.histogramOpts("leaderboard_latency_milliseconds", "Upstream leaderboard query latency in milliseconds", []float64{5, 25, 50, 100, 250, 500, 1000, 2500, 5000}),
		[]string{"scope"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.httpBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that resulted in errors", m.httpBuckets),
		[]string{"component", "error_type"},
	)
}

// RecordResolve counts a finished resolution by outcome.
func RecordResolve(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.resolveTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheHit counts a record cache hit.
func RecordCacheHit() {
	if !globalManager.enabled {
		return
	}
	globalManager.recordCacheHits.Inc()
}

// RecordCacheMiss counts a record cache miss.
func RecordCacheMiss() {
	if !globalManager.enabled {
		return
	}
	globalManager.recordCacheMisses.Inc()
}

// ObserveVariants records how many variants a category expanded to.
func ObserveVariants(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.variantsExpanded.Observe(float64(n))
}

// AddUnwatchable counts runs dropped as unwatchable.
func AddUnwatchable(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.runsUnwatchable.Add(float64(n))
}

// RecordPass records a completed resolution pass and its duration.
func RecordPass(d time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.passesTotal.Inc()
	globalManager.passDuration.Observe(float64(d.Milliseconds()))
}

// RecordEntityFetch counts an upstream entity lookup.
func RecordEntityFetch(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.entityFetches.WithLabelValues(kind).Inc()
}

// RecordEntityCacheHit counts an entity lookup served from cache.
func RecordEntityCacheHit(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.entityCacheHits.WithLabelValues(kind).Inc()
}

// RecordEntityFetchError counts a failed entity lookup.
func RecordEntityFetchError(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.entityFetchErrors.WithLabelValues(kind).Inc()
}

// RecordLeaderboardFetch records an upstream leaderboard query and its latency.
func RecordLeaderboardFetch(scope string, latency time.Duration, err error) {
	if !globalManager.enabled {
		return
	}
	globalManager.leaderboardFetches.WithLabelValues(scope).Inc()
	globalManager.leaderboardLatency.WithLabelValues(scope).Observe(float64(latency.Milliseconds()))
	if err != nil {
		globalManager.leaderboardErrors.WithLabelValues(scope).Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
