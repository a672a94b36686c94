// Package metrics provides Prometheus metrics for the FPL optimizer service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Recommendation metrics
	transfersRecommended prometheus.Counter
	transfersNoResult    prometheus.Counter
	transferImprovement  prometheus.Histogram
	optimizeLatency      prometheus.Histogram
	bestTeamRequests     prometheus.Counter
	bestTeamPlayers      prometheus.Gauge
	activeGameweek       prometheus.Gauge

	// Result cache metrics
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	// Projection store metrics
	storeQueryLatency *prometheus.HistogramVec
	storeQueryErrors  *prometheus.CounterVec

	// Schedule feed metrics
	scheduleFetchLatency prometheus.Histogram
	scheduleRetries      prometheus.Counter

	// Upstream failures by collaborator
	upstreamErrors *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fpl",
		subsystem:        "optimizer",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.transfersRecommended = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("transfers_recommended_total"),
		Help: "Total number of transfer proposals returned",
	})
	m.transfersNoResult = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("transfers_no_result_total"),
		Help: "Total number of transfer requests with no valid replacement",
	})
	m.transferImprovement = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("transfer_improvement_points"),
		Help:    "Projected points gained by recommended transfers",
		Buckets: []float64{-5, -2, -1, 0, 0.5, 1, 2, 3, 5, 8, 13},
	})
	m.optimizeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("optimize_latency_milliseconds"),
		Help:    "Time spent searching a roster for the best transfer",
		Buckets: m.histogramBuckets,
	})
	m.bestTeamRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("best_team_requests_total"),
		Help: "Total number of best team requests",
	})
	m.bestTeamPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("best_team_players"),
		Help: "Number of players in the last best team served",
	})
	m.activeGameweek = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("active_gameweek"),
		Help: "Gameweek resolved for the last request",
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("cache_hits_total"),
		Help: "Best team cache hits",
	})
	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("cache_misses_total"),
		Help: "Best team cache misses (team assembled)",
	})

	m.storeQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("store_query_latency_milliseconds"),
		Help:    "Projection store query latency in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"query"})
	m.storeQueryErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("store_query_errors_total"),
		Help: "Projection store query failures",
	}, []string{"query"})

	m.scheduleFetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("schedule_fetch_latency_milliseconds"),
		Help:    "Schedule feed fetch latency in milliseconds, retries included",
		Buckets: m.histogramBuckets,
	})
	m.scheduleRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("schedule_retries_total"),
		Help: "Schedule feed request retries",
	})

	m.upstreamErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("upstream_errors_total"),
		Help: "Failures of external collaborators surfaced to callers",
	}, []string{"source"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("http_requests_total"),
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("http_request_duration_milliseconds"),
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_type_total"),
		Help: "Errors by type and severity",
	}, []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_endpoint_total"),
		Help: "Errors by endpoint, method and type",
	}, []string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("error_latency_milliseconds"),
		Help:    "Latency of operations that ended in an error",
		Buckets: m.histogramBuckets,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_memory_bytes"),
		Help: "Allocated heap memory in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_goroutines"),
		Help: "Number of goroutines",
	})
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("system_gc_pause_milliseconds"),
		Help:    "Average GC pause time in milliseconds",
		Buckets: m.histogramBuckets,
	})
}

// Recommendation Metrics Functions.

// RecordTransferRecommended records a proposal and its projected gain.
func RecordTransferRecommended(improvement float64) {
	globalManager.transfersRecommended.Inc()
	globalManager.transferImprovement.Observe(improvement)
}

// RecordTransferNoResult records a request that had no valid replacement.
func RecordTransferNoResult() {
	globalManager.transfersNoResult.Inc()
}

// RecordOptimizeLatency records how long a roster search took.
func RecordOptimizeLatency(latencyMs float64) {
	globalManager.optimizeLatency.Observe(latencyMs)
}

// RecordBestTeamRequest records a served best team and its size.
func RecordBestTeamRequest(players int) {
	globalManager.bestTeamRequests.Inc()
	globalManager.bestTeamPlayers.Set(float64(players))
}

// UpdateActiveGameweek sets the last resolved gameweek.
func UpdateActiveGameweek(id int) {
	globalManager.activeGameweek.Set(float64(id))
}

// RecordCacheHit increments the best team cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the best team cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// Collaborator Metrics Functions.

// RecordStoreQuery records a projection store query and whether it failed.
func RecordStoreQuery(query string, latencyMs float64, err error) {
	globalManager.storeQueryLatency.WithLabelValues(query).Observe(latencyMs)
	if err != nil {
		globalManager.storeQueryErrors.WithLabelValues(query).Inc()
	}
}

// RecordScheduleFetch records a schedule feed fetch.
func RecordScheduleFetch(latencyMs float64) {
	globalManager.scheduleFetchLatency.Observe(latencyMs)
}

// RecordScheduleRetry increments the schedule retry counter.
func RecordScheduleRetry() {
	globalManager.scheduleRetries.Inc()
}

// RecordUpstreamError records a collaborator failure by source.
func RecordUpstreamError(source string) {
	globalManager.upstreamErrors.WithLabelValues(source).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

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

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// SinceMs returns the milliseconds elapsed since start.
func SinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
