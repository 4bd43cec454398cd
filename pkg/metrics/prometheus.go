package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	percentBuckets   []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Screening metrics
	assessments    *prometheus.CounterVec
	invalidInputs  *prometheus.CounterVec
	averagePercent *prometheus.HistogramVec
	scoringLatency prometheus.Histogram
	reports        *prometheus.CounterVec
	reportErrors   *prometheus.CounterVec
	catalogBands   prometheus.Gauge
	catalogTests   *prometheus.GaugeVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cogdiag",
		subsystem:        "screening",
		histogramBuckets: prometheus.DefBuckets,
		percentBuckets:   prometheus.LinearBuckets(10, 10, 10),
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
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
	labels := prometheus.Labels(m.customLabels)

	m.assessments = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "assessments_total",
			Help:        "Total number of scored assessments by age band and tier",
			ConstLabels: labels,
		},
		[]string{"age_band", "tier"},
	)

	m.invalidInputs = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "invalid_inputs_total",
			Help:        "Total number of rejected score sheets by age band",
			ConstLabels: labels,
		},
		[]string{"age_band"},
	)

	m.averagePercent = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "average_percent",
			Help:        "Distribution of average percent scores by age band",
			Buckets:     m.percentBuckets,
			ConstLabels: labels,
		},
		[]string{"age_band"},
	)

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scoring_latency_milliseconds",
		Help:        "Histogram of scoring latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.reports = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "reports_total",
			Help:        "Total number of rendered reports by format",
			ConstLabels: labels,
		},
		[]string{"format"},
	)

	m.reportErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "report_errors_total",
			Help:        "Total number of failed report renders by format",
			ConstLabels: labels,
		},
		[]string{"format"},
	)

	m.catalogBands = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "catalog_bands",
		Help:        "Number of age bands in the loaded catalog",
		ConstLabels: labels,
	})

	m.catalogTests = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "catalog_tests",
			Help:        "Number of tests per age band in the loaded catalog",
			ConstLabels: labels,
		},
		[]string{"age_band"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "Heap memory in use in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})
}

// RecordAssessment counts a scored assessment and observes its average.
func RecordAssessment(ageBand, tier string, averagePercent float64) {
	globalManager.assessments.WithLabelValues(ageBand, tier).Inc()
	globalManager.averagePercent.WithLabelValues(ageBand).Observe(averagePercent)
}

// RecordInvalidInput increments the rejected sheets counter.
func RecordInvalidInput(ageBand string) {
	globalManager.invalidInputs.WithLabelValues(ageBand).Inc()
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordReport increments the rendered reports counter.
func RecordReport(format string) {
	globalManager.reports.WithLabelValues(format).Inc()
}

// RecordReportError increments the failed renders counter.
func RecordReportError(format string) {
	globalManager.reportErrors.WithLabelValues(format).Inc()
}

// UpdateCatalogBands sets the number of loaded age bands.
func UpdateCatalogBands(count int) {
	globalManager.catalogBands.Set(float64(count))
}

// UpdateCatalogTests sets the battery size of one age band.
func UpdateCatalogTests(ageBand string, count int) {
	globalManager.catalogTests.WithLabelValues(ageBand).Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory in use in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// CollectSystem refreshes the system gauges once.
func CollectSystem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	UpdateSystemMemoryUsage(ms.HeapInuse)
	UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// StartSystemCollector refreshes the system gauges every interval until ctx
// is done. A non-positive interval falls back to the manager's refresh
// interval. It returns the interval in use.
func StartSystemCollector(ctx context.Context, interval time.Duration) time.Duration {
	if interval <= 0 {
		interval = globalManager.refreshInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		CollectSystem()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				CollectSystem()
			}
		}
	}()
	return interval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
