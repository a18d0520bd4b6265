package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by stratdesk.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Outbound request metrics (pkg/request)
	clientRequests        *prometheus.CounterVec
	clientRequestDuration *prometheus.HistogramVec
	clientErrors          *prometheus.CounterVec
	clientRetries         *prometheus.CounterVec
	clientInflight        prometheus.Gauge
	clientRateLimitWait   prometheus.Histogram

	// Inbound HTTP metrics (fake backend)
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// Fake backend store gauges
	strategiesTotal   prometheus.Gauge
	runningStrategies prometheus.Gauge
	agentJobs         *prometheus.GaugeVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "stratdesk",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // collector declarations
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.clientRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "client",
		Name:        "requests_total",
		Help:        "Outbound API requests by endpoint, method and status code",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.clientRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "client",
		Name:        "request_duration_milliseconds",
		Help:        "Outbound API request latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method"})

	m.clientErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "client",
		Name:        "errors_total",
		Help:        "Outbound API failures by endpoint and error type",
		ConstLabels: labels,
	}, []string{"endpoint", "error_type"})

	m.clientRetries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "client",
		Name:        "retries_total",
		Help:        "Retried outbound API requests by endpoint",
		ConstLabels: labels,
	}, []string{"endpoint"})

	m.clientInflight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "client",
		Name:        "inflight_requests",
		Help:        "Outbound API requests currently in flight",
		ConstLabels: labels,
	})

	m.clientRateLimitWait = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "client",
		Name:        "ratelimit_wait_milliseconds",
		Help:        "Time spent waiting on the client-side rate limiter",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "mockapi",
		Name:        "http_requests_total",
		Help:        "Inbound HTTP requests by endpoint, method and status code",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "mockapi",
		Name:        "http_request_duration_milliseconds",
		Help:        "Inbound HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "mockapi",
		Name:        "errors_by_endpoint_total",
		Help:        "Inbound HTTP errors by endpoint, method and error type",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.strategiesTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "mockapi",
		Name:        "strategies_total",
		Help:        "Strategies held by the fake backend",
		ConstLabels: labels,
	})

	m.runningStrategies = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "mockapi",
		Name:        "running_strategies",
		Help:        "Strategies currently in the running state",
		ConstLabels: labels,
	})

	m.agentJobs = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "mockapi",
		Name:        "agent_jobs",
		Help:        "Backtest agent jobs by status",
		ConstLabels: labels,
	}, []string{"status"})
}

// RecordClientRequest records a completed outbound request.
func (m *Manager) RecordClientRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.clientRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.clientRequestDuration.WithLabelValues(endpoint, method).Observe(durationMs)
}

// RecordClientError records a failed outbound request.
func (m *Manager) RecordClientError(endpoint, errorType string) {
	if !m.enabled {
		return
	}
	m.clientErrors.WithLabelValues(endpoint, errorType).Inc()
}

// RecordClientRetry records one retry attempt.
func (m *Manager) RecordClientRetry(endpoint string) {
	if !m.enabled {
		return
	}
	m.clientRetries.WithLabelValues(endpoint).Inc()
}

// AddClientInflight moves the in-flight gauge by delta.
func (m *Manager) AddClientInflight(delta float64) {
	if !m.enabled {
		return
	}
	m.clientInflight.Add(delta)
}

// RecordRateLimitWait records time spent blocked on the limiter.
func (m *Manager) RecordRateLimitWait(waitMs float64) {
	if !m.enabled {
		return
	}
	m.clientRateLimitWait.Observe(waitMs)
}

// RecordHTTPRequest records an inbound HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an inbound HTTP error.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !m.enabled {
		return
	}
	m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateStrategyCounts sets the fake backend's strategy gauges.
func (m *Manager) UpdateStrategyCounts(total, running int) {
	if !m.enabled {
		return
	}
	m.strategiesTotal.Set(float64(total))
	m.runningStrategies.Set(float64(running))
}

// UpdateAgentJobs sets the job gauge for each status.
func (m *Manager) UpdateAgentJobs(byStatus map[string]int) {
	if !m.enabled {
		return
	}
	m.agentJobs.Reset()
	for status, n := range byStatus {
		m.agentJobs.WithLabelValues(status).Set(float64(n))
	}
}

// Global helpers delegate to the process-wide manager.

// Default returns the process-wide manager.
func Default() *Manager { return globalManager }

// RecordClientRequest records a completed outbound request.
func RecordClientRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordClientRequest(endpoint, method, statusCode, durationMs)
}

// RecordClientError records a failed outbound request.
func RecordClientError(endpoint, errorType string) {
	globalManager.RecordClientError(endpoint, errorType)
}

// RecordClientRetry records one retry attempt.
func RecordClientRetry(endpoint string) {
	globalManager.RecordClientRetry(endpoint)
}

// AddClientInflight moves the in-flight gauge by delta.
func AddClientInflight(delta float64) {
	globalManager.AddClientInflight(delta)
}

// RecordRateLimitWait records time spent blocked on the limiter.
func RecordRateLimitWait(waitMs float64) {
	globalManager.RecordRateLimitWait(waitMs)
}

// RecordHTTPRequest records an inbound HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordErrorByEndpoint records an inbound HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

// UpdateStrategyCounts sets the fake backend's strategy gauges.
func UpdateStrategyCounts(total, running int) {
	globalManager.UpdateStrategyCounts(total, running)
}

// UpdateAgentJobs sets the job gauge for each status.
func UpdateAgentJobs(byStatus map[string]int) {
	globalManager.UpdateAgentJobs(byStatus)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
