// Package metrics provides Prometheus metrics for studyforge monitoring.
// Exports HTTP and AI router metrics.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	instance *Metrics
)

// Metrics holds all Prometheus metric collectors for studyforge
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// AI Metrics
	AIRequestsTotal      *prometheus.CounterVec
	AIRequestDuration    *prometheus.HistogramVec
	AIRequestsInFlight   *prometheus.GaugeVec
	AIProviderAvailable  *prometheus.GaugeVec
	AIFallbacksTotal     *prometheus.CounterVec
	AIParseFallbacks     *prometheus.CounterVec
	AIExhaustedTotal     *prometheus.CounterVec
	AISettingsSavesTotal *prometheus.CounterVec
}

// Get returns the singleton Metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics()
	})
	return instance
}

// newMetrics creates and registers all Prometheus metrics
func newMetrics() *Metrics {
	m := &Metrics{}

	// HTTP Metrics
	m.HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyforge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by endpoint, method, and status code",
		},
		[]string{"endpoint", "method", "status"},
	)

	m.HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studyforge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint", "method"},
	)

	m.HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "studyforge",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)

	// AI Metrics
	m.AIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyforge",
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Total number of provider calls by provider, operation, and status",
		},
		[]string{"provider", "operation", "status"},
	)

	m.AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studyforge",
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "Provider call duration in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider", "operation"},
	)

	m.AIRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "studyforge",
			Subsystem: "ai",
			Name:      "requests_in_flight",
			Help:      "Current number of provider calls being processed by provider",
		},
		[]string{"provider"},
	)

	m.AIProviderAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "studyforge",
			Subsystem: "ai",
			Name:      "provider_available",
			Help:      "Last probed provider availability (1=available, 0=unavailable)",
		},
		[]string{"provider"},
	)

	m.AIFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyforge",
			Subsystem: "ai",
			Name:      "fallbacks_total",
			Help:      "Total number of router advances from a failed provider to the next candidate",
		},
		[]string{"from_provider", "operation"},
	)

	m.AIParseFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyforge",
			Subsystem: "ai",
			Name:      "parse_fallbacks_total",
			Help:      "Total number of provider responses replaced by a local fallback value",
		},
		[]string{"provider", "operation"},
	)

	m.AIExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyforge",
			Subsystem: "ai",
			Name:      "exhausted_total",
			Help:      "Total number of calls where every candidate provider failed",
		},
		[]string{"operation"},
	)

	m.AISettingsSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyforge",
			Subsystem: "ai",
			Name:      "settings_saves_total",
			Help:      "Total number of settings saves by result",
		},
		[]string{"result"},
	)

	return m
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(endpoint, method string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(endpoint, method, statusCodeToLabel(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// RecordAIRequest records a single provider call
func (m *Metrics) RecordAIRequest(provider, operation, status string, duration time.Duration) {
	m.AIRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	m.AIRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// AIRequestStarted tracks an in-flight provider call; call the returned func when it ends.
func (m *Metrics) AIRequestStarted(provider string) func() {
	g := m.AIRequestsInFlight.WithLabelValues(provider)
	g.Inc()
	return g.Dec
}

// SetAIProviderAvailable sets the availability of an AI provider
func (m *Metrics) SetAIProviderAvailable(provider string, available bool) {
	value := 0.0
	if available {
		value = 1.0
	}
	m.AIProviderAvailable.WithLabelValues(provider).Set(value)
}

// RecordAIFallback records the router moving past a failed provider
func (m *Metrics) RecordAIFallback(fromProvider, operation string) {
	m.AIFallbacksTotal.WithLabelValues(fromProvider, operation).Inc()
}

// RecordAIParseFallback records a provider response replaced by a local fallback
func (m *Metrics) RecordAIParseFallback(provider, operation string) {
	m.AIParseFallbacks.WithLabelValues(provider, operation).Inc()
}

// RecordAIExhausted records a call where no candidate succeeded
func (m *Metrics) RecordAIExhausted(operation string) {
	m.AIExhaustedTotal.WithLabelValues(operation).Inc()
}

// RecordSettingsSave records a settings persistence attempt
func (m *Metrics) RecordSettingsSave(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AISettingsSavesTotal.WithLabelValues(result).Inc()
}

// Helper function to convert status code to label
func statusCodeToLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return strconv.Itoa(code)
	}
}
