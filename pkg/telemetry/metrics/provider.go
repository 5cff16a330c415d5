package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks attempts against upstream providers.
//
// Metrics:
//   - yiyi_provider_health: 1=healthy, 0=unhealthy
//   - yiyi_provider_attempts_total: attempts by provider, model, outcome
//   - yiyi_provider_attempt_duration_seconds: attempt latency
//   - yiyi_provider_errors_total: failures by provider and error type
type ProviderMetrics struct {
	health   *prometheus.GaugeVec
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewProviderMetrics creates and registers provider metrics.
func NewProviderMetrics(namespace string, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "provider_health",
				Help:      "Provider health status (1=healthy, 0=unhealthy)",
			},
			[]string{"provider"},
		),

		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Total number of model attempts by outcome",
			},
			[]string{"provider", "model", "outcome"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_attempt_duration_seconds",
				Help:      "Duration of model attempts in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Total number of failed attempts by error type",
			},
			[]string{"provider", "error_type"},
		),
	}

	registry.MustRegister(
		pm.health,
		pm.attempts,
		pm.latency,
		pm.errors,
	)

	return pm
}

// UpdateHealth sets the health gauge of a provider.
func (pm *ProviderMetrics) UpdateHealth(provider string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	pm.health.WithLabelValues(provider).Set(value)
}

// RecordAttempt counts an attempt and observes its latency.
func (pm *ProviderMetrics) RecordAttempt(provider, model, outcome string, duration time.Duration) {
	pm.attempts.WithLabelValues(provider, model, outcome).Inc()
	pm.latency.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordError records a failed attempt.
//
// Common error types:
//   - "auth": 401/403 from the provider
//   - "rate_limit": 429
//   - "timeout": no response headers in time
//   - "provider": other HTTP errors
//   - "stream": stream broke after it started
//   - "parse": malformed payload
//   - "resolution": bad model reference or unsupported API family
func (pm *ProviderMetrics) RecordError(provider, errorType string) {
	pm.errors.WithLabelValues(provider, errorType).Inc()
}
