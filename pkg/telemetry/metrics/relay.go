package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RelayMetrics tracks WebSocket connections and frames.
type RelayMetrics struct {
	connectionsActive  prometheus.Gauge
	connectionsTotal   prometheus.Counter
	connectionDuration prometheus.Histogram
	sessionsActive     prometheus.Gauge
	framesTotal        *prometheus.CounterVec
}

// NewRelayMetrics creates and registers relay metrics.
func NewRelayMetrics(namespace string, registry *prometheus.Registry) *RelayMetrics {
	rm := &RelayMetrics{
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of open WebSocket connections",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total number of accepted WebSocket connections",
		}),
		connectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connection_duration_seconds",
			Help:      "Lifetime of WebSocket connections in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions held in memory",
		}),
		framesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Total relay frames by direction and type",
			},
			[]string{"direction", "type"},
		),
	}

	registry.MustRegister(
		rm.connectionsActive,
		rm.connectionsTotal,
		rm.connectionDuration,
		rm.sessionsActive,
		rm.framesTotal,
	)

	return rm
}

// ConnectionOpened increments the connection gauges.
func (rm *RelayMetrics) ConnectionOpened() {
	rm.connectionsActive.Inc()
	rm.connectionsTotal.Inc()
}

// ConnectionClosed decrements the active gauge and observes the lifetime.
func (rm *RelayMetrics) ConnectionClosed(duration time.Duration) {
	rm.connectionsActive.Dec()
	rm.connectionDuration.Observe(duration.Seconds())
}

// RecordFrame counts one frame.
func (rm *RelayMetrics) RecordFrame(direction, frameType string) {
	rm.framesTotal.WithLabelValues(direction, frameType).Inc()
}

// SetSessions sets the live session count.
func (rm *RelayMetrics) SetSessions(n int) {
	rm.sessionsActive.Set(float64(n))
}
