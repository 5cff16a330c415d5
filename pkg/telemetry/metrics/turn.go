package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TurnMetrics tracks chat turns end to end.
//
// Metrics:
//   - yiyi_turns_total: turns by final status
//   - yiyi_turn_duration_seconds: wall time from user message to terminal event
//   - yiyi_turn_attempts: attempts used per turn (1 = primary succeeded)
//   - yiyi_tokens_total: reported tokens by provider, model and type
type TurnMetrics struct {
	turnsTotal   *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec
	attempts     prometheus.Histogram
	tokensTotal  *prometheus.CounterVec
}

// NewTurnMetrics creates and registers turn metrics.
func NewTurnMetrics(namespace string, registry *prometheus.Registry) *TurnMetrics {
	tm := &TurnMetrics{
		turnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Total number of chat turns by final status",
			},
			[]string{"status"},
		),

		// LLM streams run from sub-second to minutes
		turnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "Duration of chat turns in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),

		attempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_attempts",
				Help:      "Number of model attempts per chat turn",
				Buckets:   []float64{1, 2, 3, 4, 6},
			},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Total tokens reported by providers",
			},
			[]string{"provider", "model", "type"},
		),
	}

	registry.MustRegister(
		tm.turnsTotal,
		tm.turnDuration,
		tm.attempts,
		tm.tokensTotal,
	)

	return tm
}

// RecordTurn records one finished turn.
func (tm *TurnMetrics) RecordTurn(status string, attempts int, duration time.Duration) {
	tm.turnsTotal.WithLabelValues(status).Inc()
	tm.turnDuration.WithLabelValues(status).Observe(duration.Seconds())
	if attempts > 0 {
		tm.attempts.Observe(float64(attempts))
	}
}

// RecordTokens adds prompt and completion token counts.
func (tm *TurnMetrics) RecordTokens(provider, model string, prompt, completion int) {
	if prompt > 0 {
		tm.tokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		tm.tokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completion))
	}
}
