// Package metrics provides Prometheus metrics for the YiYi gateway.
//
// # Metrics Categories
//
//   - Turn metrics: turns by status, turn duration, attempts per turn, tokens
//   - Provider metrics: attempts, attempt latency, errors by type, health
//   - Relay metrics: open connections, connection lifetime, frames, sessions
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics.Namespace, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
//	collector.RecordAttempt("openai", "gpt-4o-mini", "failure", "rate_limit", elapsed)
//
// A nil *Collector is accepted everywhere and records nothing.
//
// Model names come from user configuration, so label sets are capped by a
// CardinalityLimiter; overflow is aggregated under model="other".
package metrics
