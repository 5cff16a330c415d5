// Package telemetry groups the gateway's observability packages.
//
//   - logging: slog logger with secret redaction and daily log files
//   - metrics: Prometheus collector for turns, attempts and connections
//   - tracing: OpenTelemetry spans for turns and attempts
//   - health: liveness and readiness checks
//
// The packages are wired together in pkg/server; none of them is required
// by the chat orchestrator, which treats every one as optional.
package telemetry
