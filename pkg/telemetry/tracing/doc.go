// Package tracing provides OpenTelemetry tracing for chat turns.
//
// Each turn produces a "chat.turn" span with one "chat.attempt" child per
// model in the fallback chain that was tried. Attempt spans carry the model
// reference, the resolved provider and API family, token counts, and a
// classified error type on failure.
//
// Spans are exported over OTLP gRPC:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//	    insecure: true
//	    sample_ratio: 0.25
//
// Sampling is parent-based: a turn started under an incoming traceparent
// follows the caller's decision, root turns are sampled by trace ID ratio.
// A disabled or nil *Tracer hands out non-recording spans.
package tracing
