package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanTurn    = "chat.turn"
	SpanAttempt = "chat.attempt"
)

// Attribute keys in the yiyi.* namespace.
const (
	AttrSession     = "yiyi.session_id"
	AttrChainLength = "yiyi.chain.length"
	AttrAttempts    = "yiyi.attempts"
	AttrOutcome     = "yiyi.outcome"

	AttrModelRef = "yiyi.model.ref"
	AttrProvider = "yiyi.provider"
	AttrModel    = "yiyi.model"
	AttrAPI      = "yiyi.api"
	AttrAttempt  = "yiyi.attempt"

	AttrTokensPrompt     = "yiyi.tokens.prompt"
	AttrTokensCompletion = "yiyi.tokens.completion"
	AttrTokensTotal      = "yiyi.tokens.total"

	AttrErrorType = "yiyi.error.type"
)

// TurnAttributes describes a chat turn.
func TurnAttributes(sessionID string, chainLength int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrSession, sessionID),
		attribute.Int(AttrChainLength, chainLength),
	}
}

// AttemptAttributes describes one attempt against a model reference.
func AttemptAttributes(ref string, attempt int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrModelRef, ref),
		attribute.Int(AttrAttempt, attempt),
	}
}

// SetModelAttributes records the resolved provider, model and API family.
func SetModelAttributes(span trace.Span, provider, model, api string) {
	span.SetAttributes(
		attribute.String(AttrProvider, provider),
		attribute.String(AttrModel, model),
		attribute.String(AttrAPI, api),
	)
}

// SetTokenAttributes sets token count attributes on a span.
func SetTokenAttributes(span trace.Span, promptTokens, completionTokens, totalTokens int) {
	span.SetAttributes(
		attribute.Int(AttrTokensPrompt, promptTokens),
		attribute.Int(AttrTokensCompletion, completionTokens),
		attribute.Int(AttrTokensTotal, totalTokens),
	)
}

// SetErrorAttributes records a classified failure and marks the span failed.
func SetErrorAttributes(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	span.SetAttributes(attribute.String(AttrErrorType, errorType))
	SetStatus(span, err)
}
