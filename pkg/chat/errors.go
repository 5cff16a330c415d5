package chat

import (
	"context"
	"errors"
	"fmt"

	"yiyi-hq/gateway/pkg/providerfactory"
	"yiyi-hq/gateway/pkg/providers"
	"yiyi-hq/gateway/pkg/routing"
)

// Error codes carried in ErrorPayload.
const (
	CodeModelError     = "MODEL_ERROR"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeConfigError    = "CONFIG_ERROR"
	CodeInternal       = "INTERNAL"
)

// ErrorPayload is the user-visible form of a failure.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ConfigError is a configuration defect detected before any attempt, such
// as a missing primary model. It is never retried.
type ConfigError struct {
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Code returns CONFIG_ERROR.
func (e *ConfigError) Code() string { return CodeConfigError }

// ModelError reports that every entry of the fallback chain failed.
type ModelError struct {
	// Attempts is the number of chain entries tried
	Attempts int

	// Last is the failure of the final attempt
	Last error
}

// Error returns the last attempt's message.
func (e *ModelError) Error() string {
	if e.Last == nil {
		return "all models failed"
	}
	return e.Last.Error()
}

// Unwrap returns the last attempt's failure.
func (e *ModelError) Unwrap() error {
	return e.Last
}

// Code returns MODEL_ERROR.
func (e *ModelError) Code() string { return CodeModelError }

// RequestError is a turn rejected before it starts.
type RequestError struct {
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// Code returns INVALID_REQUEST.
func (e *RequestError) Code() string { return CodeInvalidRequest }

// ToErrorPayload maps err to its payload. Errors with a Code method keep
// their code; everything else is INTERNAL.
func ToErrorPayload(err error) *ErrorPayload {
	if err == nil {
		return nil
	}

	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return &ErrorPayload{Code: coded.Code(), Message: err.Error()}
	}
	return &ErrorPayload{Code: CodeInternal, Message: err.Error()}
}

// Error type labels used in metrics, spans and logs.
const (
	errorTypeAuth       = "auth"
	errorTypeRateLimit  = "rate_limit"
	errorTypeTimeout    = "timeout"
	errorTypeProvider   = "provider"
	errorTypeStream     = "stream"
	errorTypeParse      = "parse"
	errorTypeResolution = "resolution"
	errorTypeValidation = "validation"
	errorTypeCancelled  = "cancelled"
	errorTypeUnknown    = "unknown"
)

// classifyError returns a low-cardinality label for an attempt failure.
func classifyError(err error) string {
	var (
		authErr      *providers.AuthError
		rateLimitErr *providers.RateLimitError
		timeoutErr   *providers.TimeoutError
		providerErr  *providers.ProviderError
		streamErr    *providers.StreamError
		parseErr     *providers.ParseError
		validation   *providers.ValidationError
	)

	switch {
	case errors.Is(err, routing.ErrInvalidReference),
		errors.Is(err, routing.ErrUnknownProvider),
		errors.Is(err, providerfactory.ErrUnsupportedAPI):
		return errorTypeResolution
	case errors.As(err, &authErr):
		return errorTypeAuth
	case errors.As(err, &rateLimitErr):
		return errorTypeRateLimit
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return errorTypeTimeout
	case errors.As(err, &parseErr):
		return errorTypeParse
	case errors.As(err, &streamErr):
		return errorTypeStream
	case errors.As(err, &providerErr):
		return errorTypeProvider
	case errors.As(err, &validation):
		return errorTypeValidation
	case errors.Is(err, context.Canceled):
		return errorTypeCancelled
	default:
		return errorTypeUnknown
	}
}
