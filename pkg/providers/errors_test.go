package providers

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "provider error with status",
			err:  &ProviderError{Provider: "openai", StatusCode: 500, Message: "internal error"},
			want: `provider "openai" error (status 500): internal error`,
		},
		{
			name: "provider error without status",
			err:  &ProviderError{Provider: "openai", Message: "connection failed"},
			want: `provider "openai" error: connection failed`,
		},
		{
			name: "rate limit with retry after",
			err:  &RateLimitError{Provider: "anthropic", RetryAfter: 2 * time.Second, Message: "slow down"},
			want: `provider "anthropic" rate limit exceeded (retry after 2s): slow down`,
		},
		{
			name: "timeout",
			err:  &TimeoutError{Provider: "local", Timeout: 30 * time.Second},
			want: `provider "local" request timeout after 30s`,
		},
		{
			name: "stream error without cause",
			err:  &StreamError{Provider: "local", Message: "stream ended without completion"},
			want: `provider "local" stream error: stream ended without completion`,
		},
		{
			name: "validation",
			err:  &ValidationError{Field: "messages", Message: "at least one message is required"},
			want: `validation error for field "messages": at least one message is required`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")

	for _, err := range []error{
		&ProviderError{Provider: "p", Cause: cause},
		&ParseError{Provider: "p", Cause: cause},
		&StreamError{Provider: "p", Message: "read failed", Cause: cause},
	} {
		if !errors.Is(fmt.Errorf("attempt: %w", err), cause) {
			t.Errorf("expected %T to unwrap to its cause", err)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "server error", err: &ProviderError{StatusCode: 503}, want: true},
		{name: "transport error", err: &ProviderError{Message: "dial failed"}, want: true},
		{name: "bad request", err: &ProviderError{StatusCode: 400}, want: false},
		{name: "wrapped server error", err: fmt.Errorf("x: %w", &ProviderError{StatusCode: 502}), want: true},
		{name: "auth error", err: &AuthError{Provider: "p"}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestValidateRequest(t *testing.T) {
	model := &ResolvedModel{ProviderName: "p", ModelID: "m"}
	req := &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}}

	tests := []struct {
		name  string
		model *ResolvedModel
		req   *ChatRequest
		field string
	}{
		{name: "valid", model: model, req: req},
		{name: "nil model", model: nil, req: req, field: "model"},
		{name: "empty model id", model: &ResolvedModel{ProviderName: "p"}, req: req, field: "model"},
		{name: "nil request", model: model, req: nil, field: "request"},
		{name: "no messages", model: model, req: &ChatRequest{}, field: "messages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.model, tt.req)
			if tt.field == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("expected validation error on %q, got %v", tt.field, err)
			}
		})
	}
}
