package logging

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestRedactor_RedactString(t *testing.T) {
	redactor, err := NewRedactor([]string{`ghp_[A-Za-z0-9]{10}`})
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}

	tests := []struct {
		name   string
		input  string
		secret string
	}{
		{"openai key", "key sk-abcdefghijklmnopqrstuvwxyz012345 used", "sk-abcdefghijklmnopqrstuvwxyz012345"},
		{"anthropic key", "anthropic-ABCDEFGHIJKLMNOPQRSTUVWX", "anthropic-ABCDEFGHIJKLMNOPQRSTUVWX"},
		{"bearer", "Authorization: Bearer eyJhbGciOi.abc", "eyJhbGciOi.abc"},
		{"token assignment", `token="abcdefghijklmnopqrstuvwxyz"`, "abcdefghijklmnopqrstuvwxyz"},
		{"custom pattern", "pushed with ghp_0123456789", "ghp_0123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactor.RedactString(tt.input)
			if strings.Contains(got, tt.secret) {
				t.Errorf("expected %q to be redacted, got %q", tt.secret, got)
			}
			if !strings.Contains(got, Replacement) {
				t.Errorf("expected replacement marker in %q", got)
			}
		})
	}
}

func TestRedactor_LeavesPlainText(t *testing.T) {
	redactor, _ := NewRedactor(nil)

	inputs := []string{
		"sk-short",
		"the model answered in 12 tokens",
		"openai/gpt-4o-mini",
	}
	for _, in := range inputs {
		if got := redactor.RedactString(in); got != in {
			t.Errorf("expected %q unchanged, got %q", in, got)
		}
	}
}

func TestRedactor_ReplaceAttr(t *testing.T) {
	redactor, _ := NewRedactor(nil)

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"sensitive key", slog.String("Authorization", "anything"), Replacement},
		{"sensitive key empty", slog.String("api_key", ""), ""},
		{"error value", slog.Any("error", errors.New("rejected sk-aaaaaaaaaaaaaaaaaaaaaaaa")), "rejected " + Replacement},
		{"plain value", slog.String("provider", "openai"), "openai"},
		{"counter", slog.Int("prompt_tokens", 7), "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactor.ReplaceAttr(nil, tt.attr)
			if got.Value.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got.Value.String())
			}
		})
	}
}

func TestRedactAPIKey(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"short":             Replacement,
		"sk-1234567890abcd": "sk-1..." + Replacement,
	}
	for in, want := range tests {
		if got := RedactAPIKey(in); got != want {
			t.Errorf("RedactAPIKey(%q) = %q, want %q", in, got, want)
		}
	}
}
