package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Replacement is substituted for every redacted value.
const Replacement = "[REDACTED]"

// Redactor scrubs credentials from log attributes.
type Redactor struct {
	patterns []*regexp.Regexp
}

// Built-in patterns for provider keys and bearer tokens.
var defaultPatterns = []string{
	`sk-[A-Za-z0-9_-]{20,}`,
	`anthropic-[A-Za-z0-9_-]{20,}`,
	`(?i)Bearer\s+[A-Za-z0-9._~+/-]+=*`,
	`(?i)token["'\s:=]+["']?[A-Za-z0-9._-]{20,}`,
}

// sensitiveKeys are attribute key fragments whose values are always redacted.
var sensitiveKeys = []string{
	"api_key", "apikey", "api-key",
	"authorization", "x-api-key",
	"token", "secret", "password", "passwd",
}

// NewRedactor compiles the built-in patterns plus custom ones. An invalid
// custom pattern is an error.
func NewRedactor(custom []string) (*Redactor, error) {
	r := &Redactor{}
	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, regexp.MustCompile(p))
	}
	for _, p := range custom {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

// RedactString replaces every pattern match in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, re := range r.patterns {
		value = re.ReplaceAllString(value, Replacement)
	}
	return value
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey || a.Key == slog.LevelKey || a.Key == slog.SourceKey {
		return a
	}

	// numeric values such as prompt_tokens are counters, not credentials
	kind := a.Value.Kind()
	if IsSensitiveKey(a.Key) && (kind == slog.KindString || kind == slog.KindAny) {
		if kind == slog.KindString && a.Value.String() == "" {
			return a
		}
		return slog.String(a.Key, Replacement)
	}

	switch kind {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return a
}

// IsSensitiveKey reports whether an attribute or header name carries
// credentials.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// RedactAPIKey masks a key for display, keeping a short prefix.
func RedactAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 8 {
		return Replacement
	}
	return apiKey[:4] + "..." + Replacement
}
