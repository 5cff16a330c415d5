package config

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"

	"yiyi-hq/gateway/pkg/providers"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "gateway.port").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Known enumerations.
var (
	validLogLevels = map[string]bool{
		"silly": true, "trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true,
	}
	validLogFormats    = map[string]bool{"json": true, "text": true}
	validAuthModes     = map[string]bool{"api-key": true, "aws-sdk": true, "oauth": true, "token": true}
	validUsageBackends = map[string]bool{"memory": true, "sqlite": true, "sqlite3": true}
)

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
//
// An empty model.primary is accepted here; a gateway without a primary model
// starts normally and reports a configuration error on each turn.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateGateway(&cfg.Gateway)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateModel("model", &cfg.Model, cfg.Providers)...)
	if cfg.ImageModel != nil {
		errs = append(errs, validateModel("image_model", cfg.ImageModel, cfg.Providers)...)
	}

	if cfg.Sessions.MaxHistory < 1 {
		errs = append(errs, FieldError{
			Field:   "sessions.max_history",
			Message: "max history must be at least 1",
		})
	}

	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateUsage(&cfg.Usage)...)
	errs = append(errs, validateMaintenance(&cfg.Maintenance)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateGateway(cfg *GatewayConfig) []FieldError {
	var errs []FieldError

	if cfg.Host == "" {
		errs = append(errs, FieldError{Field: "gateway.host", Message: "host is required"})
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, FieldError{
			Field:   "gateway.port",
			Message: fmt.Sprintf("port %d out of range 1-65535", cfg.Port),
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "gateway.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "gateway.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "gateway.shutdown_timeout", Message: "shutdown timeout must be positive"})
	}
	if cfg.MaxMessageBytes < 0 {
		errs = append(errs, FieldError{Field: "gateway.max_message_bytes", Message: "max message bytes must be non-negative"})
	}
	if cfg.PingInterval < 0 {
		errs = append(errs, FieldError{Field: "gateway.ping_interval", Message: "ping interval must be positive"})
	}
	if cfg.FramesPerSecond < 0 {
		errs = append(errs, FieldError{Field: "gateway.frames_per_second", Message: "frames per second must be positive"})
	}
	if cfg.FrameBurst < 0 {
		errs = append(errs, FieldError{Field: "gateway.frame_burst", Message: "frame burst must be positive"})
	}

	return errs
}

// validateProviders validates provider configurations. Providers are visited
// in name order so the error list is stable.
func validateProviders(provs map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	names := make([]string, 0, len(provs))
	for name := range provs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := provs[name]
		prefix := fmt.Sprintf("providers.%s", name)

		if strings.Contains(name, "/") {
			errs = append(errs, FieldError{
				Field:   prefix,
				Message: "provider name must not contain '/'",
			})
		}

		if p.API != "" && !providers.IsKnownAPI(p.API) {
			errs = append(errs, FieldError{
				Field:   prefix + ".api",
				Message: fmt.Sprintf("unknown api %q: must be one of %s", p.API, strings.Join(providers.KnownAPIs, ", ")),
			})
		}

		if p.Auth != "" && !validAuthModes[p.Auth] {
			errs = append(errs, FieldError{
				Field:   prefix + ".auth",
				Message: fmt.Sprintf("invalid auth mode %q: must be 'api-key', 'aws-sdk', 'oauth', or 'token'", p.Auth),
			})
		}

		if p.BaseURL != "" {
			u, err := url.Parse(p.BaseURL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".base_url",
					Message: fmt.Sprintf("invalid URL %q", p.BaseURL),
				})
			} else if u.Scheme != "http" && u.Scheme != "https" {
				errs = append(errs, FieldError{
					Field:   prefix + ".base_url",
					Message: fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme),
				})
			}
		}

		if p.Timeout < 0 {
			errs = append(errs, FieldError{Field: prefix + ".timeout", Message: "timeout must be positive"})
		}
		if p.MaxRetries < 0 || p.MaxRetries > 10 {
			errs = append(errs, FieldError{Field: prefix + ".max_retries", Message: "max retries must be between 0 and 10"})
		}
	}

	return errs
}

func validateModel(section string, m *ModelConfig, provs map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	check := func(field, ref string) {
		name, model, ok := strings.Cut(ref, "/")
		if !ok || name == "" || model == "" {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("invalid model reference %q: expected provider/model", ref),
			})
			return
		}
		if _, ok := provs[name]; !ok {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("model reference %q names unknown provider %q", ref, name),
			})
		}
	}

	if m.Primary != "" {
		check(section+".primary", m.Primary)
	}
	for i, ref := range m.Fallbacks {
		check(fmt.Sprintf("%s.fallbacks[%d]", section, i), ref)
	}

	return errs
}

func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	if !validLogLevels[strings.ToLower(cfg.Level)] {
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid logging level %q", cfg.Level),
		})
	}
	if !validLogFormats[cfg.Format] {
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Format),
		})
	}
	if cfg.MaxAge < 0 {
		errs = append(errs, FieldError{Field: "logging.max_age", Message: "max age must be positive"})
	}
	for i, pattern := range cfg.RedactPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("logging.redact_patterns[%d]", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if cfg.Metrics.IsEnabled() && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/'",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}

func validateUsage(cfg *UsageConfig) []FieldError {
	var errs []FieldError

	if !validUsageBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "usage.backend",
			Message: fmt.Sprintf("invalid usage backend %q: must be 'memory', 'sqlite', or 'sqlite3'", cfg.Backend),
		})
	}
	if cfg.Enabled && cfg.Backend != "memory" && cfg.Path == "" {
		errs = append(errs, FieldError{Field: "usage.path", Message: "path is required for SQLite backends"})
	}
	if cfg.Retention < 0 {
		errs = append(errs, FieldError{Field: "usage.retention", Message: "retention must be positive"})
	}

	return errs
}

func validateMaintenance(cfg *MaintenanceConfig) []FieldError {
	var errs []FieldError

	schedules := []struct {
		field string
		spec  string
	}{
		{"maintenance.log_prune_schedule", cfg.LogPruneSchedule},
		{"maintenance.usage_prune_schedule", cfg.UsagePruneSchedule},
	}
	for _, s := range schedules {
		if s.spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(s.spec); err != nil {
			errs = append(errs, FieldError{
				Field:   s.field,
				Message: fmt.Sprintf("invalid cron expression %q: %v", s.spec, err),
			})
		}
	}

	return errs
}
