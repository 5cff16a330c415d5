package config

import "time"

// Config is the root configuration structure for the YiYi gateway.
type Config struct {
	// Gateway contains the HTTP/WebSocket listener configuration.
	Gateway GatewayConfig `yaml:"gateway"`

	// Model selects the primary chat model and its ordered fallbacks.
	// References have the form "provider-name/model-id".
	Model ModelConfig `yaml:"model"`

	// ImageModel is parsed and preserved but not used by the gateway.
	ImageModel *ModelConfig `yaml:"image_model,omitempty"`

	// Providers contains backend connection settings keyed by provider name.
	// The provider name is the part of a model reference before the first "/".
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Sessions contains per-connection conversation history settings.
	Sessions SessionsConfig `yaml:"sessions"`

	// Logging contains log level, format, file and redaction settings.
	Logging LoggingConfig `yaml:"logging"`

	// Telemetry contains metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Usage contains the token usage ledger configuration.
	Usage UsageConfig `yaml:"usage"`

	// Maintenance contains the schedules of background housekeeping jobs.
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// GatewayConfig contains configuration for the gateway listener.
type GatewayConfig struct {
	// Host is the interface to bind.
	// Default: "localhost"
	Host string `yaml:"host"`

	// Port is the TCP port to listen on.
	// Default: 3000
	Port int `yaml:"port"`

	// ServiceName is reported by the health endpoint.
	// Default: "yiyi-gateway"
	ServiceName string `yaml:"service_name"`

	// ReadTimeout bounds reading the upgrade request headers.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds a single WebSocket frame write.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout is the maximum time to wait for connections to drain.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxMessageBytes is the largest inbound WebSocket message accepted.
	// Default: 1048576 (1MB)
	MaxMessageBytes int64 `yaml:"max_message_bytes"`

	// PingInterval is the keepalive ping period. A connection that does not
	// answer within two intervals is closed.
	// Default: 30s
	PingInterval time.Duration `yaml:"ping_interval"`

	// FramesPerSecond limits inbound frames per connection.
	// Default: 20
	FramesPerSecond float64 `yaml:"frames_per_second"`

	// FrameBurst is the inbound frame burst allowance per connection.
	// Default: 40
	FrameBurst int `yaml:"frame_burst"`
}

// ModelConfig is a primary model reference plus ordered fallbacks.
type ModelConfig struct {
	// Primary is tried first on every turn.
	Primary string `yaml:"primary"`

	// Fallbacks are tried in order after the primary fails.
	Fallbacks []string `yaml:"fallbacks,omitempty"`
}

// ProviderConfig contains connection settings for a single backend.
type ProviderConfig struct {
	// BaseURL is the API root of the backend.
	// Example: "https://api.openai.com/v1"
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKey is the credential. Use "${ENV_VAR}" to keep it out of the file.
	APIKey string `yaml:"api_key,omitempty"`

	// Auth is the credential mode.
	// Options: "api-key", "aws-sdk", "oauth", "token"
	Auth string `yaml:"auth,omitempty"`

	// API is the wire protocol family spoken by the backend.
	// Default: "openai-completions"
	API string `yaml:"api,omitempty"`

	// Headers are sent with every request to this provider.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Timeout is the maximum wait for response headers.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxRetries is the number of retries for connection failures and 5xx
	// responses before the stream starts.
	// Default: 0
	MaxRetries int `yaml:"max_retries,omitempty"`
}

// SessionsConfig contains conversation history settings.
type SessionsConfig struct {
	// MaxHistory is the number of messages kept per session.
	// Default: 50
	MaxHistory int `yaml:"max_history"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "silly", "trace", "debug", "info", "warn", "error", "fatal"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// Dir is the directory for daily log files. Empty disables file output.
	// Default: "~/.yiyi/logs"
	Dir string `yaml:"dir"`

	// MaxAge is how long daily log files are kept.
	// Default: 168h
	MaxAge time.Duration `yaml:"max_age"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// Redact enables secret redaction in log output.
	// Default: true
	Redact *bool `yaml:"redact,omitempty"`

	// RedactPatterns are additional regular expressions to redact.
	RedactPatterns []string `yaml:"redact_patterns,omitempty"`
}

// RedactEnabled reports whether log redaction is on.
func (l LoggingConfig) RedactEnabled() bool {
	return l.Redact == nil || *l.Redact
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether the /metrics endpoint is served.
	// Default: true
	Enabled *bool `yaml:"enabled,omitempty"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "yiyi"
	Namespace string `yaml:"namespace"`
}

// IsEnabled reports whether metrics are served.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// SampleRatio is the fraction of turns to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the service name in traces.
	// Default: "yiyi-gateway"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`
}

// UsageConfig contains the token usage ledger configuration.
type UsageConfig struct {
	// Enabled controls whether completed turns are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage implementation.
	// Options: "memory", "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Path is the database file for the SQLite backends.
	// Default: "~/.yiyi/usage.db"
	Path string `yaml:"path"`

	// Retention is how long usage records are kept. Zero keeps them forever.
	// Default: 720h
	Retention time.Duration `yaml:"retention"`
}

// MaintenanceConfig contains cron schedules for housekeeping jobs.
type MaintenanceConfig struct {
	// LogPruneSchedule is the cron expression for deleting old log files.
	// Default: "0 4 * * *"
	LogPruneSchedule string `yaml:"log_prune_schedule"`

	// UsagePruneSchedule is the cron expression for usage retention.
	// Default: "30 4 * * *"
	UsagePruneSchedule string `yaml:"usage_prune_schedule"`
}
