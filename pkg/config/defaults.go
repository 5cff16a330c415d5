package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"yiyi-hq/gateway/pkg/providers"
)

// Default values for configuration fields.
const (
	// Gateway defaults
	DefaultHost            = "localhost"
	DefaultPort            = 3000
	DefaultServiceName     = "yiyi-gateway"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxMessageBytes = 1048576 // 1MB
	DefaultPingInterval    = 30 * time.Second
	DefaultFramesPerSecond = 20
	DefaultFrameBurst      = 40

	// Provider defaults
	DefaultProviderAPI     = providers.DefaultAPI
	DefaultProviderTimeout = 60 * time.Second

	// Session defaults
	DefaultMaxHistory = 50

	// Logging defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "text"
	DefaultLogMaxAge     = 7 * 24 * time.Hour

	// Telemetry defaults
	DefaultMetricsPath       = "/metrics"
	DefaultMetricsNamespace  = "yiyi"
	DefaultTracingSampleRate = 1.0

	// Usage defaults
	DefaultUsageBackend   = "memory"
	DefaultUsageRetention = 30 * 24 * time.Hour

	// Maintenance defaults
	DefaultLogPruneSchedule   = "0 4 * * *"
	DefaultUsagePruneSchedule = "30 4 * * *"

	// MaxBackups is the number of config backups kept by Save.
	MaxBackups = 5
)

// DefaultDir returns the YiYi state directory (~/.yiyi).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".yiyi")
}

// DefaultConfigPath returns ~/.yiyi/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// NewDefaultConfig returns a configuration with every default applied and
// no providers.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Gateway defaults
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = DefaultHost
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultPort
	}
	if cfg.Gateway.ServiceName == "" {
		cfg.Gateway.ServiceName = DefaultServiceName
	}
	if cfg.Gateway.ReadTimeout == 0 {
		cfg.Gateway.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Gateway.WriteTimeout == 0 {
		cfg.Gateway.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Gateway.ShutdownTimeout == 0 {
		cfg.Gateway.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Gateway.MaxMessageBytes == 0 {
		cfg.Gateway.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if cfg.Gateway.PingInterval == 0 {
		cfg.Gateway.PingInterval = DefaultPingInterval
	}
	if cfg.Gateway.FramesPerSecond == 0 {
		cfg.Gateway.FramesPerSecond = DefaultFramesPerSecond
	}
	if cfg.Gateway.FrameBurst == 0 {
		cfg.Gateway.FrameBurst = DefaultFrameBurst
	}

	// Provider defaults - applied to each provider
	for name, provider := range cfg.Providers {
		if provider.API == "" {
			provider.API = DefaultProviderAPI
		}
		if provider.Timeout == 0 {
			provider.Timeout = DefaultProviderTimeout
		}
		cfg.Providers[name] = provider
	}

	// Session defaults
	if cfg.Sessions.MaxHistory == 0 {
		cfg.Sessions.MaxHistory = DefaultMaxHistory
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = filepath.Join(DefaultDir(), "logs")
	}
	if cfg.Logging.MaxAge == 0 {
		cfg.Logging.MaxAge = DefaultLogMaxAge
	}

	// Telemetry defaults
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRate
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = cfg.Gateway.ServiceName
	}

	// Usage defaults
	if cfg.Usage.Backend == "" {
		cfg.Usage.Backend = DefaultUsageBackend
	}
	if cfg.Usage.Path == "" {
		cfg.Usage.Path = filepath.Join(DefaultDir(), "usage.db")
	}
	if cfg.Usage.Retention == 0 {
		cfg.Usage.Retention = DefaultUsageRetention
	}

	// Maintenance defaults
	if cfg.Maintenance.LogPruneSchedule == "" {
		cfg.Maintenance.LogPruneSchedule = DefaultLogPruneSchedule
	}
	if cfg.Maintenance.UsagePruneSchedule == "" {
		cfg.Maintenance.UsagePruneSchedule = DefaultUsagePruneSchedule
	}
}
