package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// LoadConfig loads configuration from the file at path. The format is chosen
// by extension: .toml is decoded as TOML, anything else (.yaml, .yml, .json)
// as YAML. A missing file is not an error; defaults are returned instead.
//
// ${VAR} placeholders in string values are replaced from the environment
// (unset variables become ""). Defaults are applied and the result is
// validated. Environment overrides are not applied; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration and applies environment
// variable overrides. Environment variables follow the naming convention
// YIYI_SECTION_FIELD (e.g., YIYI_GATEWAY_PORT) and always take precedence
// over file-based configuration.
//
// The loading sequence is:
// 1. Load and decode the file (or start empty if it does not exist)
// 2. Expand ${VAR} placeholders
// 3. Apply default values
// 4. Apply environment variable overrides
// 5. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes configuration bytes in the given format ("yaml", "toml" or
// "json"), expanding ${VAR} placeholders. Defaults are not applied.
func Parse(data []byte, format string) (*Config, error) {
	var raw map[string]interface{}

	switch strings.ToLower(format) {
	case "toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, err
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
	case "yaml", "yml", "":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported configuration format %q", format)
	}

	expanded, err := yaml.Marshal(expandEnvVars(raw))
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return cfg, nil
}

func formatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// ExpandEnv replaces ${NAME} placeholders in s with environment values.
func ExpandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

// expandEnvVars walks a decoded document and expands every string value.
// Keys and non-string scalars are left alone.
func expandEnvVars(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return ExpandEnv(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = expandEnvVars(item)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = expandEnvVars(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = expandEnvVars(item)
		}
		return out
	default:
		return v
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format YIYI_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Gateway overrides
	if val := os.Getenv("YIYI_GATEWAY_HOST"); val != "" {
		cfg.Gateway.Host = val
	}
	if val := os.Getenv("YIYI_GATEWAY_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Gateway.Port = i
		}
	}
	if val := os.Getenv("YIYI_GATEWAY_SERVICE_NAME"); val != "" {
		cfg.Gateway.ServiceName = val
	}
	if val := os.Getenv("YIYI_GATEWAY_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Gateway.ShutdownTimeout = d
		}
	}

	// Model overrides
	if val := os.Getenv("YIYI_MODEL_PRIMARY"); val != "" {
		cfg.Model.Primary = val
	}
	if val := os.Getenv("YIYI_MODEL_FALLBACKS"); val != "" {
		cfg.Model.Fallbacks = splitList(val)
	}

	// Session overrides
	if val := os.Getenv("YIYI_SESSIONS_MAX_HISTORY"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Sessions.MaxHistory = i
		}
	}

	// Logging overrides
	if val := os.Getenv("YIYI_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("YIYI_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
	if val := os.Getenv("YIYI_LOGGING_DIR"); val != "" {
		cfg.Logging.Dir = val
	}

	// Telemetry overrides
	if val := os.Getenv("YIYI_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = &b
		}
	}
	if val := os.Getenv("YIYI_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("YIYI_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}

	// Usage overrides
	if val := os.Getenv("YIYI_USAGE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Usage.Enabled = b
		}
	}
	if val := os.Getenv("YIYI_USAGE_BACKEND"); val != "" {
		cfg.Usage.Backend = val
	}
	if val := os.Getenv("YIYI_USAGE_PATH"); val != "" {
		cfg.Usage.Path = val
	}

	for name := range cfg.Providers {
		applyProviderEnvOverrides(cfg, name)
	}
}

// applyProviderEnvOverrides applies environment variable overrides for a
// configured provider. Variables follow the format YIYI_PROVIDERS_<NAME>_<FIELD>
// where NAME is the uppercase provider name with "-" and "." replaced by "_".
func applyProviderEnvOverrides(cfg *Config, providerName string) {
	provider := cfg.Providers[providerName]

	key := strings.NewReplacer("-", "_", ".", "_").Replace(strings.ToUpper(providerName))
	prefix := "YIYI_PROVIDERS_" + key + "_"

	if val := os.Getenv(prefix + "BASE_URL"); val != "" {
		provider.BaseURL = val
	}
	if val := os.Getenv(prefix + "API_KEY"); val != "" {
		provider.APIKey = val
	}
	if val := os.Getenv(prefix + "API"); val != "" {
		provider.API = val
	}
	if val := os.Getenv(prefix + "TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			provider.Timeout = d
		}
	}
	if val := os.Getenv(prefix + "MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			provider.MaxRetries = i
		}
	}

	cfg.Providers[providerName] = provider
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
