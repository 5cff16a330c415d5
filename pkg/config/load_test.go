package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	t.Setenv("YIYI_TEST_OPENAI_KEY", "sk-from-env")

	path := writeFile(t, t.TempDir(), "config.yaml", `
gateway:
  port: 4000
  host: "0.0.0.0"

model:
  primary: openai/gpt-4o
  fallbacks:
    - anthropic/claude-sonnet-4
    - local/llama3/8b

providers:
  openai:
    api_key: ${YIYI_TEST_OPENAI_KEY}
    timeout: 30s
  anthropic:
    api: anthropic-messages
    api_key: "${YIYI_TEST_MISSING_VAR}"
  local:
    api: ollama-chat
    base_url: http://localhost:11434
    headers:
      X-Env: "prefix-${YIYI_TEST_OPENAI_KEY}"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Gateway.Port != 4000 {
		t.Errorf("expected port %d, got %d", 4000, cfg.Gateway.Port)
	}
	if cfg.Gateway.Host != "0.0.0.0" {
		t.Errorf("expected host %q, got %q", "0.0.0.0", cfg.Gateway.Host)
	}
	if cfg.Model.Primary != "openai/gpt-4o" {
		t.Errorf("expected primary %q, got %q", "openai/gpt-4o", cfg.Model.Primary)
	}
	if len(cfg.Model.Fallbacks) != 2 {
		t.Fatalf("expected 2 fallbacks, got %d", len(cfg.Model.Fallbacks))
	}

	openai := cfg.Providers["openai"]
	if openai.APIKey != "sk-from-env" {
		t.Errorf("expected expanded api key, got %q", openai.APIKey)
	}
	if openai.API != DefaultProviderAPI {
		t.Errorf("expected default api %q, got %q", DefaultProviderAPI, openai.API)
	}
	if openai.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %s", openai.Timeout)
	}
	if cfg.Providers["anthropic"].APIKey != "" {
		t.Errorf("expected unset variable to expand to empty, got %q", cfg.Providers["anthropic"].APIKey)
	}
	if got := cfg.Providers["local"].Headers["X-Env"]; got != "prefix-sk-from-env" {
		t.Errorf("expected expanded header, got %q", got)
	}
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `
[gateway]
port = 3100
service_name = "edge"

[model]
primary = "openai/gpt-4o-mini"

[providers.openai]
base_url = "https://api.openai.com/v1"
timeout = "15s"
max_retries = 2

[sessions]
max_history = 20
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Gateway.Port != 3100 || cfg.Gateway.ServiceName != "edge" {
		t.Errorf("unexpected gateway section: %+v", cfg.Gateway)
	}
	if cfg.Providers["openai"].MaxRetries != 2 {
		t.Errorf("expected max_retries 2, got %d", cfg.Providers["openai"].MaxRetries)
	}
	if cfg.Providers["openai"].Timeout != 15*time.Second {
		t.Errorf("expected timeout 15s, got %s", cfg.Providers["openai"].Timeout)
	}
	if cfg.Sessions.MaxHistory != 20 {
		t.Errorf("expected max_history 20, got %d", cfg.Sessions.MaxHistory)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.json", `{
	"gateway": {"port": 8081, "max_message_bytes": 2097152},
	"model": {"primary": "anthropic/claude-sonnet-4"},
	"providers": {"anthropic": {"api": "anthropic-messages", "timeout": "45s"}}
}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Gateway.Port != 8081 {
		t.Errorf("expected port 8081, got %d", cfg.Gateway.Port)
	}
	if cfg.Gateway.MaxMessageBytes != 2097152 {
		t.Errorf("expected max message bytes 2097152, got %d", cfg.Gateway.MaxMessageBytes)
	}
	if cfg.Providers["anthropic"].Timeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %s", cfg.Providers["anthropic"].Timeout)
	}
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected defaults for missing file, got %v", err)
	}

	if cfg.Gateway.Port != 3000 {
		t.Errorf("expected port %d, got %d", 3000, cfg.Gateway.Port)
	}
	if cfg.Gateway.Host != "localhost" {
		t.Errorf("expected host %q, got %q", "localhost", cfg.Gateway.Host)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected level %q, got %q", "info", cfg.Logging.Level)
	}
	if cfg.Model.Primary != "" {
		t.Errorf("expected no primary model, got %q", cfg.Model.Primary)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, dir, "bad.yaml", "gateway: [unclosed")
		if _, err := LoadConfig(path); err == nil {
			t.Fatal("expected parse error")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeFile(t, dir, "invalid.yaml", "gateway:\n  port: 70000\n")
		_, err := LoadConfig(path)

		var vErr ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if vErr.Errors[0].Field != "gateway.port" {
			t.Errorf("expected field %q, got %q", "gateway.port", vErr.Errors[0].Field)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := Parse([]byte("x=1"), "ini"); err == nil {
			t.Fatal("expected unsupported format error")
		}
	})
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
model:
  primary: openai/gpt-4o
providers:
  openai:
    api_key: file-key
  my-local:
    base_url: http://localhost:8000/v1
`)

	t.Setenv("YIYI_GATEWAY_PORT", "9090")
	t.Setenv("YIYI_MODEL_PRIMARY", "my-local/qwen")
	t.Setenv("YIYI_MODEL_FALLBACKS", "openai/gpt-4o, openai/gpt-4o-mini")
	t.Setenv("YIYI_PROVIDERS_OPENAI_API_KEY", "env-key")
	t.Setenv("YIYI_PROVIDERS_MY_LOCAL_API", "ollama-chat")
	t.Setenv("YIYI_TELEMETRY_METRICS_ENABLED", "false")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Gateway.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Gateway.Port)
	}
	if cfg.Model.Primary != "my-local/qwen" {
		t.Errorf("expected primary override, got %q", cfg.Model.Primary)
	}
	want := []string{"openai/gpt-4o", "openai/gpt-4o-mini"}
	if !reflect.DeepEqual(cfg.Model.Fallbacks, want) {
		t.Errorf("expected fallbacks %v, got %v", want, cfg.Model.Fallbacks)
	}
	if cfg.Providers["openai"].APIKey != "env-key" {
		t.Errorf("expected api key override, got %q", cfg.Providers["openai"].APIKey)
	}
	if cfg.Providers["my-local"].API != "ollama-chat" {
		t.Errorf("expected api override, got %q", cfg.Providers["my-local"].API)
	}
	if cfg.Telemetry.Metrics.IsEnabled() {
		t.Error("expected metrics disabled by override")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("YIYI_A", "hello")
	t.Setenv("YIYI_B", "world")

	tests := map[string]string{
		"${YIYI_A} ${YIYI_B}":    "hello world",
		"key=${YIYI_NOT_SET_XY}": "key=",
		"no vars here":           "no vars here",
		"$YIYI_A":                "$YIYI_A",
	}
	for in, want := range tests {
		if got := ExpandEnv(in); got != want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", in, got, want)
		}
	}
}
