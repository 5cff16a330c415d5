package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Setenv(LevelEnvVar, "")

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "json", config: Config{Level: "info", Format: "json"}},
		{name: "text", config: Config{Level: "debug", Format: "text"}},
		{name: "defaults", config: Config{}},
		{name: "silly level", config: Config{Level: "silly"}},
		{name: "invalid level", config: Config{Level: "loud"}, wantErr: true},
		{name: "invalid format", config: Config{Format: "xml"}, wantErr: true},
		{name: "invalid redact pattern", config: Config{Redact: true, RedactPatterns: []string{"[unclosed"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if logger != nil {
				defer logger.Shutdown()
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"silly": slog.LevelDebug,
		"trace": slog.LevelDebug,
		"DEBUG": slog.LevelDebug,
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"fatal": slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		if err != nil {
			t.Errorf("ParseLevel(%q) returned error: %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Setenv(LevelEnvVar, "")

	tests := []struct {
		name      string
		logLevel  string
		logMethod func(*Logger, string)
		wantLog   bool
	}{
		{"debug logs debug", "debug", func(l *Logger, m string) { l.Debug(m) }, true},
		{"info filters debug", "info", func(l *Logger, m string) { l.Debug(m) }, false},
		{"warn filters info", "warn", func(l *Logger, m string) { l.Info(m) }, false},
		{"warn logs warn", "warn", func(l *Logger, m string) { l.Warn(m) }, true},
		{"fatal logs error", "fatal", func(l *Logger, m string) { l.Error(m) }, true},
		{"fatal filters warn", "fatal", func(l *Logger, m string) { l.Warn(m) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger, err := New(Config{Level: tt.logLevel, Format: "json", Writer: buf})
			if err != nil {
				t.Fatalf("failed to create logger: %v", err)
			}
			defer logger.Shutdown()

			tt.logMethod(logger, "test message")

			if got := strings.Contains(buf.String(), "test message"); got != tt.wantLog {
				t.Errorf("expected logged=%v, got %v (output %q)", tt.wantLog, got, buf.String())
			}
		})
	}
}

func TestLogger_EnvOverridesLevel(t *testing.T) {
	t.Setenv(LevelEnvVar, "trace")

	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "error", Writer: buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Shutdown()

	logger.Debug("verbose detail")
	if !strings.Contains(buf.String(), "verbose detail") {
		t.Errorf("expected %s to lower the level, got %q", LevelEnvVar, buf.String())
	}
}

func TestLogger_RedactsSecrets(t *testing.T) {
	t.Setenv(LevelEnvVar, "")

	buf := &bytes.Buffer{}
	logger, err := New(Config{Format: "json", Redact: true, Writer: buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Shutdown()

	logger.Info("calling provider",
		"api_key", "plain-value",
		"detail", "sent Authorization: Bearer abc.def.ghi",
		"total_tokens", 42,
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line: %v", err)
	}
	if entry["api_key"] != Replacement {
		t.Errorf("expected api_key redacted, got %v", entry["api_key"])
	}
	if strings.Contains(entry["detail"].(string), "abc.def.ghi") {
		t.Errorf("expected bearer token redacted, got %v", entry["detail"])
	}
	if entry["total_tokens"] != float64(42) {
		t.Errorf("expected token counter untouched, got %v", entry["total_tokens"])
	}
}

func TestLogger_DailyFile(t *testing.T) {
	t.Setenv(LevelEnvVar, "")

	dir := t.TempDir()
	day := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	now := day

	logger, err := New(Config{Dir: dir, Writer: &bytes.Buffer{}, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("first day")
	now = day.Add(24 * time.Hour)
	logger.Info("second day")

	if err := logger.Shutdown(); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	first, err := os.ReadFile(filepath.Join(dir, "yiyi-2024-03-09.log"))
	if err != nil {
		t.Fatalf("expected first daily file: %v", err)
	}
	if !strings.Contains(string(first), "first day") || strings.Contains(string(first), "second day") {
		t.Errorf("unexpected first file content %q", first)
	}

	second, err := os.ReadFile(filepath.Join(dir, "yiyi-2024-03-10.log"))
	if err != nil {
		t.Fatalf("expected second daily file: %v", err)
	}
	if !strings.Contains(string(second), "second day") {
		t.Errorf("unexpected second file content %q", second)
	}
}

func TestPruneOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-10 * 24 * time.Hour)

	files := map[string]bool{
		"yiyi-2020-01-01.log": true,  // old, pruned
		"yiyi-today.log":      false, // fresh
		"other-2020.log":      false, // foreign prefix
		"yiyi-2020-01-02.txt": false, // foreign suffix
	}
	for name, isOld := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if isOld || strings.HasPrefix(name, "other") || strings.HasSuffix(name, ".txt") {
			if err := os.Chtimes(path, old, old); err != nil {
				t.Fatal(err)
			}
		}
	}

	removed, err := PruneOldLogs(dir, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 file removed, got %d", removed)
	}
	for name, isOld := range files {
		_, err := os.Stat(filepath.Join(dir, name))
		if exists := err == nil; exists == isOld {
			t.Errorf("file %s: expected exists=%v", name, !isOld)
		}
	}
}

func TestPruneOldLogs_MissingDir(t *testing.T) {
	removed, err := PruneOldLogs(filepath.Join(t.TempDir(), "nope"), time.Hour)
	if err != nil || removed != 0 {
		t.Errorf("expected no-op on missing dir, got %d, %v", removed, err)
	}
}
