package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]interface{}
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatalf("failed to decode log line: %v", err)
	}
	return entry
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "success", status: http.StatusOK, wantLevel: "INFO"},
		{name: "client error", status: http.StatusMethodNotAllowed, wantLevel: "WARN"},
		{name: "server error", status: http.StatusServiceUnavailable, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			handler := RequestIDMiddleware(LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

			entry := lastEntry(t, buf)
			if entry["msg"] != "request completed" {
				t.Errorf("expected completion entry, got %v", entry["msg"])
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("expected level %q, got %v", tt.wantLevel, entry["level"])
			}
			if int(entry["status"].(float64)) != tt.status {
				t.Errorf("expected status %d, got %v", tt.status, entry["status"])
			}
			if entry["request_id"] == nil {
				t.Error("expected request_id in log entry")
			}
		})
	}
}

func TestResponseWriter_Hijack(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())
	if _, _, err := rw.Hijack(); err == nil {
		t.Error("expected error when the underlying writer cannot be hijacked")
	}

	hijacked := make(chan struct{}, 1)
	server := httptest.NewServer(LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("unexpected hijack error: %v", err)
			return
		}
		hijacked <- struct{}{}
		conn.Close()
	})))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err == nil {
		resp.Body.Close()
	}
	select {
	case <-hijacked:
	case <-time.After(2 * time.Second):
		t.Error("expected the wrapped writer to support hijacking")
	}
}
