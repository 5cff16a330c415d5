package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"yiyi-hq/gateway/pkg/config"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		want        string
	}{
		{name: "configured name", serviceName: "my-gateway", want: "my-gateway"},
		{name: "default name", serviceName: "", want: config.DefaultServiceName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Gateway.ServiceName = tt.serviceName
			handler := NewHealthHandler(func() *config.Config { return cfg })

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			var body HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Status != "ok" || body.Service != tt.want {
				t.Errorf("expected {ok %s}, got %+v", tt.want, body)
			}
		})
	}
}

func TestHealthHandler_MethodNotAllowed(t *testing.T) {
	handler := NewHealthHandler(func() *config.Config { return nil })

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
