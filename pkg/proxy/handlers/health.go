package handlers

import (
	"encoding/json"
	"net/http"

	"yiyi-hq/gateway/pkg/config"
)

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HealthHandler answers {"status":"ok","service":<name>} while the process
// is serving. The name is read from the current configuration.
type HealthHandler struct {
	config func() *config.Config
}

// NewHealthHandler creates a health handler. A nil cfg reads the global
// configuration.
func NewHealthHandler(cfg func() *config.Config) *HealthHandler {
	if cfg == nil {
		cfg = config.GetConfig
	}
	return &HealthHandler{config: cfg}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	service := config.DefaultServiceName
	if cfg := h.config(); cfg != nil && cfg.Gateway.ServiceName != "" {
		service = cfg.Gateway.ServiceName
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok", Service: service})
	}
}
