package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"yiyi-hq/gateway/pkg/providers"
)

const (
	// DefaultBaseURL is used when the provider configuration has no base_url.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultAnthropicVersion is the API version to use
	DefaultAnthropicVersion = "2023-06-01"
)

// Provider is the adapter for the "anthropic-messages" API family.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates the adapter with its own connection pool.
func NewProvider(opts providers.TransportOptions) *Provider {
	slog.Debug("adapter initialized", "api", providers.APIAnthropicMessages)
	return &Provider{
		HTTPProvider: providers.NewHTTPProvider(providers.APIAnthropicMessages, opts),
	}
}

// StreamChat sends a streaming messages request.
func (p *Provider) StreamChat(ctx context.Context, model *providers.ResolvedModel, req *providers.ChatRequest) (<-chan *providers.StreamChunk, error) {
	if err := providers.ValidateRequest(model, req); err != nil {
		return nil, err
	}

	body, err := json.Marshal(transformRequest(model, req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"anthropic-version": DefaultAnthropicVersion,
		"Content-Type":      "application/json",
		"Accept":            "text/event-stream",
	}
	if model.APIKey != "" {
		headers["x-api-key"] = model.APIKey
	}

	resp, err := p.DoRequest(ctx, model, "POST", endpoint(model.BaseURL), body, headers)
	if err != nil {
		return nil, err
	}

	return providers.Pump(ctx, newStreamReader(model.ProviderName, resp.Body)), nil
}

// endpoint accepts base URLs with or without the /v1 suffix.
func endpoint(baseURL string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL + "/messages"
	}
	return baseURL + "/v1/messages"
}
