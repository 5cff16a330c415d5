package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"yiyi-hq/gateway/pkg/providers"
)

// DefaultBaseURL is used when the provider configuration has no base_url.
const DefaultBaseURL = "https://api.openai.com/v1"

// Provider is the adapter for the "openai-completions" API family. Any
// backend that speaks the chat completions wire format (vLLM, LM Studio,
// OpenRouter, DeepSeek, ...) is served by it through base_url.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates the adapter with its own connection pool.
func NewProvider(opts providers.TransportOptions) *Provider {
	slog.Debug("adapter initialized", "api", providers.APIOpenAICompletions)
	return &Provider{
		HTTPProvider: providers.NewHTTPProvider(providers.APIOpenAICompletions, opts),
	}
}

// StreamChat sends a streaming chat completions request.
func (p *Provider) StreamChat(ctx context.Context, model *providers.ResolvedModel, req *providers.ChatRequest) (<-chan *providers.StreamChunk, error) {
	if err := providers.ValidateRequest(model, req); err != nil {
		return nil, err
	}

	body, err := json.Marshal(transformRequest(model, req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "text/event-stream",
	}
	if model.APIKey != "" {
		headers["Authorization"] = "Bearer " + model.APIKey
	}

	resp, err := p.DoRequest(ctx, model, "POST", endpoint(model.BaseURL), body, headers)
	if err != nil {
		return nil, err
	}

	return providers.Pump(ctx, newStreamReader(model.ProviderName, resp.Body)), nil
}

func endpoint(baseURL string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/") + "/chat/completions"
}
