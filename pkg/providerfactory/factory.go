package providerfactory

import (
	"log/slog"

	"yiyi-hq/gateway/pkg/providers"
	"yiyi-hq/gateway/pkg/providers/anthropic"
	"yiyi-hq/gateway/pkg/providers/ollama"
	"yiyi-hq/gateway/pkg/providers/openai"
)

// NewDefaultRegistry creates a registry with one adapter per implemented API
// family. All adapters share the same transport settings but keep their own
// connection pools.
//
// Supported API families:
//   - "openai-completions": OpenAI and compatible chat completions endpoints
//   - "anthropic-messages": Anthropic Messages API
//   - "ollama-chat": native Ollama /api/chat
//
// Families in providers.KnownAPIs that are not listed here are accepted by
// configuration but fail at turn time with an UnsupportedAPIError.
//
// Example:
//
//	registry := NewDefaultRegistry(providers.TransportOptions{})
//	defer registry.Close()
//
//	adapter, err := registry.ResolveAdapter(model)
//	if err != nil {
//	    return err
//	}
func NewDefaultRegistry(opts providers.TransportOptions) *Registry {
	registry := NewRegistry(
		openai.NewProvider(opts),
		anthropic.NewProvider(opts),
		ollama.NewProvider(opts),
	)

	slog.Debug("adapter registry created", "apis", registry.APIs())

	return registry
}
