package routing

import (
	"sort"
	"strings"

	"yiyi-hq/gateway/pkg/config"
	"yiyi-hq/gateway/pkg/providers"
)

// Chain is the ordered list of model references tried for one turn:
// the primary first, then each fallback.
type Chain []string

// ResolveModelRef turns "provider/model" into a fully resolved backend
// target using the provider's current configuration.
//
// The reference is split on the first "/", so "local/llama3/8b" names
// provider "local" and model "llama3/8b". The API family defaults to
// openai-completions.
//
// ResolveModelRef is a pure function of its inputs. Callers resolve again on
// every attempt so configuration changes apply without restarting.
func ResolveModelRef(ref string, cfg *config.Config) (*providers.ResolvedModel, error) {
	providerName, modelID, ok := strings.Cut(ref, "/")
	if !ok || providerName == "" || modelID == "" {
		return nil, &InvalidReferenceError{Ref: ref}
	}

	provider, ok := cfg.Providers[providerName]
	if !ok {
		return nil, &UnknownProviderError{
			Provider:           providerName,
			AvailableProviders: providerNames(cfg),
		}
	}

	api := provider.API
	if api == "" {
		api = providers.DefaultAPI
	}

	var headers map[string]string
	if len(provider.Headers) > 0 {
		headers = make(map[string]string, len(provider.Headers))
		for k, v := range provider.Headers {
			headers[k] = v
		}
	}

	return &providers.ResolvedModel{
		ProviderName: providerName,
		ModelID:      modelID,
		API:          api,
		BaseURL:      provider.BaseURL,
		APIKey:       provider.APIKey,
		Headers:      headers,
		Timeout:      provider.Timeout,
		MaxRetries:   provider.MaxRetries,
	}, nil
}

// BuildChain returns [primary, ...fallbacks] from cfg. A missing primary is
// a configuration defect and fails with ErrNoPrimaryModel.
func BuildChain(cfg *config.Config) (Chain, error) {
	if cfg == nil || cfg.Model.Primary == "" {
		return nil, ErrNoPrimaryModel
	}

	chain := make(Chain, 0, 1+len(cfg.Model.Fallbacks))
	chain = append(chain, cfg.Model.Primary)
	chain = append(chain, cfg.Model.Fallbacks...)
	return chain, nil
}

func providerNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
