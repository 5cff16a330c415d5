// Package routing resolves model references against configuration and
// builds the fallback chain for a chat turn.
//
// A model reference has the form "provider-name/model-id". Resolution looks
// up the provider entry and produces a providers.ResolvedModel carrying the
// API family, endpoint, credential and headers for one attempt:
//
//	model, err := routing.ResolveModelRef("anthropic/claude-sonnet-4", cfg)
//	if errors.Is(err, routing.ErrUnknownProvider) {
//	    // no providers.anthropic entry
//	}
//
// Nothing is cached. The orchestrator resolves each chain entry just before
// attempting it.
package routing
