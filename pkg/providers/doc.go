// Package providers defines the adapter contract that normalizes heterogeneous
// LLM streaming APIs into one canonical chunk sequence.
//
// # Overview
//
// Each backend API family (OpenAI chat completions, Anthropic messages,
// Ollama chat) has an Adapter in a subpackage. An adapter receives a
// ResolvedModel, which carries the endpoint, credential and headers of the
// provider the model reference named, plus a ChatRequest with the ordered
// history. It returns a channel of StreamChunk values:
//
//	delta* (done | error)
//
// Deltas arrive in the order the backend produced them. The terminal chunk
// is either Done, optionally with token usage, or a chunk carrying Error.
// A stream that produced no text still ends with Done.
//
// # Transport
//
// HTTPProvider is the shared base for HTTP adapters. It pools connections
// per API family and retries connection failures and 5xx responses before
// the stream starts. It maps error statuses to typed errors:
//
//   - 401/403: AuthError
//   - 429: RateLimitError
//   - other non-2xx: ProviderError
//   - no response headers within the model timeout: TimeoutError
//
// # Health
//
// HealthTracker records the outcome of every chat attempt per provider and
// marks a provider unhealthy after three consecutive failures. The readiness
// probe reports it.
package providers
