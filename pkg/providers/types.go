package providers

import "time"

// Message is a single conversation entry. Messages are immutable once stored
// in a session; adapters transform them into each backend's wire shape.
type Message struct {
	// Role identifies the message sender (system, user, assistant)
	Role string `json:"role"`

	// Content is the message text content
	Content string `json:"content"`
}

// TokenUsage tracks token consumption for a completed stream.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt
	PromptTokens int `json:"promptTokens"`

	// CompletionTokens is the number of tokens in the completion
	CompletionTokens int `json:"completionTokens"`

	// TotalTokens is the total number of tokens used (prompt + completion)
	TotalTokens int `json:"totalTokens"`
}

// ResolvedModel is a model reference bound to the provider configuration that
// was current when it was resolved. It is recomputed on every attempt and
// never persisted.
type ResolvedModel struct {
	// ProviderName is the configured provider key (the part before "/")
	ProviderName string

	// ModelID is the backend model identifier (the part after the first "/")
	ModelID string

	// API is the API family that selects the adapter (e.g. "openai-completions")
	API string

	// BaseURL overrides the adapter's default endpoint when set
	BaseURL string

	// APIKey is the credential sent to the backend
	APIKey string

	// Headers are extra headers sent on every request to this provider
	Headers map[string]string

	// Timeout bounds the time to first response byte (0 uses the transport default)
	Timeout time.Duration

	// MaxRetries is the number of retries before the stream starts
	MaxRetries int
}

// Ref returns the "provider/model" form of the resolved model.
func (m *ResolvedModel) Ref() string {
	return m.ProviderName + "/" + m.ModelID
}

// ChatRequest is a provider-agnostic streaming chat request.
type ChatRequest struct {
	// Messages is the ordered conversation history, system messages included
	Messages []Message

	// MaxTokens is the maximum number of tokens to generate (0 uses the backend default)
	MaxTokens int
}

// StreamChunk is one element of an adapter's output sequence.
//
// A sequence is zero or more delta chunks followed by exactly one terminal
// chunk: either Done (with optional Usage) or a chunk whose Error is set.
// An Error chunk is an abnormal end of the sequence, not a user-visible event.
type StreamChunk struct {
	// Delta is the incremental text carried by this chunk
	Delta string

	// Done marks successful completion of the stream
	Done bool

	// Usage is set on the Done chunk when the backend reports token counts
	Usage *TokenUsage

	// Error is set if the stream failed
	Error error
}

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// API family identifiers.
const (
	APIOpenAICompletions     = "openai-completions"
	APIOpenAIResponses       = "openai-responses"
	APIAnthropicMessages     = "anthropic-messages"
	APIGoogleGenerativeAI    = "google-generative-ai"
	APIGitHubCopilot         = "github-copilot"
	APIBedrockConverseStream = "bedrock-converse-stream"
	APIOllamaChat            = "ollama-chat"
)

// DefaultAPI is the API family assumed when a provider does not name one.
const DefaultAPI = APIOpenAICompletions

// KnownAPIs lists every API family accepted in configuration. Not every
// family has an adapter; unsupported ones fail at resolution time.
var KnownAPIs = []string{
	APIOpenAICompletions,
	APIOpenAIResponses,
	APIAnthropicMessages,
	APIGoogleGenerativeAI,
	APIGitHubCopilot,
	APIBedrockConverseStream,
	APIOllamaChat,
}

// IsKnownAPI reports whether api is a recognised API family.
func IsKnownAPI(api string) bool {
	for _, known := range KnownAPIs {
		if known == api {
			return true
		}
	}
	return false
}
