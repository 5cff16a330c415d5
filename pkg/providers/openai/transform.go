package openai

import (
	"yiyi-hq/gateway/pkg/providers"
)

// OpenAI API request/response types

// OpenAIRequest represents a streaming chat completions request.
type OpenAIRequest struct {
	Model         string          `json:"model"`
	Messages      []OpenAIMessage `json:"messages"`
	MaxTokens     int             `json:"max_tokens,omitempty"`
	Stream        bool            `json:"stream"`
	StreamOptions *StreamOptions  `json:"stream_options,omitempty"`
}

// StreamOptions asks the backend to append a usage-only chunk to the stream.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// OpenAIMessage represents a message in OpenAI format.
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIUsage represents token usage in OpenAI format.
type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAI streaming response types

// OpenAIStreamResponse represents one SSE data payload.
type OpenAIStreamResponse struct {
	ID      string               `json:"id"`
	Object  string               `json:"object"`
	Created int64                `json:"created"`
	Model   string               `json:"model"`
	Choices []OpenAIStreamChoice `json:"choices"`
	Usage   *OpenAIUsage         `json:"usage,omitempty"`
	Error   *OpenAIError         `json:"error,omitempty"`
}

// OpenAIStreamChoice represents a choice in a stream chunk.
type OpenAIStreamChoice struct {
	Index        int               `json:"index"`
	Delta        OpenAIStreamDelta `json:"delta"`
	FinishReason *string           `json:"finish_reason"`
}

// OpenAIStreamDelta represents incremental content.
type OpenAIStreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// OpenAIError is an error object sent inside the stream.
type OpenAIError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    any    `json:"code,omitempty"`
}

// Transformation functions

// transformRequest builds the wire request. System messages stay inline:
// chat completions accepts them as ordinary history entries.
func transformRequest(model *providers.ResolvedModel, req *providers.ChatRequest) *OpenAIRequest {
	openaiReq := &OpenAIRequest{
		Model:         model.ModelID,
		Messages:      make([]OpenAIMessage, len(req.Messages)),
		MaxTokens:     req.MaxTokens,
		Stream:        true,
		StreamOptions: &StreamOptions{IncludeUsage: true},
	}

	for i, msg := range req.Messages {
		openaiReq.Messages[i] = OpenAIMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	return openaiReq
}

// transformStreamChunk converts one payload into zero, one or two canonical
// chunks: a delta when the first choice carries text, then a Done chunk when
// the payload carries usage. Usage arrives in its own trailing payload, so it
// terminates the stream.
func transformStreamChunk(chunk *OpenAIStreamResponse) []*providers.StreamChunk {
	var out []*providers.StreamChunk

	if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
		out = append(out, &providers.StreamChunk{Delta: chunk.Choices[0].Delta.Content})
	}

	if chunk.Usage != nil {
		out = append(out, &providers.StreamChunk{
			Done: true,
			Usage: &providers.TokenUsage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			},
		})
	}

	return out
}
