package anthropic

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"yiyi-hq/gateway/pkg/providers"
)

// DefaultMaxTokens is sent when the request does not set one; the Messages
// API requires max_tokens.
const DefaultMaxTokens = 4096

// Anthropic API request types

// AnthropicRequest represents a messages request.
type AnthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []AnthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
	Stream    bool               `json:"stream"`
}

// AnthropicMessage represents a message in Anthropic format.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicUsage represents token usage in Anthropic format.
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Anthropic streaming response types

// AnthropicStreamEvent is the data payload of one SSE event. Delta is kept
// raw because its shape depends on Type: content_block_delta carries a text
// delta, message_delta carries the stop reason.
type AnthropicStreamEvent struct {
	Type string `json:"type"`

	// message_start
	Message *struct {
		ID    string         `json:"id"`
		Model string         `json:"model"`
		Usage AnthropicUsage `json:"usage"`
	} `json:"message,omitempty"`

	// content_block_delta, message_delta
	Index int             `json:"index,omitempty"`
	Delta json.RawMessage `json:"delta,omitempty"`

	// message_delta
	Usage *AnthropicUsage `json:"usage,omitempty"`

	// error
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ContentBlockDelta is the delta of a content_block_delta event.
type ContentBlockDelta struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// MessageDelta is the delta of a message_delta event.
type MessageDelta struct {
	StopReason   string `json:"stop_reason,omitempty"`
	StopSequence string `json:"stop_sequence,omitempty"`
}

// streamState accumulates usage across events; input tokens arrive in
// message_start and output tokens in message_delta.
type streamState struct {
	inputTokens  int
	outputTokens int
	stopReason   string
}

// Transformation functions

// transformRequest lifts system messages into the dedicated system field and
// merges consecutive turns of the same role, which the Messages API rejects.
func transformRequest(model *providers.ResolvedModel, req *providers.ChatRequest) *AnthropicRequest {
	anthropicReq := &AnthropicRequest{
		Model:     model.ModelID,
		Messages:  make([]AnthropicMessage, 0, len(req.Messages)),
		MaxTokens: req.MaxTokens,
		Stream:    true,
	}

	if anthropicReq.MaxTokens <= 0 {
		anthropicReq.MaxTokens = DefaultMaxTokens
	}

	var system []string
	for _, msg := range req.Messages {
		if msg.Role == providers.RoleSystem {
			system = append(system, msg.Content)
			continue
		}

		n := len(anthropicReq.Messages)
		if n > 0 && anthropicReq.Messages[n-1].Role == msg.Role {
			anthropicReq.Messages[n-1].Content += "\n\n" + msg.Content
			continue
		}
		anthropicReq.Messages = append(anthropicReq.Messages, AnthropicMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	anthropicReq.System = strings.Join(system, "\n\n")

	return anthropicReq
}

// transformStreamEvent folds one event into state and returns the canonical
// chunk it produces, or nil for bookkeeping events (ping, block start/stop).
func transformStreamEvent(event *AnthropicStreamEvent, state *streamState) (*providers.StreamChunk, error) {
	switch event.Type {
	case "message_start":
		if event.Message != nil {
			state.inputTokens = event.Message.Usage.InputTokens
			state.outputTokens = event.Message.Usage.OutputTokens
		}
		return nil, nil

	case "content_block_delta":
		var delta ContentBlockDelta
		if err := json.Unmarshal(event.Delta, &delta); err != nil {
			return nil, fmt.Errorf("failed to parse content block delta: %w", err)
		}
		if delta.Type != "text_delta" || delta.Text == "" {
			return nil, nil
		}
		return &providers.StreamChunk{Delta: delta.Text}, nil

	case "message_delta":
		if len(event.Delta) > 0 {
			var delta MessageDelta
			if err := json.Unmarshal(event.Delta, &delta); err != nil {
				return nil, fmt.Errorf("failed to parse message delta: %w", err)
			}
			state.stopReason = delta.StopReason
		}
		if event.Usage != nil {
			state.outputTokens = event.Usage.OutputTokens
		}
		return nil, nil

	case "message_stop":
		return &providers.StreamChunk{
			Done: true,
			Usage: &providers.TokenUsage{
				PromptTokens:     state.inputTokens,
				CompletionTokens: state.outputTokens,
				TotalTokens:      state.inputTokens + state.outputTokens,
			},
		}, nil

	case "error":
		message := "unknown stream error"
		if event.Error != nil {
			message = event.Error.Message
		}
		return nil, errors.New(message)

	default:
		return nil, nil
	}
}
