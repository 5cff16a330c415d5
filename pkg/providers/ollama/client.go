package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"yiyi-hq/gateway/pkg/providers"
)

// DefaultBaseURL is the address of a local Ollama server.
const DefaultBaseURL = "http://localhost:11434"

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options represents parameter options for the model
type Options struct {
	NumPredict int `json:"num_predict,omitempty"`
}

// ChatResponse is one NDJSON line of the /api/chat stream.
type ChatResponse struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	DoneReason      string  `json:"done_reason,omitempty"`
	PromptEvalCount int     `json:"prompt_eval_count,omitempty"`
	EvalCount       int     `json:"eval_count,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// Provider is the adapter for the "ollama-chat" API family.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates the adapter with its own connection pool.
func NewProvider(opts providers.TransportOptions) *Provider {
	slog.Debug("adapter initialized", "api", providers.APIOllamaChat)
	return &Provider{
		HTTPProvider: providers.NewHTTPProvider(providers.APIOllamaChat, opts),
	}
}

// StreamChat sends a streaming /api/chat request. System messages are
// accepted inline by Ollama.
func (p *Provider) StreamChat(ctx context.Context, model *providers.ResolvedModel, req *providers.ChatRequest) (<-chan *providers.StreamChunk, error) {
	if err := providers.ValidateRequest(model, req); err != nil {
		return nil, err
	}

	ollamaReq := ChatRequest{
		Model:    model.ModelID,
		Messages: make([]Message, len(req.Messages)),
		Stream:   true,
	}
	for i, msg := range req.Messages {
		ollamaReq.Messages[i] = Message{Role: msg.Role, Content: msg.Content}
	}
	if req.MaxTokens > 0 {
		ollamaReq.Options = &Options{NumPredict: req.MaxTokens}
	}

	body, err := json.Marshal(ollamaReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if model.APIKey != "" {
		headers["Authorization"] = "Bearer " + model.APIKey
	}

	resp, err := p.DoRequest(ctx, model, "POST", endpoint(model.BaseURL), body, headers)
	if err != nil {
		return nil, err
	}

	return providers.Pump(ctx, newStreamReader(model.ProviderName, resp.Body)), nil
}

// endpoint accepts base URLs with or without the /api suffix.
func endpoint(baseURL string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(baseURL, "/api") {
		return baseURL + "/chat"
	}
	return baseURL + "/api/chat"
}

// streamReader reads newline-delimited JSON objects from /api/chat.
type streamReader struct {
	provider string
	resp     io.ReadCloser
	scanner  *bufio.Scanner
	final    *providers.StreamChunk
	done     bool
}

func newStreamReader(provider string, body io.ReadCloser) *streamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &streamReader{provider: provider, resp: body, scanner: scanner}
}

// Read returns the next chunk. The line with done=true carries the token
// counts; EOF before it is a failure.
func (s *streamReader) Read(ctx context.Context) (*providers.StreamChunk, error) {
	if s.final != nil {
		final := s.final
		s.final = nil
		return final, nil
	}
	if s.done {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		var payload ChatResponse
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			return nil, &providers.ParseError{
				Provider:    s.provider,
				RawResponse: line,
				Cause:       fmt.Errorf("failed to parse stream line: %w", err),
			}
		}

		if payload.Error != "" {
			return nil, &providers.StreamError{Provider: s.provider, Message: payload.Error}
		}

		if payload.Done {
			s.done = true
			final := &providers.StreamChunk{
				Done: true,
				Usage: &providers.TokenUsage{
					PromptTokens:     payload.PromptEvalCount,
					CompletionTokens: payload.EvalCount,
					TotalTokens:      payload.PromptEvalCount + payload.EvalCount,
				},
			}
			if payload.Message.Content != "" {
				s.final = final
				return &providers.StreamChunk{Delta: payload.Message.Content}, nil
			}
			return final, nil
		}

		if payload.Message.Content == "" {
			continue
		}
		return &providers.StreamChunk{Delta: payload.Message.Content}, nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, &providers.StreamError{
			Provider: s.provider,
			Message:  "failed to read stream",
			Cause:    err,
		}
	}
	return nil, &providers.StreamError{
		Provider: s.provider,
		Message:  "stream ended before done",
	}
}

// Close closes the stream and releases resources.
func (s *streamReader) Close() error {
	return s.resp.Close()
}
