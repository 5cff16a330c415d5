package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"yiyi-hq/gateway/pkg/providers"
)

// maxLineSize bounds a single SSE line.
const maxLineSize = 1 << 20

// streamReader reads Server-Sent Events (SSE) from the chat completions API.
type streamReader struct {
	provider string
	resp     io.ReadCloser
	scanner  *bufio.Scanner
	pending  []*providers.StreamChunk
	done     bool
	closed   bool
}

// newStreamReader wraps a successful streaming response body.
func newStreamReader(provider string, body io.ReadCloser) *streamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &streamReader{
		provider: provider,
		resp:     body,
		scanner:  scanner,
	}
}

// Read returns the next canonical chunk. The stream ends with a Done chunk
// either when the usage payload arrives or when the backend closes the stream
// ([DONE] or EOF) without one.
func (s *streamReader) Read(ctx context.Context) (*providers.StreamChunk, error) {
	if len(s.pending) > 0 {
		chunk := s.pending[0]
		s.pending = s.pending[1:]
		return chunk, nil
	}
	if s.done || s.closed {
		return nil, io.EOF
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, &providers.StreamError{
					Provider: s.provider,
					Message:  "failed to read stream",
					Cause:    err,
				}
			}
			return s.finish(nil), nil
		}

		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			// Blank separators, comments and event names carry nothing for us
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return s.finish(nil), nil
		}

		var payload OpenAIStreamResponse
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return nil, &providers.ParseError{
				Provider:    s.provider,
				RawResponse: data,
				Cause:       fmt.Errorf("failed to parse stream chunk: %w", err),
			}
		}

		if payload.Error != nil {
			return nil, &providers.StreamError{
				Provider: s.provider,
				Message:  payload.Error.Message,
			}
		}

		chunks := transformStreamChunk(&payload)
		if len(chunks) == 0 {
			continue
		}

		for _, c := range chunks {
			if c.Done {
				s.done = true
			}
		}

		s.pending = chunks[1:]
		return chunks[0], nil
	}
}

func (s *streamReader) finish(usage *providers.TokenUsage) *providers.StreamChunk {
	s.done = true
	return &providers.StreamChunk{Done: true, Usage: usage}
}

// Close closes the stream and releases resources.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true
	return s.resp.Close()
}
