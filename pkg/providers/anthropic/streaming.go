package anthropic

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

// streamReader reads Server-Sent Events (SSE) from the Messages API.
type streamReader struct {
	provider string
	resp     io.ReadCloser
	scanner  *bufio.Scanner
	state    *streamState
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
		state:    &streamState{},
	}
}

// Read returns the next canonical chunk. The stream completes on
// message_stop; EOF before that is a failure.
func (s *streamReader) Read(ctx context.Context) (*providers.StreamChunk, error) {
	if s.done || s.closed {
		return nil, io.EOF
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		event, err := s.readEvent()
		if err == io.EOF {
			return nil, &providers.StreamError{
				Provider: s.provider,
				Message:  "stream ended before message_stop",
			}
		}
		if err != nil {
			return nil, err
		}

		chunk, err := transformStreamEvent(event, s.state)
		if err != nil {
			return nil, &providers.StreamError{
				Provider: s.provider,
				Message:  "backend reported error",
				Cause:    err,
			}
		}
		if chunk == nil {
			continue
		}

		if chunk.Done {
			s.done = true
		}
		return chunk, nil
	}
}

// readEvent reads one complete SSE event (event/data lines up to a blank line).
func (s *streamReader) readEvent() (*AnthropicStreamEvent, error) {
	var eventType string
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if eventType != "" || len(dataLines) > 0 {
				break
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	if err := s.scanner.Err(); err != nil {
		return nil, &providers.StreamError{
			Provider: s.provider,
			Message:  "failed to read stream",
			Cause:    err,
		}
	}

	if eventType == "" && len(dataLines) == 0 {
		return nil, io.EOF
	}

	var event AnthropicStreamEvent
	if data := strings.Join(dataLines, "\n"); data != "" {
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return nil, &providers.ParseError{
				Provider:    s.provider,
				RawResponse: data,
				Cause:       fmt.Errorf("failed to parse stream event: %w", err),
			}
		}
	}

	if event.Type == "" {
		event.Type = eventType
	}

	return &event, nil
}

// Close closes the stream and releases resources.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true
	return s.resp.Close()
}
