package providers

import (
	"context"
	"strings"
	"testing"
	"time"

	"yiyi-hq/gateway/pkg/providers"
)

// TestModel returns a resolved model pointing at baseURL.
func TestModel(provider, api, baseURL string) *providers.ResolvedModel {
	return &providers.ResolvedModel{
		ProviderName: provider,
		ModelID:      "test-model",
		API:          api,
		BaseURL:      baseURL,
		APIKey:       "test-key-123",
		Timeout:      5 * time.Second,
	}
}

// TestRequest creates a request from alternating role/content pairs.
func TestRequest(pairs ...string) *providers.ChatRequest {
	req := &providers.ChatRequest{}
	for i := 0; i+1 < len(pairs); i += 2 {
		req.Messages = append(req.Messages, providers.Message{Role: pairs[i], Content: pairs[i+1]})
	}
	return req
}

// StreamResult is the drained content of an adapter stream.
type StreamResult struct {
	Deltas []string
	Final  *providers.StreamChunk
	// Extra counts chunks received after the terminal one
	Extra int
}

// Text returns the concatenated deltas.
func (r StreamResult) Text() string {
	return strings.Join(r.Deltas, "")
}

// CollectStream drains chunks, failing the test if the channel does not
// close within the timeout.
func CollectStream(t *testing.T, chunks <-chan *providers.StreamChunk) StreamResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var result StreamResult
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return result
			}
			switch {
			case result.Final != nil:
				result.Extra++
			case chunk.Error != nil || chunk.Done:
				result.Final = chunk
			default:
				result.Deltas = append(result.Deltas, chunk.Delta)
			}
		case <-ctx.Done():
			t.Fatal("stream did not close in time")
			return result
		}
	}
}
