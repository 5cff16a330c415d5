package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is a fake upstream LLM backend for adapter tests. Responses are
// registered per path; streaming responses are written line by line with a
// flush after each line so the client observes them incrementally.
type MockServer struct {
	server       *httptest.Server
	responses    map[string]MockResponse
	requests     []RecordedRequest
	requestCount int
	mu           sync.Mutex
}

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode int
	Body       interface{}
	Delay      time.Duration
	Headers    map[string]string

	// StreamLines are written verbatim, each followed by "\n"
	StreamLines []string

	// ContentType of a streaming response (default text/event-stream)
	ContentType string

	// Failures makes the first N requests return FailureStatus before the
	// configured response is served
	Failures      int
	FailureStatus int
}

// RecordedRequest is a request received by the mock server.
type RecordedRequest struct {
	Path    string
	Header  http.Header
	Body    []byte
	Decoded map[string]interface{}
}

// NewMockServer creates a new mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string]MockResponse),
	}

	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))

	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.CloseClientConnections()
	ms.server.Close()
}

// SetResponse sets a mock response for a specific endpoint.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.responses[path] = response
}

// GetRequestCount returns the number of requests received.
func (ms *MockServer) GetRequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.requestCount
}

// LastRequest returns the most recent request, or nil if none arrived.
func (ms *MockServer) LastRequest() *RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if len(ms.requests) == 0 {
		return nil
	}
	req := ms.requests[len(ms.requests)-1]
	return &req
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	recorded := RecordedRequest{Path: r.URL.Path, Header: r.Header.Clone(), Body: body}
	_ = json.Unmarshal(body, &recorded.Decoded)

	ms.mu.Lock()
	ms.requestCount++
	ms.requests = append(ms.requests, recorded)
	response, ok := ms.responses[r.URL.Path]
	failing := ok && response.Failures > 0
	if failing {
		response.Failures--
		ms.responses[r.URL.Path] = response
	}
	ms.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if failing {
		status := response.FailureStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"message":"injected failure"}}`)
		return
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	if len(response.StreamLines) > 0 {
		ms.handleStream(w, r, response)
		return
	}

	status := response.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if response.Body != nil {
		switch v := response.Body.(type) {
		case string:
			_, _ = w.Write([]byte(v))
		case []byte:
			_, _ = w.Write(v)
		default:
			_ = json.NewEncoder(w).Encode(response.Body)
		}
	}
}

func (ms *MockServer) handleStream(w http.ResponseWriter, r *http.Request, response MockResponse) {
	contentType := response.ContentType
	if contentType == "" {
		contentType = "text/event-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	for _, line := range response.StreamLines {
		if r.Context().Err() != nil {
			return
		}
		fmt.Fprintf(w, "%s\n", line)
		flusher.Flush()
	}
}

// OpenAIStream builds SSE lines for a chat completions stream. When usage
// is non-nil a trailing usage-only payload is added before [DONE].
func OpenAIStream(deltas []string, usage map[string]int) []string {
	lines := make([]string, 0, 2*len(deltas)+4)
	for _, delta := range deltas {
		chunk := map[string]interface{}{
			"id":     "chatcmpl-123",
			"object": "chat.completion.chunk",
			"model":  "gpt-4o-mini",
			"choices": []map[string]interface{}{
				{"index": 0, "delta": map[string]interface{}{"content": delta}, "finish_reason": nil},
			},
		}
		data, _ := json.Marshal(chunk)
		lines = append(lines, "data: "+string(data), "")
	}

	stop, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"choices": []map[string]interface{}{{"index": 0, "delta": map[string]interface{}{}, "finish_reason": "stop"}},
	})
	lines = append(lines, "data: "+string(stop), "")

	if usage != nil {
		data, _ := json.Marshal(map[string]interface{}{
			"id":      "chatcmpl-123",
			"object":  "chat.completion.chunk",
			"choices": []interface{}{},
			"usage":   usage,
		})
		lines = append(lines, "data: "+string(data), "")
	}

	return append(lines, "data: [DONE]", "")
}

// AnthropicStream builds SSE lines for a Messages API stream.
func AnthropicStream(deltas []string, inputTokens, outputTokens int) []string {
	var lines []string
	add := func(event string, data interface{}) {
		encoded, _ := json.Marshal(data)
		lines = append(lines, "event: "+event, "data: "+string(encoded), "")
	}

	add("message_start", map[string]interface{}{
		"type": "message_start",
		"message": map[string]interface{}{
			"id":    "msg_123",
			"model": "claude-sonnet-4",
			"usage": map[string]int{"input_tokens": inputTokens, "output_tokens": 1},
		},
	})
	add("content_block_start", map[string]interface{}{
		"type":          "content_block_start",
		"index":         0,
		"content_block": map[string]string{"type": "text", "text": ""},
	})
	add("ping", map[string]string{"type": "ping"})
	for _, delta := range deltas {
		add("content_block_delta", map[string]interface{}{
			"type":  "content_block_delta",
			"index": 0,
			"delta": map[string]string{"type": "text_delta", "text": delta},
		})
	}
	add("content_block_stop", map[string]interface{}{"type": "content_block_stop", "index": 0})
	add("message_delta", map[string]interface{}{
		"type":  "message_delta",
		"delta": map[string]string{"stop_reason": "end_turn"},
		"usage": map[string]int{"output_tokens": outputTokens},
	})
	add("message_stop", map[string]string{"type": "message_stop"})

	return lines
}

// OllamaStream builds NDJSON lines for an /api/chat stream.
func OllamaStream(deltas []string, promptEval, eval int) []string {
	lines := make([]string, 0, len(deltas)+1)
	for _, delta := range deltas {
		data, _ := json.Marshal(map[string]interface{}{
			"model":   "llama3",
			"message": map[string]string{"role": "assistant", "content": delta},
			"done":    false,
		})
		lines = append(lines, string(data))
	}

	data, _ := json.Marshal(map[string]interface{}{
		"model":             "llama3",
		"message":           map[string]string{"role": "assistant", "content": ""},
		"done":              true,
		"done_reason":       "stop",
		"prompt_eval_count": promptEval,
		"eval_count":        eval,
	})
	return append(lines, string(data))
}

// MockErrorResponse creates a mock error response.
func MockErrorResponse(statusCode int, message string) MockResponse {
	body := map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "invalid_request_error",
		},
	}

	return MockResponse{
		StatusCode: statusCode,
		Body:       body,
	}
}

// MockAuthError creates a 401 authentication error response.
func MockAuthError() MockResponse {
	return MockErrorResponse(http.StatusUnauthorized, "Invalid API key")
}

// MockRateLimitError creates a 429 rate limit error response.
func MockRateLimitError(retryAfter int) MockResponse {
	response := MockErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	response.Headers = map[string]string{
		"Retry-After": fmt.Sprintf("%d", retryAfter),
	}
	return response
}
