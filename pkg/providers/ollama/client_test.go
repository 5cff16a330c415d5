package ollama

import (
	"context"
	"errors"
	"testing"

	testutil "yiyi-hq/gateway/internal/providers"
	"yiyi-hq/gateway/pkg/providers"
)

func TestOllama_StreamChat(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()

	server.SetResponse("/api/chat", testutil.MockResponse{
		ContentType: "application/x-ndjson",
		StreamLines: testutil.OllamaStream([]string{"The sky", " is blue"}, 18, 4),
	})

	adapter := NewProvider(providers.TransportOptions{})
	model := testutil.TestModel("local", providers.APIOllamaChat, server.URL())
	model.APIKey = ""

	req := testutil.TestRequest(providers.RoleUser, "Why is the sky blue?")
	req.MaxTokens = 64

	chunks, err := adapter.StreamChat(context.Background(), model, req)
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}

	result := testutil.CollectStream(t, chunks)
	if result.Text() != "The sky is blue" {
		t.Errorf("expected content %q, got %q", "The sky is blue", result.Text())
	}
	if result.Final == nil || !result.Final.Done {
		t.Fatalf("expected done chunk, got %+v", result.Final)
	}
	if usage := result.Final.Usage; usage == nil || usage.TotalTokens != 22 {
		t.Errorf("expected total tokens 22, got %+v", usage)
	}

	last := server.LastRequest()
	if last.Header.Get("Authorization") != "" {
		t.Errorf("expected no auth header without api key, got %q", last.Header.Get("Authorization"))
	}
	if last.Decoded["stream"] != true {
		t.Errorf("expected stream=true, got %v", last.Decoded["stream"])
	}
	opts, _ := last.Decoded["options"].(map[string]interface{})
	if opts["num_predict"] != float64(64) {
		t.Errorf("expected num_predict 64, got %v", last.Decoded["options"])
	}
}

func TestOllama_DoneLineWithContent(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()

	server.SetResponse("/api/chat", testutil.MockResponse{
		ContentType: "application/x-ndjson",
		StreamLines: []string{
			`{"model":"llama3","message":{"role":"assistant","content":"one"},"done":false}`,
			`{"model":"llama3","message":{"role":"assistant","content":" two"},"done":true,"prompt_eval_count":3,"eval_count":2}`,
		},
	})

	adapter := NewProvider(providers.TransportOptions{})
	chunks, err := adapter.StreamChat(context.Background(),
		testutil.TestModel("local", providers.APIOllamaChat, server.URL()),
		testutil.TestRequest(providers.RoleUser, "count"))
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}

	result := testutil.CollectStream(t, chunks)
	if len(result.Deltas) != 2 || result.Text() != "one two" {
		t.Errorf("expected deltas [one, two], got %v", result.Deltas)
	}
	if result.Final == nil || !result.Final.Done || result.Final.Delta != "" {
		t.Errorf("expected bare done chunk, got %+v", result.Final)
	}
}

func TestOllama_Failures(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{
			name:  "error line",
			lines: []string{`{"error":"model 'llama9' not found"}`},
		},
		{
			name:  "truncated",
			lines: []string{`{"message":{"role":"assistant","content":"cut"},"done":false}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewMockServer()
			defer server.Close()
			server.SetResponse("/api/chat", testutil.MockResponse{
				ContentType: "application/x-ndjson",
				StreamLines: tt.lines,
			})

			adapter := NewProvider(providers.TransportOptions{})
			chunks, err := adapter.StreamChat(context.Background(),
				testutil.TestModel("local", providers.APIOllamaChat, server.URL()),
				testutil.TestRequest(providers.RoleUser, "hi"))
			if err != nil {
				t.Fatalf("failed to start stream: %v", err)
			}

			result := testutil.CollectStream(t, chunks)
			if result.Final == nil || result.Final.Error == nil {
				t.Fatalf("expected error chunk, got %+v", result.Final)
			}
			var streamErr *providers.StreamError
			if !errors.As(result.Final.Error, &streamErr) {
				t.Errorf("expected StreamError, got %T", result.Final.Error)
			}
		})
	}
}

func TestEndpoint(t *testing.T) {
	tests := map[string]string{
		"":                          "http://localhost:11434/api/chat",
		"http://gpu-box:11434":      "http://gpu-box:11434/api/chat",
		"http://gpu-box:11434/api/": "http://gpu-box:11434/api/chat",
	}
	for base, want := range tests {
		if got := endpoint(base); got != want {
			t.Errorf("endpoint(%q) = %q, want %q", base, got, want)
		}
	}
}
