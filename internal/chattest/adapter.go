// Package chattest provides scripted adapters for orchestrator and relay
// tests.
package chattest

import (
	"context"
	"fmt"
	"sync"

	"yiyi-hq/gateway/pkg/providers"
)

// Script describes how a ScriptedAdapter answers one model.
type Script struct {
	// Deltas are streamed in order
	Deltas []string

	// Usage is attached to the Done chunk
	Usage *providers.TokenUsage

	// Err fails StreamChat before any chunk is produced
	Err error

	// StreamErr ends the stream with an Error chunk after Deltas
	StreamErr error

	// Hold, when set, is waited on (or ctx) before the terminal chunk
	Hold chan struct{}
}

// Succeed returns a script that streams deltas and completes.
func Succeed(deltas ...string) Script {
	return Script{Deltas: deltas}
}

// Fail returns a script whose StreamChat call fails immediately.
func Fail(message string) Script {
	return Script{Err: fmt.Errorf("%s", message)}
}

// ScriptedAdapter is a providers.Adapter whose behaviour is scripted per
// model ID. Models without a script fail.
type ScriptedAdapter struct {
	api string

	mu      sync.Mutex
	scripts map[string]Script
	calls   []string
	last    map[string]*providers.ChatRequest
}

// NewScriptedAdapter creates an adapter serving api.
func NewScriptedAdapter(api string) *ScriptedAdapter {
	return &ScriptedAdapter{
		api:     api,
		scripts: make(map[string]Script),
		last:    make(map[string]*providers.ChatRequest),
	}
}

// On sets the script for modelID.
func (a *ScriptedAdapter) On(modelID string, script Script) *ScriptedAdapter {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.scripts[modelID] = script
	return a
}

// Calls returns the "provider/model" refs attempted, in order.
func (a *ScriptedAdapter) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]string(nil), a.calls...)
}

// LastRequest returns the last request sent for modelID.
func (a *ScriptedAdapter) LastRequest(modelID string) *providers.ChatRequest {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.last[modelID]
}

// API implements providers.Adapter.
func (a *ScriptedAdapter) API() string {
	return a.api
}

// StreamChat implements providers.Adapter.
func (a *ScriptedAdapter) StreamChat(ctx context.Context, model *providers.ResolvedModel, req *providers.ChatRequest) (<-chan *providers.StreamChunk, error) {
	a.mu.Lock()
	a.calls = append(a.calls, model.Ref())
	reqCopy := &providers.ChatRequest{
		Messages:  append([]providers.Message(nil), req.Messages...),
		MaxTokens: req.MaxTokens,
	}
	a.last[model.ModelID] = reqCopy
	script, ok := a.scripts[model.ModelID]
	a.mu.Unlock()

	if !ok {
		return nil, &providers.ProviderError{Provider: model.ProviderName, StatusCode: 404, Message: "model not scripted: " + model.ModelID}
	}
	if script.Err != nil {
		return nil, script.Err
	}

	out := make(chan *providers.StreamChunk)
	go func() {
		defer close(out)

		send := func(chunk *providers.StreamChunk) bool {
			select {
			case out <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for _, delta := range script.Deltas {
			if !send(&providers.StreamChunk{Delta: delta}) {
				return
			}
		}

		if script.Hold != nil {
			select {
			case <-script.Hold:
			case <-ctx.Done():
				return
			}
		}

		if script.StreamErr != nil {
			send(&providers.StreamChunk{Error: script.StreamErr})
			return
		}
		send(&providers.StreamChunk{Done: true, Usage: script.Usage})
	}()

	return out, nil
}
