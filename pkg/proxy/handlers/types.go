package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"

	"yiyi-hq/gateway/pkg/chat"
	"yiyi-hq/gateway/pkg/providers"
)

// Frame types of the relay protocol.
const (
	FrameChat      = "chat"
	FrameChatDelta = "chat.delta"
	FrameChatDone  = "chat.done"
	FrameError     = "error"
)

// UnknownRequestID tags error frames for input whose id could not be read.
const UnknownRequestID = "unknown"

// ClientFrame is a request from the client:
//
//	{"id": "r1", "type": "chat", "content": "hello"}
type ClientFrame struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ServerFrame is a frame sent to the client. Every frame carries the id of
// the request it answers.
//
//	{"id": "r1", "type": "chat.delta", "content": "Hel"}
//	{"id": "r1", "type": "chat.done"}
//	{"id": "r1", "type": "error", "error": {"code": "MODEL_ERROR", "message": "..."}}
type ServerFrame struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`

	// Usage and Model are informational extras on chat.done
	Usage *providers.TokenUsage `json:"usage,omitempty"`
	Model string                `json:"model,omitempty"`

	Error *chat.ErrorPayload `json:"error,omitempty"`
}

// parseClientFrame decodes and validates a request frame. id and content
// must be JSON strings and type must be "chat".
func parseClientFrame(data []byte) (*ClientFrame, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("frame must be a JSON object")
	}

	var frame ClientFrame
	fields := []struct {
		name string
		dst  *string
	}{
		{"id", &frame.ID},
		{"type", &frame.Type},
		{"content", &frame.Content},
	}
	for _, f := range fields {
		value, ok := raw[f.name]
		if !ok || !isJSONString(value) {
			return nil, fmt.Errorf("field %q must be a string", f.name)
		}
		if err := json.Unmarshal(value, f.dst); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.name, err)
		}
	}

	if frame.Type != FrameChat {
		return nil, fmt.Errorf("unsupported frame type %q", frame.Type)
	}
	return &frame, nil
}

func isJSONString(value json.RawMessage) bool {
	trimmed := bytes.TrimSpace(value)
	return len(trimmed) > 0 && trimmed[0] == '"'
}

// eventFrame translates an orchestrator event into its outbound frame.
func eventFrame(requestID string, ev chat.Event) ServerFrame {
	switch ev.Type {
	case chat.EventDelta:
		return ServerFrame{ID: requestID, Type: FrameChatDelta, Content: ev.Content}
	case chat.EventDone:
		return ServerFrame{ID: requestID, Type: FrameChatDone, Usage: ev.Usage, Model: ev.Model}
	default:
		payload := ev.Error
		if payload == nil {
			payload = &chat.ErrorPayload{Code: chat.CodeInternal, Message: "unknown error"}
		}
		return ServerFrame{ID: requestID, Type: FrameError, Error: payload}
	}
}

func errorFrame(requestID string, payload *chat.ErrorPayload) ServerFrame {
	return ServerFrame{ID: requestID, Type: FrameError, Error: payload}
}
