package chat

import "yiyi-hq/gateway/pkg/providers"

// EventType identifies an orchestrator event.
type EventType string

// Event types.
const (
	EventDelta EventType = "delta"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Turn is one user message on a session.
type Turn struct {
	SessionID string
	Content   string
}

// Event is one element of a turn's output. A turn produces zero or more
// delta events followed by exactly one done or error event, unless its
// context is cancelled first.
type Event struct {
	Type EventType

	// Content is the text fragment of a delta event
	Content string

	// Usage is set on a done event when the backend reported token counts
	Usage *providers.TokenUsage

	// Model is the "provider/model" that answered, set on done events
	Model string

	// Error is set on error events
	Error *ErrorPayload
}
