package usage

import (
	"context"
	"time"
)

// Record is the token usage of one successful chat turn. It never holds
// message content.
type Record struct {
	// ID is a unique record identifier (UUID)
	ID string `json:"id"`

	// Time is when the turn finished
	Time time.Time `json:"time"`

	SessionID string `json:"session_id"`

	// Provider and Model identify the model that answered
	Provider string `json:"provider"`
	Model    string `json:"model"`
	API      string `json:"api"`

	// Attempt is the 1-based chain position that succeeded
	Attempt int `json:"attempt"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Duration is the wall time of the successful attempt
	Duration time.Duration `json:"duration"`
}

// Query filters records. Zero fields match everything.
type Query struct {
	SessionID string
	Provider  string
	Since     time.Time
	Until     time.Time

	// Limit caps the number of records returned; 0 means no limit
	Limit int
}

// Summary aggregates records per provider and model.
type Summary struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	Turns            int64  `json:"turns"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
}

// Ledger stores usage records.
type Ledger interface {
	// Record persists one record. ID and Time are filled in when empty.
	Record(ctx context.Context, rec *Record) error

	// Query returns matching records, newest first.
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// Summarize aggregates matching records by provider and model,
	// sorted by provider then model.
	Summarize(ctx context.Context, q *Query) ([]Summary, error)

	// Prune deletes records older than before and returns how many were
	// removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Ping checks that the backend is usable.
	Ping(ctx context.Context) error

	Close() error
}

func (q *Query) matches(rec *Record) bool {
	if q == nil {
		return true
	}
	if q.SessionID != "" && rec.SessionID != q.SessionID {
		return false
	}
	if q.Provider != "" && rec.Provider != q.Provider {
		return false
	}
	if !q.Since.IsZero() && rec.Time.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && !rec.Time.Before(q.Until) {
		return false
	}
	return true
}
