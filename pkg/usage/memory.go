package usage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger keeps records in process memory. Records are lost on
// restart.
type MemoryLedger struct {
	mu      sync.RWMutex
	records []*Record
	closed  bool
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Record stores a copy of rec.
func (m *MemoryLedger) Record(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	fillDefaults(rec)
	recordCopy := *rec
	m.records = append(m.records, &recordCopy)
	return nil
}

// Query returns matching records, newest first.
func (m *MemoryLedger) Query(_ context.Context, q *Query) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	var results []*Record
	for _, rec := range m.records {
		if q.matches(rec) {
			recordCopy := *rec
			results = append(results, &recordCopy)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Time.After(results[j].Time)
	})
	if q != nil && q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// Summarize aggregates matching records by provider and model.
func (m *MemoryLedger) Summarize(ctx context.Context, q *Query) ([]Summary, error) {
	var all *Query
	if q != nil {
		unlimited := *q
		unlimited.Limit = 0
		all = &unlimited
	}
	records, err := m.Query(ctx, all)
	if err != nil {
		return nil, err
	}
	return summarize(records), nil
}

// Prune deletes records older than before.
func (m *MemoryLedger) Prune(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	kept := m.records[:0]
	var removed int64
	for _, rec := range m.records {
		if rec.Time.Before(before) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	for i := len(kept); i < len(m.records); i++ {
		m.records[i] = nil
	}
	m.records = kept
	return removed, nil
}

// Ping reports ErrClosed after Close.
func (m *MemoryLedger) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close releases the records.
func (m *MemoryLedger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.records = nil
	return nil
}

func fillDefaults(rec *Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}
	if rec.TotalTokens == 0 {
		rec.TotalTokens = rec.PromptTokens + rec.CompletionTokens
	}
}

func summarize(records []*Record) []Summary {
	type key struct{ provider, model string }
	byKey := make(map[key]*Summary)
	for _, rec := range records {
		k := key{rec.Provider, rec.Model}
		s, ok := byKey[k]
		if !ok {
			s = &Summary{Provider: rec.Provider, Model: rec.Model}
			byKey[k] = s
		}
		s.Turns++
		s.PromptTokens += int64(rec.PromptTokens)
		s.CompletionTokens += int64(rec.CompletionTokens)
		s.TotalTokens += int64(rec.TotalTokens)
	}

	out := make([]Summary, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, *s)
	}
	sortSummaries(out)
	return out
}

func sortSummaries(s []Summary) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Provider != s[j].Provider {
			return s[i].Provider < s[j].Provider
		}
		return s[i].Model < s[j].Model
	})
}
