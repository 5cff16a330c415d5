package session

import (
	"sync"

	"yiyi-hq/gateway/pkg/providers"
)

// DefaultMaxHistory is the number of messages kept per session.
const DefaultMaxHistory = 50

// Store holds an ordered, size-bounded message history per session.
//
// Store is safe for concurrent use. Sessions are created on first Append and
// live until Delete; nothing is persisted.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string][]providers.Message
	maxHistory int

	locks *turnLocks
}

// NewStore creates an empty store. maxHistory < 1 selects DefaultMaxHistory.
func NewStore(maxHistory int) *Store {
	if maxHistory < 1 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{
		sessions:   make(map[string][]providers.Message),
		maxHistory: maxHistory,
		locks:      newTurnLocks(),
	}
}

// Messages returns a copy of the history of id. An unknown id yields an
// empty, non-nil slice.
func (s *Store) Messages(id string) []providers.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.sessions[id]
	out := make([]providers.Message, len(history))
	copy(out, history)
	return out
}

// Append adds msg to the history of id, creating the session if needed, and
// then enforces the history bound.
func (s *Store) Append(id string, msg providers.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = trim(append(s.sessions[id], msg), s.maxHistory)
}

// Delete removes the session. Deleting an unknown id is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// MaxHistory returns the current history bound.
func (s *Store) MaxHistory() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.maxHistory
}

// SetMaxHistory changes the bound for subsequent appends. Existing histories
// are trimmed lazily on their next Append.
func (s *Store) SetMaxHistory(n int) {
	if n < 1 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxHistory = n
}

// trim keeps every system message plus the most recent non-system messages
// so that the result holds at most max entries. Kept messages stay in their
// original relative order. If system messages alone reach max, only the
// system messages are kept.
func trim(history []providers.Message, max int) []providers.Message {
	if len(history) <= max {
		return history
	}

	system := 0
	for _, m := range history {
		if m.Role == providers.RoleSystem {
			system++
		}
	}

	keep := max - system
	if keep < 0 {
		keep = 0
	}
	drop := len(history) - system - keep

	out := make([]providers.Message, 0, len(history)-drop)
	for _, m := range history {
		if m.Role != providers.RoleSystem && drop > 0 {
			drop--
			continue
		}
		out = append(out, m)
	}
	return out
}
