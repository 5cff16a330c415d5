package providers

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// unhealthyThreshold is the number of consecutive failed attempts after which
// a provider is reported unhealthy.
const unhealthyThreshold = 3

// ProviderHealth is the observed health of one configured provider, built
// from the outcomes of real chat attempts rather than synthetic probes.
type ProviderHealth struct {
	// Name is the configured provider name
	Name string `json:"name"`

	// Healthy is false after unhealthyThreshold consecutive failures
	Healthy bool `json:"healthy"`

	// ConsecutiveFailures counts sequential failed attempts
	ConsecutiveFailures int `json:"consecutive_failures"`

	// LastError is the message of the most recent failure
	LastError string `json:"last_error,omitempty"`

	// LastSuccess is the time of the last successful attempt
	LastSuccess time.Time `json:"last_success,omitempty"`

	// TotalAttempts is the number of attempts made against this provider
	TotalAttempts int64 `json:"total_attempts"`

	// FailedAttempts is the number of attempts that failed
	FailedAttempts int64 `json:"failed_attempts"`
}

// HealthTracker records attempt outcomes per provider.
type HealthTracker struct {
	mu     sync.RWMutex
	health map[string]*ProviderHealth
}

// NewHealthTracker creates an empty tracker.
func NewHealthTracker() *HealthTracker {
	return &HealthTracker{health: make(map[string]*ProviderHealth)}
}

// RecordSuccess marks a successful attempt against provider.
func (t *HealthTracker) RecordSuccess(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.entry(provider)
	h.TotalAttempts++
	h.ConsecutiveFailures = 0
	h.Healthy = true
	h.LastError = ""
	h.LastSuccess = time.Now()
}

// RecordFailure marks a failed attempt against provider.
func (t *HealthTracker) RecordFailure(provider string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.entry(provider)
	h.TotalAttempts++
	h.FailedAttempts++
	h.ConsecutiveFailures++
	if err != nil {
		h.LastError = err.Error()
	}

	if h.Healthy && h.ConsecutiveFailures >= unhealthyThreshold {
		h.Healthy = false
		slog.Warn("provider marked unhealthy",
			"provider", provider,
			"consecutive_failures", h.ConsecutiveFailures,
			"error", err,
		)
	}
}

// Get returns the health of one provider. Providers that were never
// attempted are reported healthy.
func (t *HealthTracker) Get(provider string) ProviderHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if h, ok := t.health[provider]; ok {
		return *h
	}
	return ProviderHealth{Name: provider, Healthy: true}
}

// Snapshot returns the health of every attempted provider, sorted by name.
func (t *HealthTracker) Snapshot() []ProviderHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(t.health))
	for _, h := range t.health {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// entry must be called with mu held.
func (t *HealthTracker) entry(provider string) *ProviderHealth {
	h, ok := t.health[provider]
	if !ok {
		h = &ProviderHealth{Name: provider, Healthy: true}
		t.health[provider] = h
	}
	return h
}
