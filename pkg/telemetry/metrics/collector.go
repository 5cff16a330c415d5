package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "yiyi"

// Turn statuses.
const (
	StatusSuccess     = "success"
	StatusModelError  = "model_error"
	StatusConfigError = "config_error"
	StatusCancelled   = "cancelled"
)

// Collector is the entry point for all gateway metrics. A nil *Collector is
// valid and records nothing, so components can take one optionally.
type Collector struct {
	registry *prometheus.Registry

	turnMetrics     *TurnMetrics
	providerMetrics *ProviderMetrics
	relayMetrics    *RelayMetrics

	// model labels come from user config, so their cardinality is capped
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registering into registry. If registry
// is nil a fresh one is created.
func NewCollector(namespace string, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &Collector{
		registry:           registry,
		turnMetrics:        NewTurnMetrics(namespace, registry),
		providerMetrics:    NewProviderMetrics(namespace, registry),
		relayMetrics:       NewRelayMetrics(namespace, registry),
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}
}

// RecordTurn records a finished chat turn and the number of attempts it used.
func (c *Collector) RecordTurn(status string, attempts int, duration time.Duration) {
	if c == nil {
		return
	}
	c.turnMetrics.RecordTurn(status, attempts, duration)
}

// RecordAttempt records one model attempt within a turn.
//
// outcome is "success" or "failure"; errorType classifies a failure (see the
// chat package) and is ignored on success.
func (c *Collector) RecordAttempt(provider, model, outcome, errorType string, duration time.Duration) {
	if c == nil {
		return
	}
	model = c.limitModel(provider, model)
	c.providerMetrics.RecordAttempt(provider, model, outcome, duration)
	if outcome != StatusSuccess && errorType != "" {
		c.providerMetrics.RecordError(provider, errorType)
	}
}

// RecordTokens adds reported token usage.
func (c *Collector) RecordTokens(provider, model string, prompt, completion int) {
	if c == nil {
		return
	}
	model = c.limitModel(provider, model)
	c.turnMetrics.RecordTokens(provider, model, prompt, completion)
}

// UpdateProviderHealth sets the provider health gauge.
func (c *Collector) UpdateProviderHealth(provider string, healthy bool) {
	if c == nil {
		return
	}
	c.providerMetrics.UpdateHealth(provider, healthy)
}

// ConnectionOpened counts a new WebSocket connection.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.relayMetrics.ConnectionOpened()
}

// ConnectionClosed decrements the active connection gauge.
func (c *Collector) ConnectionClosed(duration time.Duration) {
	if c == nil {
		return
	}
	c.relayMetrics.ConnectionClosed(duration)
}

// RecordFrame counts a relay frame. direction is "in" or "out".
func (c *Collector) RecordFrame(direction, frameType string) {
	if c == nil {
		return
	}
	c.relayMetrics.RecordFrame(direction, frameType)
}

// SetSessions sets the live session gauge.
func (c *Collector) SetSessions(n int) {
	if c == nil {
		return
	}
	c.relayMetrics.SetSessions(n)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) limitModel(provider, model string) string {
	if !c.cardinalityLimiter.Allow(fmt.Sprintf("%s:%s", provider, model)) {
		return "other"
	}
	return model
}

// CardinalityLimiter caps the number of distinct label sets.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing maxCardinality label sets.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already known or still fits.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
