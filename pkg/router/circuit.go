package router

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// FailureThreshold is the number of failures inside FailureWindow that
	// trips a provider's circuit.
	FailureThreshold = 5

	// FailureWindow bounds how long failures accumulate before the count
	// resets.
	FailureWindow = 5 * time.Minute

	// Cooldown is how long a tripped circuit stays open before a single
	// half-open probe is allowed.
	Cooldown = 2 * time.Minute
)

// CircuitState tracks failure bookkeeping for one provider. Absence of
// state is equivalent to a closed circuit.
type CircuitState struct {
	FailureCount  int
	LastFailureAt time.Time
	OpenUntil     time.Time
}

// BreakerRegistry keeps per-provider circuit state, keyed by provider name.
type BreakerRegistry struct {
	states map[string]*CircuitState
	mu     sync.Mutex
	logger zerolog.Logger
	now    func() time.Time
}

// NewBreakerRegistry creates an empty registry.
func NewBreakerRegistry(logger zerolog.Logger) *BreakerRegistry {
	return &BreakerRegistry{
		states: make(map[string]*CircuitState),
		logger: logger,
		now:    time.Now,
	}
}

// RecordFailure counts a failure against the provider, trips the circuit at
// the threshold, and restarts the count when the last failure is older than
// the window.
func (b *BreakerRegistry) RecordFailure(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()

	state, ok := b.states[provider]
	if !ok {
		state = &CircuitState{}
		b.states[provider] = state
	}

	if now.Sub(state.LastFailureAt) > FailureWindow {
		state.FailureCount = 0
	}

	state.FailureCount++
	state.LastFailureAt = now

	if state.FailureCount >= FailureThreshold {
		state.OpenUntil = now.Add(Cooldown)
		b.logger.Warn().
			Str("provider", provider).
			Int("failures", state.FailureCount).
			Time("open_until", state.OpenUntil).
			Msg("Circuit breaker opened")
	}
}

// RecordSuccess deletes the provider's state entirely. A single success is a
// full reset, there is no partial decay.
func (b *BreakerRegistry) RecordSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, provider)
}

// IsOpen reports whether the provider's circuit is open. Once the cooldown
// has elapsed it returns false, permitting one half-open probe.
func (b *BreakerRegistry) IsOpen(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.states[provider]
	if !ok {
		return false
	}

	if b.now().After(state.OpenUntil) {
		return false
	}

	return state.FailureCount >= FailureThreshold
}

// Reset unconditionally clears the provider's state, whatever the cause of
// past failures. Re-registering a provider calls this.
func (b *BreakerRegistry) Reset(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, provider)
}

// State returns a copy of the provider's circuit state, if any.
func (b *BreakerRegistry) State(provider string) (CircuitState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.states[provider]
	if !ok {
		return CircuitState{}, false
	}
	return *state, true
}
