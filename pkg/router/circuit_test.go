package router

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreakers(t *testing.T) (*BreakerRegistry, *time.Time) {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := NewBreakerRegistry(zerolog.New(os.Stdout).Level(zerolog.Disabled))
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := testBreakers(t)

	for i := 0; i < FailureThreshold-1; i++ {
		b.RecordFailure("anthropic")
		assert.False(t, b.IsOpen("anthropic"), "circuit must stay closed below threshold")
	}

	b.RecordFailure("anthropic")
	assert.True(t, b.IsOpen("anthropic"))
}

func TestBreakerHalfOpenAfterCooldown(t *testing.T) {
	b, now := testBreakers(t)

	for i := 0; i < FailureThreshold; i++ {
		b.RecordFailure("anthropic")
	}
	require.True(t, b.IsOpen("anthropic"))

	// Cooldown elapses -> one probe is permitted
	*now = now.Add(Cooldown + time.Second)
	assert.False(t, b.IsOpen("anthropic"))
}

func TestBreakerWindowResetsCount(t *testing.T) {
	b, now := testBreakers(t)

	for i := 0; i < FailureThreshold-1; i++ {
		b.RecordFailure("anthropic")
	}

	// Failures outside the window restart the count, so this fifth failure
	// does not trip the circuit.
	*now = now.Add(FailureWindow + time.Second)
	b.RecordFailure("anthropic")
	assert.False(t, b.IsOpen("anthropic"))

	state, ok := b.State("anthropic")
	require.True(t, ok)
	assert.Equal(t, 1, state.FailureCount)
}

func TestBreakerSuccessDeletesState(t *testing.T) {
	b, _ := testBreakers(t)

	for i := 0; i < FailureThreshold; i++ {
		b.RecordFailure("openai")
	}
	require.True(t, b.IsOpen("openai"))

	b.RecordSuccess("openai")
	assert.False(t, b.IsOpen("openai"))

	_, ok := b.State("openai")
	assert.False(t, ok, "success must delete state, not decay it")
}

func TestBreakerUnknownProviderIsClosed(t *testing.T) {
	b, _ := testBreakers(t)
	assert.False(t, b.IsOpen("never-seen"))
}

func TestBreakerResetClearsStateUnconditionally(t *testing.T) {
	b, _ := testBreakers(t)

	for i := 0; i < FailureThreshold; i++ {
		b.RecordFailure("anthropic")
	}
	require.True(t, b.IsOpen("anthropic"))

	// Reset clears everything regardless of why the failures happened.
	// A persistent misconfiguration (bad credentials) looks resolved after
	// re-registration even though it is not.
	b.Reset("anthropic")
	assert.False(t, b.IsOpen("anthropic"))
	_, ok := b.State("anthropic")
	assert.False(t, ok)
}
