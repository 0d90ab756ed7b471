package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replay feeds outcomes ('f' failure, 's' success) and returns the state
// after each one.
func replay(b *Breaker, outcomes string) []State {
	states := make([]State, 0, len(outcomes))
	for _, o := range outcomes {
		if o == 'f' {
			b.RecordFailure()
		} else {
			b.RecordSuccess()
		}
		states = append(states, b.State())
	}
	return states
}

func TestBreakerTransitions(t *testing.T) {
	const o, c = StateOpen, StateClosed
	tests := []struct {
		name     string
		failures int
		closes   int
		outcomes string
		want     []State
	}{
		{"opens at the failure threshold", 3, 2, "fff", []State{c, c, o}},
		{"success clears the failure streak", 3, 2, "ffsfff", []State{c, c, c, c, c, o}},
		{"closes after the success threshold", 1, 2, "fss", []State{o, o, c}},
		{"failure while open clears the success streak", 1, 3, "fssfsss", []State{o, o, o, o, o, o, c}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("kafka-audit", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.closes))
			assert.Equal(t, tt.want, replay(b, tt.outcomes))
		})
	}
}

func TestBreakerReportsChanges(t *testing.T) {
	b := New("kafka-audit", WithFailureThreshold(2), WithSuccessThreshold(1))
	assert.Equal(t, "kafka-audit", b.Name())

	fallback, change := b.RecordFailure()
	assert.False(t, fallback)
	assert.Equal(t, StateChange{}, change)

	fallback, change = b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened)

	fallback, change = b.RecordFailure()
	assert.True(t, fallback, "still open")
	assert.False(t, change.Opened, "already open")

	primary, change := b.RecordSuccess()
	assert.True(t, primary)
	assert.True(t, change.Closed)
}

func TestBreakerReset(t *testing.T) {
	b := New("kafka-audit", WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}

func TestBreakerCooldownGatesProbes(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New("kafka-audit", WithFailureThreshold(1), WithCooldown(time.Minute))
	b.now = func() time.Time { return now }

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(time.Minute)
	assert.True(t, b.Allow(), "trial call after cooldown")

	b.RecordFailure()
	assert.False(t, b.Allow(), "failed trial restarts the cooldown")
}
