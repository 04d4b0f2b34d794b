package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := New(3, time.Minute)

	assert.True(t, b.Allow("svc"))
	b.RecordFailure("svc")
	b.RecordFailure("svc")
	assert.True(t, b.Allow("svc"))
	assert.Equal(t, StateClosed, b.StateOf("svc"))

	b.RecordFailure("svc")
	assert.Equal(t, StateOpen, b.StateOf("svc"))
	assert.False(t, b.Allow("svc"))
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := New(1, 10*time.Millisecond)

	b.RecordFailure("svc")
	assert.False(t, b.Allow("svc"))

	time.Sleep(15 * time.Millisecond)

	// One probe allowed, concurrent requests rejected while probing.
	assert.True(t, b.Allow("svc"))
	assert.Equal(t, StateHalfOpen, b.StateOf("svc"))
	assert.False(t, b.Allow("svc"))

	// Probe success closes the circuit.
	b.RecordSuccess("svc")
	assert.Equal(t, StateClosed, b.StateOf("svc"))
	assert.True(t, b.Allow("svc"))
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := New(1, 10*time.Millisecond)

	b.RecordFailure("svc")
	time.Sleep(15 * time.Millisecond)
	assert.True(t, b.Allow("svc"))

	b.RecordFailure("svc")
	assert.Equal(t, StateOpen, b.StateOf("svc"))
	assert.False(t, b.Allow("svc"))
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := New(3, time.Minute)

	b.RecordFailure("svc")
	b.RecordFailure("svc")
	b.RecordSuccess("svc")
	b.RecordFailure("svc")
	b.RecordFailure("svc")
	assert.Equal(t, StateClosed, b.StateOf("svc"))
}

func TestBreakerKeysAreIndependent(t *testing.T) {
	b := New(1, time.Minute)

	b.RecordFailure("a")
	assert.False(t, b.Allow("a"))
	assert.True(t, b.Allow("b"))
	assert.Equal(t, StateClosed, b.StateOf("b"))
}
