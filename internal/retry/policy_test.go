package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextDelayExponential(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, 1*time.Minute, p.NextDelay(1))
	assert.Equal(t, 5*time.Minute, p.NextDelay(2))
	assert.Equal(t, 25*time.Minute, p.NextDelay(3))
}

func TestNextDelayMonotonic(t *testing.T) {
	p := NewPolicy(3, time.Second, 6)

	prev := time.Duration(0)
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		d := p.NextDelay(attempt)
		assert.Greater(t, d, prev, "attempt %d", attempt)
		prev = d
	}
}

func TestNextDelayClampsAttempt(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, p.NextDelay(1), p.NextDelay(0))
	assert.Equal(t, p.NextDelay(1), p.NextDelay(-4))
}

func TestExhausted(t *testing.T) {
	p := NewPolicy(5, time.Minute, 3)

	assert.False(t, p.Exhausted(1))
	assert.False(t, p.Exhausted(2))
	assert.True(t, p.Exhausted(3))
	assert.True(t, p.Exhausted(4))
}

func TestNewPolicyDefaults(t *testing.T) {
	p := NewPolicy(0, 0, 0)

	assert.Equal(t, DefaultBase, p.Base)
	assert.Equal(t, time.Minute, p.Unit)
	assert.Equal(t, DefaultMaxAttempts, p.MaxAttempts)
}
