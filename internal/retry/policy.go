// Package retry holds the backoff policy applied between notification
// delivery attempts. The policy is pure: no clock, no I/O.
package retry

import "time"

const (
	DefaultBase        = 5
	DefaultMaxAttempts = 3
)

// Policy computes the delay before a given retry attempt.
// Delays grow exponentially: Unit * Base^(attempt-1), so with the
// defaults attempts 1, 2, 3 wait 1, 5 and 25 minutes.
type Policy struct {
	Base        int
	Unit        time.Duration
	MaxAttempts int
}

func NewPolicy(base int, unit time.Duration, maxAttempts int) Policy {
	if base < 1 {
		base = DefaultBase
	}
	if unit <= 0 {
		unit = time.Minute
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return Policy{Base: base, Unit: unit, MaxAttempts: maxAttempts}
}

func DefaultPolicy() Policy {
	return NewPolicy(DefaultBase, time.Minute, DefaultMaxAttempts)
}

// NextDelay returns the delay before the given attempt (1-based).
// Callers must check Exhausted before asking for another delay.
func (p Policy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.Unit
	for i := 1; i < attempt; i++ {
		delay *= time.Duration(p.Base)
	}
	return delay
}

// Exhausted reports whether the given attempt count is past the ceiling.
func (p Policy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
