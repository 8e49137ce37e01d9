package yure

import (
	"sync"
	"time"
)

const (
	DefaultMinBackoff = 1 * time.Second
	DefaultMaxBackoff = 30 * time.Second
)

// BackoffPolicy bounds the delay between reconnection attempts.
type BackoffPolicy struct {
	Min time.Duration
	Max time.Duration
}

func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Min: DefaultMinBackoff,
		Max: DefaultMaxBackoff,
	}
}

// Backoff yields a delay which doubles with every consecutive failure,
// capped at policy.Max. Reset brings it back to policy.Min.
type Backoff struct {
	mu       sync.Mutex
	policy   BackoffPolicy
	current  time.Duration
	failures int
}

func NewBackoff(policy BackoffPolicy) *Backoff {
	if policy.Min <= 0 {
		policy.Min = DefaultMinBackoff
	}
	if policy.Max < policy.Min {
		policy.Max = policy.Min
	}
	return &Backoff{
		policy:  policy,
		current: policy.Min,
	}
}

// Next returns the delay to wait before the next attempt and records
// one more consecutive failure.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.current
	b.failures++

	b.current = b.current * 2
	if b.current > b.policy.Max || b.current <= 0 {
		b.current = b.policy.Max
	}
	return delay
}

// Reset is called after a successful connection.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = b.policy.Min
	b.failures = 0
}

// Failures returns the number of consecutive failures since the last Reset.
func (b *Backoff) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
