package persist

import (
	"context"
	"time"
)

// BackoffConfig describes a capped exponential backoff.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// MaxAttempts bounds the number of delays handed out; 0 means no
	// bound on the count. The delay itself is always capped at Max.
	MaxAttempts int
}

// DefaultBackoffConfig returns the reconnect backoff used by the worker.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    500 * time.Millisecond,
		Max:        30 * time.Second,
		Multiplier: 2,
	}
}

func (c BackoffConfig) normalized() BackoffConfig {
	if c.Initial <= 0 {
		c.Initial = 500 * time.Millisecond
	}
	if c.Max < c.Initial {
		c.Max = c.Initial
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	if c.MaxAttempts < 0 {
		c.MaxAttempts = 0
	}
	return c
}

// Backoff hands out non-decreasing delays. It is not safe for concurrent use.
type Backoff struct {
	cfg      BackoffConfig
	attempts int
	next     time.Duration
}

// NewBackoff creates a Backoff positioned at its first delay.
func NewBackoff(cfg BackoffConfig) *Backoff {
	cfg = cfg.normalized()
	return &Backoff{cfg: cfg, next: cfg.Initial}
}

// Next returns the next delay, or false once MaxAttempts delays have
// been handed out.
func (b *Backoff) Next() (time.Duration, bool) {
	if b.cfg.MaxAttempts > 0 && b.attempts >= b.cfg.MaxAttempts {
		return 0, false
	}
	b.attempts++

	d := b.next
	grown := time.Duration(float64(b.next) * b.cfg.Multiplier)
	if grown > b.cfg.Max || grown < b.next {
		grown = b.cfg.Max
	}
	b.next = grown
	return d, true
}

// Reset returns to the initial delay and clears the attempt count.
func (b *Backoff) Reset() {
	b.attempts = 0
	b.next = b.cfg.Initial
}

// Attempts returns how many delays have been handed out since Reset.
func (b *Backoff) Attempts() int {
	return b.attempts
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
