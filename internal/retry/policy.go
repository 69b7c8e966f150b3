package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds retries for provider calls. A Multiplier of 1 with zero Jitter
// reproduces plain fixed-delay retries; the default policy spreads concurrent
// callers with exponential backoff and jitter so simultaneous agents do not
// hammer a struggling provider in lockstep.
type Policy struct {
	MaxAttempts  uint64
	InitialDelay time.Duration
	Multiplier   float64
	Jitter       float64
}

// Fixed returns a constant-delay policy with the given attempt bound.
func Fixed(attempts uint64, delay time.Duration) Policy {
	return Policy{
		MaxAttempts:  attempts,
		InitialDelay: delay,
		Multiplier:   1,
		Jitter:       0,
	}
}

// Default returns the exponential-with-jitter policy used for provider calls.
func Default() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2,
		Jitter:       0.5,
	}
}

// Do runs op until it succeeds, returns a permanent error, or the attempt
// bound is exhausted. The last error is returned unchanged.
func (p Policy) Do(ctx context.Context, op func() error) error {
	return backoff.Retry(op, p.backOff(ctx))
}

// Permanent marks err as non-retryable so Do stops immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// backOff builds the underlying backoff schedule for one Do invocation.
func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialDelay
	exp.Multiplier = p.Multiplier
	exp.RandomizationFactor = p.Jitter
	exp.MaxElapsedTime = 0

	var b backoff.BackOff = exp
	b = backoff.WithMaxRetries(b, attempts-1)
	return backoff.WithContext(b, ctx)
}
