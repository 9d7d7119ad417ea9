// Package remote wraps synchronous collaborator calls with a per-attempt
// timeout, bounded exponential-backoff retries, and a circuit breaker. The
// fail-closed fallback value itself belongs to the caller; this package only
// decides when to stop trying.
package remote

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// Config tunes a Caller. Zero values fall back to conservative defaults.
type Config struct {
	Name       string
	Timeout    time.Duration // per-attempt timeout
	MaxRetries uint64        // retries after the first attempt
	BaseDelay  time.Duration // initial backoff interval
	OpenAfter  uint32        // consecutive failures before the breaker opens
	Cooldown   time.Duration // open state duration before a probe is allowed
}

// Caller executes operations against one collaborator service.
type Caller struct {
	timeout    time.Duration
	maxRetries uint64
	baseDelay  time.Duration
	breaker    *gobreaker.CircuitBreaker
}

// NewCaller builds a Caller with its own breaker state.
func NewCaller(cfg Config) *Caller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.OpenAfter == 0 {
		cfg.OpenAfter = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.OpenAfter
		},
	})
	return &Caller{
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		breaker:    breaker,
	}
}

// Do runs op through the breaker and retry policy. A cancelled parent
// context aborts immediately and is never retried; when the breaker is open
// the call short-circuits without touching the collaborator.
func (c *Caller) Do(ctx context.Context, op func(context.Context) error) error {
	_, err := c.breaker.Execute(func() (any, error) {
		attempt := func() error {
			if err := ctx.Err(); err != nil {
				return backoff.Permanent(err)
			}
			attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			err := op(attemptCtx)
			if err != nil && errors.Is(err, context.Canceled) {
				return backoff.Permanent(err)
			}
			return err
		}
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = c.baseDelay
		return nil, backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx))
	})
	return err
}
