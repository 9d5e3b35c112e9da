// internal/ratelimit/ratelimit.go

// Package ratelimit enforces a minimum interval between outbound requests.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces calls so that at least the configured interval elapses
// between completions. The first call never waits. Timing is based on the
// runtime's monotonic clock via x/time/rate, so wall-clock adjustments do
// not skew the spacing.
type Limiter struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// New creates a Limiter with the given minimum interval between requests.
// An interval of zero disables spacing entirely.
func New(interval time.Duration) *Limiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Limiter{
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
	}
}

// Wait blocks until the next request is allowed or the context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Interval returns the configured minimum interval.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
