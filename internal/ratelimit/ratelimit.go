// Package ratelimit provides a wrapper around golang.org/x/time/rate.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with a per-minute configuration.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerMinute with a burst of 10% of
// the rate. A non-positive rate disables limiting.
func New(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}

	rps := float64(requestsPerMinute) / 60.0
	burst := max(requestsPerMinute/10, 1)

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may happen now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Burst returns the configured burst.
func (l *Limiter) Burst() int {
	return l.limiter.Burst()
}

// Unlimited reports whether the limiter never blocks.
func (l *Limiter) Unlimited() bool {
	return l.limiter.Limit() == rate.Inf
}
