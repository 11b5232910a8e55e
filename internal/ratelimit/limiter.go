// Package ratelimit bounds outbound request rate per external API.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// DefaultRPS is used when a non-positive rate is configured.
const DefaultRPS = 5

// Limiter enforces a requests-per-second ceiling with a blocking Acquire.
// It never rejects, only delays. One instance is created per external API
// so that slow pricing calls never starve transaction fetching.
type Limiter struct {
	rl *rate.Limiter
}

// New creates a Limiter allowing rps requests per second with no burst
// beyond a single request.
func New(rps float64) *Limiter {
	if rps <= 0 {
		rps = DefaultRPS
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(rps), 1)}
}

// Acquire blocks until it is safe to issue one more request, or until the
// context is cancelled. The only possible error is the context's.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.rl.Wait(ctx)
}
