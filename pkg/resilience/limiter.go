package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token-bucket rate limiter over provider calls.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter admits perSecond calls sustained with the given burst.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.rl.Wait(ctx)
}

// Allow reports whether a call may proceed without waiting.
func (l *Limiter) Allow() bool { return l.rl.Allow() }
