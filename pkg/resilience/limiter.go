package resilience

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when no token can be had before the caller's
// deadline.
var ErrRateLimited = errors.New("rate limited")

// LimiterOpts configures a Limiter. A zero Rate disables limiting.
type LimiterOpts struct {
	Rate  float64 // events per second
	Burst int
}

// Limiter is a token bucket.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter creates a Limiter.
func NewLimiter(opts LimiterOpts) *Limiter {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	lim := rate.Limit(opts.Rate)
	if opts.Rate <= 0 {
		lim = rate.Inf
	}
	return &Limiter{rl: rate.NewLimiter(lim, opts.Burst)}
}

// Allow reports whether a call may proceed now.
func (l *Limiter) Allow() bool { return l.rl.Allow() }

// Wait blocks until a token is available or ctx ends. A wait that cannot
// finish before the deadline fails at once with ErrRateLimited.
func (l *Limiter) Wait(ctx context.Context) error {
	err := l.rl.Wait(ctx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRateLimited, err)
}
