package processor

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter provides rate limiting for scheduler runs
type RateLimiter struct {
	limiter *rate.Limiter
	logger  Logger
}

// NewRateLimiter creates a new rate limiter
// rps: runs per second
// burst: maximum burst size
func NewRateLimiter(rps, burst int, logger Logger) *RateLimiter {
	if rps <= 0 {
		rps = 1 // Default one run per second
	}
	if burst <= 0 {
		burst = rps // Default burst equals rps
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Wait waits until rate limit allows the operation
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		r.logger.Warn("Rate limiter wait failed", "error", err)
		return err
	}
	return nil
}

// Allow checks if an operation is allowed without waiting
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Ready reports whether a token is available without consuming one
func (r *RateLimiter) Ready() bool {
	return r.limiter.Tokens() >= 1
}

// SetLimit updates the rate limit
func (r *RateLimiter) SetLimit(rps int) {
	r.limiter.SetLimit(rate.Limit(rps))
	r.logger.Info("Rate limit updated", "new_rps", rps)
}

// SetBurst updates the burst size
func (r *RateLimiter) SetBurst(burst int) {
	r.limiter.SetBurst(burst)
	r.logger.Info("Burst size updated", "new_burst", burst)
}
