// Package ratelimit provides the per-peer token bucket guarding
// filesystem requests.
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// DefaultRPS and DefaultBurst match the spec's per-peer filesystem quota:
// 100 requests/sec sustained, burst of 50.
const (
	DefaultRPS   = 100
	DefaultBurst = 50
)

// Limiter wraps golang.org/x/time/rate.Limiter with the allow()-returns-
// retry-after shape the protocol needs, instead of rate.Limiter's
// Allow()/Reserve() surface.
type Limiter struct {
	rl  *rate.Limiter
	rps float64
}

// New creates a Limiter refilling at rps tokens/sec with the given burst
// capacity.
func New(rps float64, burst int) *Limiter {
	return &Limiter{rl: rate.NewLimiter(rate.Limit(rps), burst), rps: rps}
}

// NewDefault creates a Limiter using the spec's default rate/burst.
func NewDefault() *Limiter {
	return New(DefaultRPS, DefaultBurst)
}

// Allow consumes one token if available. On success it returns
// (true, 0). On failure it cancels the reservation (so the attempt does
// not count against future capacity) and returns the retry-after delay
// in milliseconds, computed by Reservation.Delay() — the deficit divided
// by the refill rate, exactly what the spec's testable property expects.
func (l *Limiter) Allow() (bool, int64) {
	r := l.rl.ReserveN(time.Now(), 1)
	if !r.OK() {
		return false, 0
	}
	delay := r.Delay()
	if delay <= 0 {
		return true, 0
	}
	r.Cancel()
	return false, delay.Milliseconds()
}
