// Package ratelimiter throttles per-connection search traffic.
//
// Every connection carries its own limiter; a search arriving before the
// configured interval has elapsed is dropped and the user is told so. The
// implementation wraps golang.org/x/time/rate's token bucket with a burst
// of one, which reproduces the original "at most one search per interval"
// behavior while tolerating clock jitter.
package ratelimiter

import (
	"time"

	"golang.org/x/time/rate"
)

// SearchLimiter gates how often a single connection may broadcast a
// search. Safe for concurrent use.
type SearchLimiter struct {
	limiter *rate.Limiter
}

// NewSearch creates a limiter allowing one search per interval. A zero or
// negative interval disables limiting.
func NewSearch(interval time.Duration) *SearchLimiter {
	if interval <= 0 {
		return &SearchLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &SearchLimiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Allow reports whether a search may proceed now, consuming the slot if
// so. A rejected search is dropped, never queued.
func (s *SearchLimiter) Allow() bool {
	return s.limiter.Allow()
}

// AllowAt is Allow evaluated at an explicit instant. Used by tests to
// step through time without sleeping.
func (s *SearchLimiter) AllowAt(t time.Time) bool {
	return s.limiter.AllowN(t, 1)
}
