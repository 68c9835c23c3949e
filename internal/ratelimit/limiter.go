// Package ratelimit provides the shared limiter that paces calls to the
// fallback reader service. One Limiter instance is passed by reference to
// every fetch worker; direct fetches are never throttled by it.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval keeps the fallback reader at or below two requests per
// second across all workers.
const DefaultInterval = 500 * time.Millisecond

// Limiter enforces a minimum interval between grants. Safe for concurrent
// use; waiters are served in the order the underlying reservation assigns,
// and no two grants ever land closer together than the interval.
type Limiter struct {
	lim *rate.Limiter
}

// New builds a Limiter with the given minimum interval between grants.
// A non-positive interval selects DefaultInterval.
func New(interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Limiter{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the caller may proceed or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.lim.Wait(ctx)
}
