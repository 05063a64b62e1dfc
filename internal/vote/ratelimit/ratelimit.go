// Package ratelimit provides fixed-window request throttling keyed by an
// arbitrary identifier (client IP or user ID). State lives behind the
// Store abstraction: the in-memory store covers single-instance
// deployments, the Redis store shares windows across instances. The
// limiter is advisory, best-effort defence; it backs no correctness
// invariant.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	// ResetAt is when the current window lapses; clients use it as a
	// backoff hint on rejection.
	ResetAt time.Time
}

// Store tracks per-identifier counters for fixed windows.
type Store interface {
	// Incr increments the counter for key inside the current window,
	// starting a fresh window (count 1) when none exists or the previous
	// one has lapsed. Returns the post-increment count and window reset
	// time.
	Incr(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)

	// Sweep removes windows whose reset time has passed. Stores with
	// native TTLs may no-op.
	Sweep(ctx context.Context) error
}

// Limiter applies a fixed-window policy against an injected Store.
type Limiter struct {
	store Store
}

func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// Check records a request for the identifier and decides whether it is
// allowed: the first request of a window always passes, subsequent ones
// pass while the count stays within maxRequests.
func (l *Limiter) Check(ctx context.Context, identifier string, window time.Duration, maxRequests int) (Decision, error) {
	count, resetAt, err := l.store.Incr(ctx, identifier, window)
	if err != nil {
		return Decision{}, err
	}

	remaining := maxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= maxRequests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Sweep forwards to the store; the housekeeping service calls this on its
// interval.
func (l *Limiter) Sweep(ctx context.Context) error {
	return l.store.Sweep(ctx)
}
