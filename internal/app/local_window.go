/**
 * @description
 * This file implements an in-process fallback usage counter for anonymous
 * identities. It mirrors the advisory client-held counter: a rolling window
 * keyed by the first use in the current window, resetting once the window
 * start is older than the window duration. It exists so the service can keep
 * serving a best-effort limit when Redis is unconfigured or unreachable; it is
 * never authoritative when the Redis limiter is available, because each process
 * instance counts independently.
 */

package app

import (
	"context"
	"sync"
	"time"
)

type localWindowEntry struct {
	windowStart time.Time
	count       int
}

// LocalWindowLimiter is a best-effort in-memory limiter keyed by identity.
type LocalWindowLimiter struct {
	mu      sync.Mutex
	entries map[string]*localWindowEntry
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewLocalWindowLimiter creates a fallback limiter with the given maximum and
// window duration.
func NewLocalWindowLimiter(limit int, window time.Duration) *LocalWindowLimiter {
	if limit <= 0 {
		limit = 3
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &LocalWindowLimiter{
		entries: make(map[string]*localWindowEntry),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Check inspects the identity's window and records one usage unit when a slot
// is free. An absent or expired window start resets the counter.
func (l *LocalWindowLimiter) Check(ctx context.Context, key string) (*LimitDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok || now.Sub(entry.windowStart) >= l.window {
		entry = &localWindowEntry{windowStart: now}
		l.entries[key] = entry
	}

	resetAt := entry.windowStart.Add(l.window)
	if entry.count >= l.limit {
		return &LimitDecision{
			Allowed:   false,
			Limit:     l.limit,
			Remaining: 0,
			ResetAt:   resetAt,
		}, nil
	}

	entry.count++
	remaining := l.limit - entry.count
	return &LimitDecision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
