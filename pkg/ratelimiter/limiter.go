package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// Store keeps per-key window counters.
type Store interface {
	// Increment adds one hit to key's current window, starting a new window
	// of the given length when none is active. It returns the hit count and
	// the window's end.
	Increment(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

// Result is the outcome of a single hit.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	Allowed   bool
}

// RetryAfter returns how long the caller should wait, rounded up to whole
// seconds. Zero when the hit was allowed.
func (r *Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed {
		return 0
	}
	d := r.ResetAt.Sub(now)
	if d <= 0 {
		return time.Second
	}
	return (d + time.Second - 1).Truncate(time.Second)
}

// FixedWindow allows Limit hits per key and window.
type FixedWindow struct {
	store  Store
	limit  int
	window time.Duration
}

// NewFixedWindow allows limit requests per window and key.
func NewFixedWindow(store Store, limit int, window time.Duration) (*FixedWindow, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %v", ErrInvalidConfig, window)
	}
	return &FixedWindow{store: store, limit: limit, window: window}, nil
}

// Allow records a hit for key.
func (l *FixedWindow) Allow(ctx context.Context, key string) (*Result, error) {
	count, resetAt, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		return nil, err
	}
	return &Result{
		Limit:     l.limit,
		Remaining: max(0, l.limit-count),
		ResetAt:   resetAt,
		Allowed:   count <= l.limit,
	}, nil
}

// Reset clears the counter for key.
func (l *FixedWindow) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
