package snapsi

import (
	"context"
	"sync"
	"time"
)

// rateRecord is the state of one key in the current window.
type rateRecord struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window admission counter.
//
// Check is read-only: callers consult it before a protected side effect and
// call Increment only after the side effect succeeded, so failed attempts do
// not consume budget. Expired records are removed by Sweep, which Run calls
// periodically.
type RateLimiter struct {
	records map[string]*rateRecord

	limit         int
	window        time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	mu sync.Mutex
}

type RateLimiterOption func(*RateLimiter)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) {
		l.now = now
	}
}

// WithSweepInterval sets how often Run removes expired records (default: 1 minute).
func WithSweepInterval(d time.Duration) RateLimiterOption {
	return func(l *RateLimiter) {
		if d > 0 {
			l.sweepInterval = d
		}
	}
}

// NewRateLimiter allows limit operations per key in every window.
func NewRateLimiter(limit int, window time.Duration, opts ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{
		records:       map[string]*rateRecord{},
		limit:         limit,
		window:        window,
		sweepInterval: time.Minute,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check reports whether key may perform another operation. It never mutates state.
func (l *RateLimiter) Check(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		return true
	}
	if l.now().After(rec.resetAt) {
		return true
	}
	return rec.count < l.limit
}

// Increment counts one successful operation for key, starting a fresh window
// when the key is unknown or its window has elapsed.
func (l *RateLimiter) Increment(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[key]
	if !ok || now.After(rec.resetAt) {
		l.records[key] = &rateRecord{count: 1, resetAt: now.Add(l.window)}
		return
	}
	rec.count++
}

func (l *RateLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.records, key)
}

// RetryAfter returns how long key has to wait until its window resets, or 0.
func (l *RateLimiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		return 0
	}
	if d := rec.resetAt.Sub(l.now()); d > 0 {
		return d
	}
	return 0
}

// Sweep deletes every expired record in a single pass and returns how many were removed.
func (l *RateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, rec := range l.records {
		if now.After(rec.resetAt) {
			delete(l.records, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.records)
}

// Run sweeps expired records every sweep interval until ctx is done.
func (l *RateLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Sweep()
		}
	}
}
