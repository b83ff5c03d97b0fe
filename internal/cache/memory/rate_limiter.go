package memory

import (
	"context"
	"sync"
	"time"

	"solana-wallet-ledger/internal/domain"
)

// RateLimiter is an in-process sliding window limiter.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

// NewRateLimiter allows limit requests per window for each key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow counts the request and reports whether it is within the limit.
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	ok, _ := rl.try(key)
	return ok, nil
}

// try returns the delay until the next slot frees up when not allowed.
func (rl *RateLimiter) try(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	hits := rl.hits[key]
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	hits = hits[i:]

	if len(hits) < rl.limit {
		rl.hits[key] = append(hits, now)
		return true, 0
	}
	rl.hits[key] = hits
	return false, hits[0].Add(rl.window).Sub(now)
}

// Wait blocks until a request for key is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	for {
		ok, retry := rl.try(key)
		if ok {
			return nil
		}
		if retry <= 0 {
			retry = time.Millisecond
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
