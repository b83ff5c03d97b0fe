package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"solana-wallet-ledger/internal/domain"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

const maxWaitPoll = time.Second

// RateLimiter implements domain.RateLimiter with a sliding window kept in a
// Redis sorted set, so every sweep process shares one budget.
type RateLimiter struct {
	c             *Client
	slidingWindow *redis.Script
	limit         int
	window        time.Duration
}

// NewRateLimiter allows limit requests per window for each key.
func NewRateLimiter(c *Client, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{
		c:             c,
		slidingWindow: redis.NewScript(slidingWindowLua),
		limit:         limit,
		window:        window,
	}
}

// Allow counts the request and reports whether it is within the limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	allowed, _, err := rl.try(ctx, key)
	return allowed, err
}

func (rl *RateLimiter) try(ctx context.Context, key string) (bool, time.Duration, error) {
	result, err := rl.slidingWindow.Run(
		ctx,
		rl.c.rdb,
		[]string{rl.c.key("ratelimit", key)},
		time.Now().UnixMicro(),
		rl.window.Microseconds(),
		rl.limit,
		uuid.New().String(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("redis: rate limit allow %s: %w", key, err)
	}
	if len(result) < 2 {
		return false, 0, fmt.Errorf("redis: rate limit allow %s: unexpected result length %d", key, len(result))
	}
	return result[0] == 1, time.Duration(result[1]) * time.Microsecond, nil
}

// Wait blocks until a request for key is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	for {
		allowed, retry, err := rl.try(ctx, key)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		if retry <= 0 || retry > maxWaitPoll {
			retry = maxWaitPoll
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("redis: rate limit wait %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
