package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"solana-wallet-ledger/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes with fields
// "price" and "ts" (Unix nanoseconds). Keys expire after retention so the
// cache does not grow without bound.
type PriceCache struct {
	c         *Client
	retention time.Duration
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client, retention time.Duration) *PriceCache {
	if retention <= 0 {
		retention = time.Hour
	}
	return &PriceCache{c: c, retention: retention}
}

// SetPrice stores price for key.
func (pc *PriceCache) SetPrice(ctx context.Context, key string, price float64, fetchedAt time.Time) error {
	k := pc.c.key("price", key)
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(fetchedAt.UnixNano(), 10),
	}

	pipe := pc.c.rdb.TxPipeline()
	pipe.HSet(ctx, k, fields)
	pipe.Expire(ctx, k, pc.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s: %w", key, err)
	}
	return nil
}

// GetPrice returns domain.ErrCacheMiss when the key does not exist.
func (pc *PriceCache) GetPrice(ctx context.Context, key string) (float64, time.Time, error) {
	vals, err := pc.c.rdb.HGetAll(ctx, pc.c.key("price", key)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", key, err)
	}

	priceStr, ok := vals["price"]
	if !ok {
		return 0, time.Time{}, domain.ErrCacheMiss
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %s: %w", key, err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, domain.ErrCacheMiss
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", key, err)
	}

	return price, time.Unix(0, tsNano), nil
}

var _ domain.PriceCache = (*PriceCache)(nil)
