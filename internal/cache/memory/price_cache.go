package memory

import (
	"context"
	"sync"
	"time"

	"solana-wallet-ledger/internal/domain"
)

type cachedPrice struct {
	price     float64
	fetchedAt time.Time
}

// PriceCache is an in-process domain.PriceCache. Freshness is decided by the
// caller from the returned fetch time.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]cachedPrice
}

// NewPriceCache creates an empty price cache.
func NewPriceCache() *PriceCache {
	return &PriceCache{prices: make(map[string]cachedPrice)}
}

// SetPrice stores price for key.
func (c *PriceCache) SetPrice(_ context.Context, key string, price float64, fetchedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[key] = cachedPrice{price: price, fetchedAt: fetchedAt}
	return nil
}

// GetPrice returns domain.ErrCacheMiss when key is absent.
func (c *PriceCache) GetPrice(_ context.Context, key string) (float64, time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.prices[key]
	if !ok {
		return 0, time.Time{}, domain.ErrCacheMiss
	}
	return p.price, p.fetchedAt, nil
}

var _ domain.PriceCache = (*PriceCache)(nil)
