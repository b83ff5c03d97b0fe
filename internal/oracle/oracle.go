// Package oracle values assets from the stored price timeseries.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/lookup"
	"solana-wallet-ledger/internal/observability"
	"solana-wallet-ledger/internal/storage"
)

// DefaultLookback bounds how far before a trade an observation may be.
const DefaultLookback = 15 * time.Minute

// TimeseriesOracle answers PriceAt from a storage.PriceTimeseriesStore.
type TimeseriesOracle struct {
	store    storage.PriceTimeseriesStore
	lookback time.Duration
}

// NewTimeseriesOracle creates an oracle reading [ts-lookback, ts].
// A non-positive lookback uses DefaultLookback.
func NewTimeseriesOracle(store storage.PriceTimeseriesStore, lookback time.Duration) *TimeseriesOracle {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &TimeseriesOracle{store: store, lookback: lookback}
}

// PriceAt returns the newest positive price in [ts-lookback, ts].
// Returns domain.ErrPriceUnavailable (wrapped) when there is none.
func (o *TimeseriesOracle) PriceAt(ctx context.Context, assetID string, ts int64) (float64, error) {
	points, err := o.store.GetByTimeRange(ctx, assetID, ts-o.lookback.Milliseconds(), ts)
	if err != nil {
		observability.RecordOracleLookup("error")
		return 0, fmt.Errorf("price timeseries %s: %w", assetID, err)
	}

	price, err := lookup.PriceAt(ts, points)
	if err != nil {
		observability.RecordOracleLookup("unavailable")
		return 0, err
	}
	observability.RecordOracleLookup("ok")
	return price, nil
}

// Cached wraps an oracle with a price cache. Answers are keyed by asset and
// exact timestamp, so a cached answer is always the one the inner oracle
// gives for that timestamp, and are refetched once older than the TTL.
type Cached struct {
	inner domain.PriceOracle
	cache domain.PriceCache
	ttl   time.Duration
	now   func() time.Time
}

// CachedOptions contains configuration for creating a Cached oracle.
type CachedOptions struct {
	TTL time.Duration    // default 2m
	Now func() time.Time // default time.Now
}

// NewCached creates a caching oracle.
func NewCached(inner domain.PriceOracle, cache domain.PriceCache, opts CachedOptions) *Cached {
	c := &Cached{
		inner: inner,
		cache: cache,
		ttl:   opts.TTL,
		now:   opts.Now,
	}
	if c.ttl <= 0 {
		c.ttl = 2 * time.Minute
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// CacheKey returns the cache key of (assetID, ts).
func (c *Cached) CacheKey(assetID string, ts int64) string {
	return fmt.Sprintf("%s:%d", assetID, ts)
}

// PriceAt serves fresh cache entries and refetches missing or stale ones.
// Cache failures fall through to the inner oracle. Unavailable prices are
// not cached.
func (c *Cached) PriceAt(ctx context.Context, assetID string, ts int64) (float64, error) {
	key := c.CacheKey(assetID, ts)

	price, fetchedAt, err := c.cache.GetPrice(ctx, key)
	switch {
	case err == nil && c.now().Sub(fetchedAt) <= c.ttl:
		observability.RecordPriceCache("hit")
		return price, nil
	case err == nil:
		observability.RecordPriceCache("stale")
	case errors.Is(err, domain.ErrCacheMiss):
		observability.RecordPriceCache("miss")
	default:
		observability.RecordPriceCache("error")
	}

	price, err = c.inner.PriceAt(ctx, assetID, ts)
	if err != nil {
		return 0, err
	}
	// Best effort: a failed write only costs a refetch.
	_ = c.cache.SetPrice(ctx, key, price, c.now())
	return price, nil
}

var (
	_ domain.PriceOracle = (*TimeseriesOracle)(nil)
	_ domain.PriceOracle = (*Cached)(nil)
)
