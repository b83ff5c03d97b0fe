package domain

import (
	"context"
	"time"
)

// PriceOracle values an asset in base currency at a point in time.
type PriceOracle interface {
	// PriceAt returns the price at or before ts. Returns ErrPriceUnavailable
	// when there is no observation.
	PriceAt(ctx context.Context, assetID string, ts int64) (float64, error)
}

// PriceCache stores oracle answers for a short time.
type PriceCache interface {
	SetPrice(ctx context.Context, key string, price float64, fetchedAt time.Time) error
	// GetPrice returns ErrCacheMiss when the key is absent.
	GetPrice(ctx context.Context, key string) (float64, time.Time, error)
}

// LockManager serializes passes per wallet.
type LockManager interface {
	// Acquire returns ErrLockHeld when key is already locked.
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RateLimiter throttles sweep throughput.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}

// SweepCheckpoint records wallets completed within a sweep run.
type SweepCheckpoint interface {
	MarkDone(ctx context.Context, runID, walletID string) error
	IsDone(ctx context.Context, runID, walletID string) (bool, error)
}
