package redis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"solana-wallet-ledger/internal/storage"
)

// Checkpoint implements storage.SweepProgressStore with one Redis set per
// sweep run. Sets expire after ttl.
type Checkpoint struct {
	c   *Client
	ttl time.Duration
}

// NewCheckpoint creates a Checkpoint backed by the given Client.
func NewCheckpoint(c *Client, ttl time.Duration) *Checkpoint {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Checkpoint{c: c, ttl: ttl}
}

// MarkDone records that a wallet finished within a run.
func (cp *Checkpoint) MarkDone(ctx context.Context, runID, walletID string) error {
	if runID == "" || walletID == "" {
		return storage.ErrInvalidInput
	}
	k := cp.c.key("sweep", runID)

	pipe := cp.c.rdb.TxPipeline()
	pipe.SAdd(ctx, k, walletID)
	pipe.Expire(ctx, k, cp.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: mark done %s/%s: %w", runID, walletID, err)
	}
	return nil
}

// IsDone checks if a wallet finished within a run.
func (cp *Checkpoint) IsDone(ctx context.Context, runID, walletID string) (bool, error) {
	if runID == "" || walletID == "" {
		return false, storage.ErrInvalidInput
	}
	ok, err := cp.c.rdb.SIsMember(ctx, cp.c.key("sweep", runID), walletID).Result()
	if err != nil {
		return false, fmt.Errorf("redis: is done %s/%s: %w", runID, walletID, err)
	}
	return ok, nil
}

// CompletedWallets returns wallets marked done for the run, sorted.
func (cp *Checkpoint) CompletedWallets(ctx context.Context, runID string) ([]string, error) {
	wallets, err := cp.c.rdb.SMembers(ctx, cp.c.key("sweep", runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: completed wallets %s: %w", runID, err)
	}
	sort.Strings(wallets)
	return wallets, nil
}

var _ storage.SweepProgressStore = (*Checkpoint)(nil)
