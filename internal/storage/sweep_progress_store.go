package storage

import (
	"context"

	"solana-wallet-ledger/internal/domain"
)

// SweepProgressStore persists sweep checkpoints so an interrupted sweep
// can be restarted under the same run id without redoing finished wallets.
type SweepProgressStore interface {
	domain.SweepCheckpoint

	// CompletedWallets returns wallets marked done for the run, sorted.
	CompletedWallets(ctx context.Context, runID string) ([]string, error)
}
