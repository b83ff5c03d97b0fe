package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-wallet-ledger/internal/storage"
)

// SweepProgressStore implements storage.SweepProgressStore using PostgreSQL.
type SweepProgressStore struct {
	pool *Pool
	now  func() time.Time
}

// NewSweepProgressStore creates a new SweepProgressStore.
func NewSweepProgressStore(pool *Pool) *SweepProgressStore {
	return &SweepProgressStore{pool: pool, now: time.Now}
}

// Compile-time interface check.
var _ storage.SweepProgressStore = (*SweepProgressStore)(nil)

// MarkDone records the wallet as completed for the run. Idempotent.
func (s *SweepProgressStore) MarkDone(ctx context.Context, runID, walletID string) error {
	if runID == "" || walletID == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sweep_progress (run_id, wallet_id, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, wallet_id) DO NOTHING
	`, runID, walletID, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("mark sweep progress: %w", err)
	}
	return nil
}

// IsDone reports whether the wallet was completed for the run.
func (s *SweepProgressStore) IsDone(ctx context.Context, runID, walletID string) (bool, error) {
	if runID == "" || walletID == "" {
		return false, storage.ErrInvalidInput
	}
	var done bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM sweep_progress WHERE run_id = $1 AND wallet_id = $2)
	`, runID, walletID).Scan(&done)
	if err != nil {
		return false, fmt.Errorf("check sweep progress: %w", err)
	}
	return done, nil
}

// CompletedWallets returns wallets marked done for the run, sorted.
func (s *SweepProgressStore) CompletedWallets(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT wallet_id FROM sweep_progress WHERE run_id = $1 ORDER BY wallet_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query sweep progress: %w", err)
	}
	defer rows.Close()

	var wallets []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan sweep progress: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep progress: %w", err)
	}
	return wallets, nil
}
