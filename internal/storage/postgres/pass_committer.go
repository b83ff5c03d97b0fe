package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-wallet-ledger/internal/storage"
)

// PassCommitter implements storage.PassCommitter using a single PostgreSQL transaction.
type PassCommitter struct {
	pool *Pool
}

// NewPassCommitter creates a new PassCommitter.
func NewPassCommitter(pool *Pool) *PassCommitter {
	return &PassCommitter{pool: pool}
}

// Compile-time interface check.
var _ storage.PassCommitter = (*PassCommitter)(nil)

// CommitPass replaces closed lots and open positions and appends the score
// snapshot. A duplicate snapshot rolls back the whole pass.
func (p *PassCommitter) CommitPass(ctx context.Context, c *storage.PassCommit) (err error) {
	if c == nil || c.WalletID == "" || c.Metrics == nil || c.Metrics.WalletID != c.WalletID {
		return storage.ErrInvalidInput
	}
	if err := validateClosedLots(c.WalletID, c.ClosedLots); err != nil {
		return err
	}
	if err := validatePositions(c.WalletID, c.OpenPositions); err != nil {
		return err
	}
	defer func(start time.Time) { observe("pass_commit", start, err) }(time.Now())

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serializes concurrent commits for the same wallet.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, c.WalletID); err != nil {
		return fmt.Errorf("acquire wallet lock: %w", err)
	}

	if err := replaceClosedLots(ctx, tx, c.WalletID, c.ClosedLots); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM open_positions WHERE wallet_id = $1`, c.WalletID); err != nil {
		return fmt.Errorf("delete open positions: %w", err)
	}
	if err := upsertOpenPositions(ctx, tx, c.OpenPositions); err != nil {
		return err
	}
	if err := appendScoreSnapshot(ctx, tx, c.Metrics); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
