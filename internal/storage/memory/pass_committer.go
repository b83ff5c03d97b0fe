package memory

import (
	"context"

	"solana-wallet-ledger/internal/storage"
)

// PassCommitter is an in-memory implementation of storage.PassCommitter.
// It holds both store locks for the duration of a commit.
type PassCommitter struct {
	ledger *LedgerStore
	scores *ScoreStore
}

// NewPassCommitter creates a committer writing to the given stores.
func NewPassCommitter(ledger *LedgerStore, scores *ScoreStore) *PassCommitter {
	return &PassCommitter{ledger: ledger, scores: scores}
}

// CommitPass validates every part of c before mutating anything.
func (p *PassCommitter) CommitPass(_ context.Context, c *storage.PassCommit) error {
	if c == nil || c.WalletID == "" || c.Metrics == nil || c.Metrics.WalletID != c.WalletID {
		return storage.ErrInvalidInput
	}
	if err := validateClosedLots(c.WalletID, c.ClosedLots); err != nil {
		return err
	}
	if err := validatePositions(c.WalletID, c.OpenPositions); err != nil {
		return err
	}

	p.ledger.mu.Lock()
	defer p.ledger.mu.Unlock()
	p.scores.mu.Lock()
	defer p.scores.mu.Unlock()

	if p.scores.existsLocked(c.Metrics) {
		return storage.ErrDuplicateKey
	}

	p.ledger.replaceLotsLocked(c.WalletID, c.ClosedLots)
	p.ledger.replacePositionsLocked(c.WalletID, c.OpenPositions)
	p.scores.appendLocked(c.Metrics)
	return nil
}

var _ storage.PassCommitter = (*PassCommitter)(nil)
