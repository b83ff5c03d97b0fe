// Package query serves the persisted ledger and score state to readers.
// It never recomputes; a wallet without a snapshot has no data yet.
package query

import (
	"context"
	"fmt"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// DefaultLeaderboardLimit applies when Leaderboard gets limit <= 0.
const DefaultLeaderboardLimit = 100

// Service reads committed pass results.
type Service struct {
	scores  storage.ScoreStore
	ledger  storage.LedgerStore
	history storage.ScoreHistoryStore
}

// Options for creating a Service.
type Options struct {
	Scores  storage.ScoreStore
	Ledger  storage.LedgerStore
	History storage.ScoreHistoryStore // optional analytics mirror for ScoreTrend
}

// NewService creates a new Service.
func NewService(opts Options) *Service {
	return &Service{
		scores:  opts.Scores,
		ledger:  opts.Ledger,
		history: opts.History,
	}
}

// GetMetrics returns the wallet's latest snapshot. A non-empty window narrows
// Windows to that label; an unknown label is ErrInvalidInput.
// Returns storage.ErrNotFound when the wallet has never been scored.
func (s *Service) GetMetrics(ctx context.Context, walletID, window string) (*domain.WalletMetrics, error) {
	m, err := s.scores.LatestScoreSnapshot(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if window == "" {
		return m, nil
	}

	w := m.Window(window)
	if w == nil {
		return nil, fmt.Errorf("window %q: %w", window, storage.ErrInvalidInput)
	}
	narrowed := *m
	narrowed.Windows = []domain.RollingWindowStats{*w}
	return &narrowed, nil
}

// GetClosedLots returns closed lots by exit time, optionally for one asset
// and from an inclusive exit-time bound.
func (s *Service) GetClosedLots(ctx context.Context, walletID, assetID string, from *int64) ([]*domain.ClosedLot, error) {
	return s.ledger.GetClosedLots(ctx, walletID, storage.ClosedLotFilter{AssetID: assetID, From: from})
}

// GetOpenPositions returns the wallet's open positions by asset.
func (s *Service) GetOpenPositions(ctx context.Context, walletID string) ([]*domain.OpenPosition, error) {
	return s.ledger.GetOpenPositions(ctx, walletID)
}

// GetScoreHistory returns full snapshots with computed_at in [from, to].
func (s *Service) GetScoreHistory(ctx context.Context, walletID string, from, to int64) ([]*domain.WalletMetrics, error) {
	if from > to {
		return nil, fmt.Errorf("from %d after to %d: %w", from, to, storage.ErrInvalidInput)
	}
	return s.scores.ScoreHistory(ctx, walletID, from, to)
}

// ScoreTrend returns compact history points in [from, to]. The analytics
// mirror is used when configured; otherwise points are projected from the
// snapshots themselves.
func (s *Service) ScoreTrend(ctx context.Context, walletID string, from, to int64) ([]*domain.ScoreHistoryPoint, error) {
	if from > to {
		return nil, fmt.Errorf("from %d after to %d: %w", from, to, storage.ErrInvalidInput)
	}
	if s.history != nil {
		return s.history.GetByWallet(ctx, walletID, from, to)
	}

	snaps, err := s.scores.ScoreHistory(ctx, walletID, from, to)
	if err != nil {
		return nil, err
	}
	points := make([]*domain.ScoreHistoryPoint, 0, len(snaps))
	for _, m := range snaps {
		points = append(points, m.HistoryPoint())
	}
	return points, nil
}

// Leaderboard returns each wallet's latest snapshot by score DESC.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]*domain.WalletMetrics, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	return s.scores.LatestAll(ctx, limit)
}
