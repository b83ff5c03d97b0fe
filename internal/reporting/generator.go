package reporting

import (
	"context"
	"fmt"
	"time"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// Generator produces reports from stored snapshots.
type Generator struct {
	scores storage.ScoreStore
	ledger storage.LedgerStore
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(scores storage.ScoreStore, ledger storage.LedgerStore) *Generator {
	return &Generator{
		scores: scores,
		ledger: ledger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the leaderboard report from each wallet's latest snapshot.
// limit <= 0 includes every wallet.
func (g *Generator) Generate(ctx context.Context, limit int) (*Report, error) {
	latest, err := g.scores.LatestAll(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load latest snapshots: %w", err)
	}

	report := &Report{
		GeneratedAt: g.now(),
		Summary:     summarize(latest),
		Leaderboard: make([]LeaderboardRow, 0, len(latest)),
	}
	if len(latest) > 0 {
		report.ScoringWindow = latest[0].ScoringWindow
	}

	for i, m := range latest {
		report.Leaderboard = append(report.Leaderboard, leaderboardRow(i+1, m))
	}
	return report, nil
}

// ClosedLots loads a wallet's closed lots for CSV export.
func (g *Generator) ClosedLots(ctx context.Context, walletID string) ([]*domain.ClosedLot, error) {
	lots, err := g.ledger.GetClosedLots(ctx, walletID, storage.ClosedLotFilter{})
	if err != nil {
		return nil, fmt.Errorf("load closed lots for %s: %w", walletID, err)
	}
	return lots, nil
}

func summarize(latest []*domain.WalletMetrics) DataSummary {
	var s DataSummary
	for i, m := range latest {
		s.Wallets++
		if m.Empty {
			s.EmptyWallets++
		}
		s.ClosedLots += m.Inputs.ClosedLots
		s.PreHistoryLots += m.Inputs.PreHistoryLots
		s.RejectedTrades += m.Inputs.RejectedTrades

		if i == 0 || m.ComputedAt < s.OldestSnapshot {
			s.OldestSnapshot = m.ComputedAt
		}
		if m.ComputedAt > s.NewestSnapshot {
			s.NewestSnapshot = m.ComputedAt
		}
	}
	return s
}

func leaderboardRow(rank int, m *domain.WalletMetrics) LeaderboardRow {
	row := LeaderboardRow{
		Rank:       rank,
		WalletID:   m.WalletID,
		Score:      m.Score,
		ComputedAt: m.ComputedAt,
	}
	w := m.Window(m.ScoringWindow)
	if w == nil {
		return row
	}
	row.ClosedTrades = w.ClosedTrades
	row.WinRate = w.WinRate
	row.RealizedPnL = w.RealizedPnL
	row.AvgPnLPct = w.AvgPnLPct
	row.MaxDrawdownPct = w.MaxDrawdownPct
	row.MaxConsecutiveLosses = w.MaxConsecutiveLosses
	row.PreHistoryLots = w.PreHistoryLots
	return row
}
