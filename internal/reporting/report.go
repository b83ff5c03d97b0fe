package reporting

import "time"

// Report is the wallet leaderboard report.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	ScoringWindow string

	Summary DataSummary

	// Leaderboard rows by rank (score DESC, wallet ASC)
	Leaderboard []LeaderboardRow

	// Ledger verification divergences, filled by the caller when a
	// verification run accompanies the report.
	IntegrityErrors []string
}

// DataSummary describes the snapshots the report was built from.
type DataSummary struct {
	Wallets        int
	EmptyWallets   int // no non-void trades
	ClosedLots     int
	PreHistoryLots int
	RejectedTrades int
	OldestSnapshot int64 // Unix ms
	NewestSnapshot int64 // Unix ms
}

// LeaderboardRow is one wallet's latest snapshot projected onto the
// scoring window.
type LeaderboardRow struct {
	Rank                 int
	WalletID             string
	Score                float64
	ClosedTrades         int
	WinRate              *float64
	RealizedPnL          float64
	AvgPnLPct            *float64
	MaxDrawdownPct       *float64
	MaxConsecutiveLosses int
	PreHistoryLots       int
	ComputedAt           int64
}
