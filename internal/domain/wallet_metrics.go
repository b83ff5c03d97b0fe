package domain

// Window labels.
const (
	Window7d  = "7d"
	Window30d = "30d"
	Window90d = "90d"
	WindowAll = "all"
)

// ValuationBreakdown counts closed lots by the provenance of their exit
// valuation.
type ValuationBreakdown struct {
	OnChain          int `json:"onChain"`
	OracleFallback   int `json:"oracleFallback"`
	StablecoinPegged int `json:"stablecoinPegged"`
}

// RollingWindowStats aggregates closed lots whose exit falls inside a window.
type RollingWindowStats struct {
	Window string `json:"window"`
	From   *int64 `json:"from"` // nil for all-time
	To     int64  `json:"to"`

	ClosedTrades int      `json:"closedTrades"`
	Wins         int      `json:"wins"`
	Losses       int      `json:"losses"`
	WinRate      *float64 `json:"winRate"` // nil when no closed lots

	RealizedPnL    float64  `json:"realizedPnl"`
	RealizedPnLPct *float64 `json:"realizedPnlPct"` // over lots with known cost
	AvgPnLPct      *float64 `json:"avgPnlPct"`
	AvgHoldingMs   *float64 `json:"avgHoldingMs"`
	AvgRR          *float64 `json:"avgRr"` // avg win / |avg loss|

	MaxDrawdown    float64  `json:"maxDrawdown"`
	MaxDrawdownPct *float64 `json:"maxDrawdownPct"`

	MaxConsecutiveLosses int `json:"maxConsecutiveLosses"`

	// Pre-history lots are included in RealizedPnL and flagged here.
	PreHistoryLots int     `json:"preHistoryLots"`
	PreHistoryPnL  float64 `json:"preHistoryPnl"`

	Buys   int     `json:"buys"`
	Sells  int     `json:"sells"`
	Volume float64 `json:"volume"` // base-currency volume of non-void trades

	Valuation ValuationBreakdown `json:"valuation"`
}

// ScoreComponent is one weighted input of the composite score.
type ScoreComponent struct {
	Name         string   `json:"name"`
	Raw          *float64 `json:"raw"`
	Normalized   float64  `json:"normalized"` // [0,1]
	Weight       float64  `json:"weight"`
	Contribution float64  `json:"contribution"` // points out of 100
}

// MetricsInputs records the counts a metrics pass was computed from.
type MetricsInputs struct {
	Trades         int `json:"trades"`
	VoidTrades     int `json:"voidTrades"`
	RejectedTrades int `json:"rejectedTrades"`
	ClosedLots     int `json:"closedLots"`
	PreHistoryLots int `json:"preHistoryLots"`
	OpenPositions  int `json:"openPositions"`
}

// WalletMetrics is the output of a metrics pass, appended as a score snapshot.
// Corresponds to wallet_score_snapshots table in PostgreSQL.
type WalletMetrics struct {
	WalletID      string               `json:"walletId"`
	ComputedAt    int64                `json:"computedAt"` // Unix ms
	Score         float64              `json:"score"`      // [0,100]
	ScoringWindow string               `json:"scoringWindow"`
	Components    []ScoreComponent     `json:"components"`
	Windows       []RollingWindowStats `json:"windows"`
	Inputs        MetricsInputs        `json:"inputs"`
	Empty         bool                 `json:"empty"` // no non-void trades
}

// Window returns the stats for the given label, or nil.
func (m *WalletMetrics) Window(label string) *RollingWindowStats {
	for i := range m.Windows {
		if m.Windows[i].Window == label {
			return &m.Windows[i]
		}
	}
	return nil
}

// ScoreHistoryPoint is a compact score history row.
// Corresponds to score_history table in ClickHouse.
type ScoreHistoryPoint struct {
	WalletID     string   `json:"walletId"`
	ComputedAt   int64    `json:"computedAt"`
	Score        float64  `json:"score"`
	ClosedTrades int      `json:"closedTrades"`
	RealizedPnL  float64  `json:"realizedPnl"`
	WinRate      *float64 `json:"winRate"`
}

// HistoryPoint projects the snapshot onto its compact history row, taking
// trade stats from the scoring window.
func (m *WalletMetrics) HistoryPoint() *ScoreHistoryPoint {
	p := &ScoreHistoryPoint{
		WalletID:   m.WalletID,
		ComputedAt: m.ComputedAt,
		Score:      m.Score,
	}
	if w := m.Window(m.ScoringWindow); w != nil {
		p.ClosedTrades = w.ClosedTrades
		p.RealizedPnL = w.RealizedPnL
		if w.WinRate != nil {
			wr := *w.WinRate
			p.WinRate = &wr
		}
	}
	return p
}
