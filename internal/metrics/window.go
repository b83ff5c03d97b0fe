package metrics

import (
	"fmt"
	"time"

	"solana-wallet-ledger/internal/domain"
)

// WindowSpec is a trailing time range ending at the evaluation time.
// Duration 0 means all-time.
type WindowSpec struct {
	Label    string
	Duration time.Duration
}

// DefaultWindows returns the 7d, 30d, 90d and all-time windows.
func DefaultWindows() []WindowSpec {
	return []WindowSpec{
		{Label: domain.Window7d, Duration: 7 * 24 * time.Hour},
		{Label: domain.Window30d, Duration: 30 * 24 * time.Hour},
		{Label: domain.Window90d, Duration: 90 * 24 * time.Hour},
		{Label: domain.WindowAll},
	}
}

// ParseWindow parses labels of the form "<n>d", "<n>h" or "all".
func ParseWindow(label string) (WindowSpec, error) {
	if label == domain.WindowAll {
		return WindowSpec{Label: label}, nil
	}
	var n int
	var unit string
	if _, err := fmt.Sscanf(label, "%d%s", &n, &unit); err != nil || n <= 0 {
		return WindowSpec{}, fmt.Errorf("invalid window %q", label)
	}
	switch unit {
	case "d":
		return WindowSpec{Label: label, Duration: time.Duration(n) * 24 * time.Hour}, nil
	case "h":
		return WindowSpec{Label: label, Duration: time.Duration(n) * time.Hour}, nil
	}
	return WindowSpec{}, fmt.Errorf("invalid window %q", label)
}

// bounds returns the inclusive [from, now] range of w. from is nil for all-time.
func (w WindowSpec) bounds(now int64) *int64 {
	if w.Duration <= 0 {
		return nil
	}
	from := now - w.Duration.Milliseconds()
	return &from
}

func inRange(ts int64, from *int64, to int64) bool {
	if ts > to {
		return false
	}
	return from == nil || ts >= *from
}

// computeWindow aggregates lots (sorted by sortLots) and trades into one window.
func computeWindow(w WindowSpec, now int64, trades []*domain.Trade, lots []*domain.ClosedLot) domain.RollingWindowStats {
	from := w.bounds(now)
	stats := domain.RollingWindowStats{
		Window: w.Label,
		From:   from,
		To:     now,
	}

	for _, t := range trades {
		if !inRange(t.Timestamp, from, now) {
			continue
		}
		switch t.Side {
		case domain.SideBuy:
			stats.Buys++
		case domain.SideSell:
			stats.Sells++
		default:
			continue
		}
		stats.Volume += tradeVolume(t)
	}

	var (
		pnls        []float64 // all lots, curve order
		knownPnLs   []float64 // lots with known cost
		pcts        []float64
		holds       []float64
		knownCost   float64
		knownPnLSum float64
	)
	for _, l := range lots {
		if !inRange(l.ExitTime, from, now) {
			continue
		}
		stats.ClosedTrades++
		stats.RealizedPnL += l.RealizedPnL
		pnls = append(pnls, l.RealizedPnL)

		if l.RealizedPnL > 0 {
			stats.Wins++
		} else {
			stats.Losses++
		}

		if l.IsPreHistory {
			stats.PreHistoryLots++
			stats.PreHistoryPnL += l.RealizedPnL
		}
		if l.HasKnownCost() {
			knownCost += *l.CostBasis
			knownPnLSum += l.RealizedPnL
			knownPnLs = append(knownPnLs, l.RealizedPnL)
		}
		if l.RealizedPnLPct != nil {
			pcts = append(pcts, *l.RealizedPnLPct)
		}
		if l.HoldDurationMs != nil {
			holds = append(holds, float64(*l.HoldDurationMs))
		}

		switch l.ExitValuation.Normalize() {
		case domain.ValuationOnChain:
			stats.Valuation.OnChain++
		case domain.ValuationOracleFallback:
			stats.Valuation.OracleFallback++
		case domain.ValuationStablecoinPegged:
			stats.Valuation.StablecoinPegged++
		}
	}

	stats.WinRate = computeWinRate(stats.Wins, stats.ClosedTrades)
	if knownCost > 0 {
		pct := knownPnLSum / knownCost * 100
		stats.RealizedPnLPct = &pct
	}
	stats.AvgPnLPct = computeMean(pcts)
	stats.AvgHoldingMs = computeMean(holds)
	stats.AvgRR = computePayoffRatio(knownPnLs)
	stats.MaxDrawdown = computeMaxDrawdown(pnls)
	stats.MaxConsecutiveLosses = computeMaxConsecutiveLosses(pnls)
	if stats.ClosedTrades > 0 {
		pct := computeDrawdownPct(stats.MaxDrawdown, knownCost)
		stats.MaxDrawdownPct = &pct
	}

	return stats
}
