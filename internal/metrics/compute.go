package metrics

import (
	"math"
	"sort"

	"solana-wallet-ledger/internal/domain"
)

// sortLots orders lots by (ExitTime, AssetID, Sequence) ASC, the order of
// the realized PnL curve.
func sortLots(lots []*domain.ClosedLot) []*domain.ClosedLot {
	sorted := make([]*domain.ClosedLot, len(lots))
	copy(sorted, lots)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ExitTime != b.ExitTime {
			return a.ExitTime < b.ExitTime
		}
		if a.AssetID != b.AssetID {
			return a.AssetID < b.AssetID
		}
		return a.Sequence < b.Sequence
	})
	return sorted
}

// computeWinRate calculates win rate as wins / total. Nil when total is 0.
func computeWinRate(wins, total int) *float64 {
	if total == 0 {
		return nil
	}
	r := float64(wins) / float64(total)
	return &r
}

// computeMean calculates arithmetic mean of values. Nil when empty.
func computeMean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}

// computePayoffRatio is mean win / |mean loss|.
// Nil unless both wins and losses exist.
func computePayoffRatio(pnls []float64) *float64 {
	var wins, losses []float64
	for _, p := range pnls {
		switch {
		case p > 0:
			wins = append(wins, p)
		case p < 0:
			losses = append(losses, p)
		}
	}
	avgWin := computeMean(wins)
	avgLoss := computeMean(losses)
	if avgWin == nil || avgLoss == nil {
		return nil
	}
	r := *avgWin / math.Abs(*avgLoss)
	return &r
}

// computeMaxDrawdown calculates worst peak-to-trough on cumulative PnL.
// max_drawdown = MAX(peak_cumulative - trough_cumulative)
// PnLs must be in chronological order. The curve starts at 0.
func computeMaxDrawdown(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}

	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, p := range pnls {
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := peak - cumulative
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// computeDrawdownPct expresses a drawdown against deployed capital, clamped to
// [0, 100]. Without known capital any drawdown counts as a total loss.
func computeDrawdownPct(drawdown, capital float64) float64 {
	if drawdown <= 0 {
		return 0
	}
	if capital <= 0 {
		return 100
	}
	return clamp(drawdown/capital*100, 0, 100)
}

// computeMaxConsecutiveLosses finds longest streak of PnL <= 0.
// PnLs must be in chronological order.
func computeMaxConsecutiveLosses(pnls []float64) int {
	maxStreak := 0
	currentStreak := 0

	for _, p := range pnls {
		if p <= 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}

// clamp bounds v to [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func tradeVolume(t *domain.Trade) float64 {
	v := t.BaseAmount
	if v <= 0 {
		v = t.TokenAmount * t.Price
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
