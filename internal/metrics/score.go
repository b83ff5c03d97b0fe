package metrics

import (
	"errors"
	"fmt"
	"math"

	"solana-wallet-ledger/internal/domain"
)

// Score component names.
const (
	ComponentWinRate        = "win_rate"
	ComponentRealizedPnLPct = "realized_pnl_pct"
	ComponentExperience     = "experience"
	ComponentDrawdown       = "drawdown"
	ComponentAvgPnLPct      = "avg_pnl_pct"
)

// Percent components are clamped to this range and mapped linearly to [0,1].
const (
	minPnLPct = -100.0
	maxPnLPct = 200.0
)

// Weights of the composite score components.
type Weights struct {
	WinRate        float64 `toml:"win_rate"`
	RealizedPnLPct float64 `toml:"realized_pnl_pct"`
	Experience     float64 `toml:"experience"`
	Drawdown       float64 `toml:"drawdown"`
	AvgPnLPct      float64 `toml:"avg_pnl_pct"`
}

// DefaultWeights returns the documented default weighting.
func DefaultWeights() Weights {
	return Weights{
		WinRate:        0.30,
		RealizedPnLPct: 0.25,
		Experience:     0.15,
		Drawdown:       0.15,
		AvgPnLPct:      0.15,
	}
}

// Validate checks that weights are finite, non-negative and not all zero.
func (w Weights) Validate() error {
	sum := 0.0
	for _, v := range w.values() {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("score weight %v must be a non-negative number", v)
		}
		sum += v
	}
	if sum <= 0 {
		return errors.New("score weights must have a positive sum")
	}
	return nil
}

func (w Weights) values() []float64 {
	return []float64{w.WinRate, w.RealizedPnLPct, w.Experience, w.Drawdown, w.AvgPnLPct}
}

func (w Weights) sum() float64 {
	s := 0.0
	for _, v := range w.values() {
		s += v
	}
	return s
}

func normalizePct(p float64) float64 {
	return (clamp(p, minPnLPct, maxPnLPct) - minPnLPct) / (maxPnLPct - minPnLPct)
}

func normalizeExperience(n, saturation int) float64 {
	if saturation <= 0 {
		saturation = 1
	}
	return clamp(math.Log1p(float64(n))/math.Log1p(float64(saturation)), 0, 1)
}

// computeScore derives the composite score from the scoring window.
// A window with no closed lots scores 0.
func computeScore(s *domain.RollingWindowStats, w Weights, saturation int) (float64, []domain.ScoreComponent) {
	type input struct {
		name   string
		raw    *float64
		norm   float64
		weight float64
	}

	var inputs []input
	if s == nil || s.ClosedTrades == 0 {
		inputs = []input{
			{name: ComponentWinRate, weight: w.WinRate},
			{name: ComponentRealizedPnLPct, weight: w.RealizedPnLPct},
			{name: ComponentExperience, weight: w.Experience},
			{name: ComponentDrawdown, weight: w.Drawdown},
			{name: ComponentAvgPnLPct, weight: w.AvgPnLPct},
		}
	} else {
		n := float64(s.ClosedTrades)
		inputs = []input{
			{name: ComponentWinRate, raw: s.WinRate, norm: normOrZero(s.WinRate, func(v float64) float64 { return clamp(v, 0, 1) }), weight: w.WinRate},
			{name: ComponentRealizedPnLPct, raw: s.RealizedPnLPct, norm: normOrZero(s.RealizedPnLPct, normalizePct), weight: w.RealizedPnLPct},
			{name: ComponentExperience, raw: &n, norm: normalizeExperience(s.ClosedTrades, saturation), weight: w.Experience},
			{name: ComponentDrawdown, raw: s.MaxDrawdownPct, norm: normOrZero(s.MaxDrawdownPct, func(v float64) float64 { return 1 - clamp(v, 0, 100)/100 }), weight: w.Drawdown},
			{name: ComponentAvgPnLPct, raw: s.AvgPnLPct, norm: normOrZero(s.AvgPnLPct, normalizePct), weight: w.AvgPnLPct},
		}
	}

	total := w.sum()
	score := 0.0
	components := make([]domain.ScoreComponent, 0, len(inputs))
	for _, in := range inputs {
		contribution := 0.0
		if total > 0 {
			contribution = 100 * in.weight * in.norm / total
		}
		score += contribution
		components = append(components, domain.ScoreComponent{
			Name:         in.name,
			Raw:          in.raw,
			Normalized:   in.norm,
			Weight:       in.weight,
			Contribution: contribution,
		})
	}

	return clamp(score, 0, 100), components
}

// normOrZero applies f to a known value. Unknown and NaN values score 0.
func normOrZero(v *float64, f func(float64) float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	return clamp(f(*v), 0, 1)
}
