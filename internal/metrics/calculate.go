// Package metrics turns a wallet's trades and closed lots into rolling window
// statistics and a bounded composite score.
package metrics

import (
	"fmt"

	"solana-wallet-ledger/internal/domain"
)

// Config controls windows and scoring.
type Config struct {
	Windows       []WindowSpec
	ScoringWindow string
	Weights       Weights
	// ExperienceSaturation is the closed-lot count at which the experience
	// component reaches 1.
	ExperienceSaturation int
}

// DefaultConfig returns the default window set, 30d scoring and default weights.
func DefaultConfig() Config {
	return Config{
		Windows:              DefaultWindows(),
		ScoringWindow:        domain.Window30d,
		Weights:              DefaultWeights(),
		ExperienceSaturation: 50,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if len(c.Windows) == 0 {
		return fmt.Errorf("at least one window is required")
	}
	seen := make(map[string]bool, len(c.Windows))
	for _, w := range c.Windows {
		if w.Label == "" || w.Duration < 0 {
			return fmt.Errorf("invalid window %q", w.Label)
		}
		if seen[w.Label] {
			return fmt.Errorf("duplicate window %q", w.Label)
		}
		seen[w.Label] = true
	}
	if !seen[c.ScoringWindow] {
		return fmt.Errorf("scoring window %q is not configured", c.ScoringWindow)
	}
	if c.ExperienceSaturation <= 0 {
		return fmt.Errorf("experience saturation must be positive")
	}
	return c.Weights.Validate()
}

// Input is everything a metrics pass is computed from.
type Input struct {
	WalletID      string
	Trades        []*domain.Trade // including void and rejected
	ClosedLots    []*domain.ClosedLot
	OpenPositions int
	// Rejected trades are counted in Inputs but excluded from the
	// buy, sell and volume counters.
	Rejected []*domain.ValidationError
}

// Calculate computes all windows and the composite score at now (Unix ms).
// It never fails: a wallet without non-void trades yields an empty result
// with zeroed windows and score 0.
func Calculate(in Input, now int64, cfg Config) *domain.WalletMetrics {
	m := &domain.WalletMetrics{
		WalletID:      in.WalletID,
		ComputedAt:    now,
		ScoringWindow: cfg.ScoringWindow,
		Inputs: domain.MetricsInputs{
			Trades:         len(in.Trades),
			RejectedTrades: len(in.Rejected),
			ClosedLots:     len(in.ClosedLots),
			OpenPositions:  in.OpenPositions,
		},
	}

	for _, t := range in.Trades {
		if t.Side == domain.SideVoid {
			m.Inputs.VoidTrades++
		}
	}
	for _, l := range in.ClosedLots {
		if l.IsPreHistory {
			m.Inputs.PreHistoryLots++
		}
	}
	m.Empty = m.Inputs.Trades-m.Inputs.VoidTrades == 0

	lots := in.ClosedLots
	trades := acceptedTrades(in.Trades, in.Rejected)
	if m.Empty {
		lots, trades = nil, nil
	}
	lots = sortLots(lots)

	m.Windows = make([]domain.RollingWindowStats, 0, len(cfg.Windows))
	for _, w := range cfg.Windows {
		m.Windows = append(m.Windows, computeWindow(w, now, trades, lots))
	}

	m.Score, m.Components = computeScore(m.Window(cfg.ScoringWindow), cfg.Weights, cfg.ExperienceSaturation)
	return m
}

// acceptedTrades drops trades whose id was rejected by validation.
func acceptedTrades(trades []*domain.Trade, rejected []*domain.ValidationError) []*domain.Trade {
	if len(rejected) == 0 {
		return trades
	}
	ids := make(map[string]bool, len(rejected))
	for _, r := range rejected {
		ids[r.TradeID] = true
	}
	out := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if !ids[t.ID] {
			out = append(out, t)
		}
	}
	return out
}
