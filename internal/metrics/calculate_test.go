package metrics

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/ledger"
)

const (
	testWallet = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	testAsset  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	day        = int64(24 * time.Hour / time.Millisecond)
)

func makeTrade(id string, side domain.Side, ts int64, qty, price float64) *domain.Trade {
	return &domain.Trade{
		ID:          id,
		WalletID:    testWallet,
		AssetID:     testAsset,
		Side:        side,
		TokenAmount: qty,
		Price:       price,
		Timestamp:   ts,
		Provenance:  domain.Provenance{Kind: domain.ValuationOnChain, BaseCurrency: "SOL"},
	}
}

func inputFromMatch(trades []*domain.Trade) Input {
	res := ledger.Match(testWallet, trades, ledger.Options{})
	return Input{
		WalletID:      testWallet,
		Trades:        trades,
		ClosedLots:    res.ClosedLots,
		OpenPositions: len(res.OpenPositions),
		Rejected:      res.Rejected,
	}
}

func makeLot(seq, exitTime int64, pnl float64, cost *float64) *domain.ClosedLot {
	l := &domain.ClosedLot{
		WalletID:      testWallet,
		AssetID:       testAsset,
		Sequence:      seq,
		Quantity:      1,
		ExitTime:      exitTime,
		CostBasis:     cost,
		RealizedPnL:   pnl,
		ExitValuation: domain.ValuationOnChain,
	}
	if cost == nil {
		l.IsPreHistory = true
		l.Proceeds = pnl
	} else if *cost > 0 {
		pct := pnl / *cost * 100
		l.RealizedPnLPct = &pct
	}
	return l
}

func ptr[T any](v T) *T {
	return &v
}

func TestCalculate_ConcreteScenario(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	trades := []*domain.Trade{
		makeTrade("b1", domain.SideBuy, t0, 100, 0.01),
		makeTrade("s1", domain.SideSell, t0+10_000, 100, 0.015),
	}
	now := t0 + day

	m := Calculate(inputFromMatch(trades), now, DefaultConfig())

	require.False(t, m.Empty)
	w := m.Window(domain.Window30d)
	require.NotNil(t, w)
	assert.Equal(t, 1, w.ClosedTrades)
	require.NotNil(t, w.WinRate)
	assert.Equal(t, 1.0, *w.WinRate)
	assert.InDelta(t, 0.5, w.RealizedPnL, 1e-12)
	require.NotNil(t, w.RealizedPnLPct)
	assert.InDelta(t, 50.0, *w.RealizedPnLPct, 1e-9)
	require.NotNil(t, w.AvgHoldingMs)
	assert.Equal(t, 10_000.0, *w.AvgHoldingMs)
	assert.Equal(t, 1, w.Buys)
	assert.Equal(t, 1, w.Sells)
	assert.InDelta(t, 2.5, w.Volume, 1e-12)
	assert.Equal(t, 1, w.Valuation.OnChain)

	want := 100 * (0.30 + 0.25*0.5 + 0.15*math.Log1p(1)/math.Log1p(50) + 0.15 + 0.15*0.5)
	assert.InDelta(t, want, m.Score, 1e-9)
	assert.Len(t, m.Components, 5)
	assert.Equal(t, domain.Window30d, m.ScoringWindow)
	assert.Equal(t, now, m.ComputedAt)
}

func TestCalculate_EmptyWallet(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	trades := []*domain.Trade{
		makeTrade("v1", domain.SideVoid, t0, 10, 1),
	}

	for _, in := range []Input{{WalletID: testWallet}, inputFromMatch(trades)} {
		m := Calculate(in, t0+day, DefaultConfig())

		assert.True(t, m.Empty)
		assert.Equal(t, 0.0, m.Score)
		require.Len(t, m.Windows, 4)
		for _, w := range m.Windows {
			assert.Equal(t, 0, w.ClosedTrades, w.Window)
			assert.Nil(t, w.WinRate, w.Window)
			assert.Nil(t, w.MaxDrawdownPct, w.Window)
			assert.Equal(t, 0.0, w.RealizedPnL, w.Window)
		}
	}
}

func TestCalculate_WinRateUndefinedOutsideWindow(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	trades := []*domain.Trade{
		makeTrade("b1", domain.SideBuy, t0, 10, 1),
		makeTrade("s1", domain.SideSell, t0+1000, 10, 2),
	}

	// 60 days later the only lot has left the 7d and 30d windows.
	m := Calculate(inputFromMatch(trades), t0+60*day, DefaultConfig())

	assert.False(t, m.Empty)
	assert.Nil(t, m.Window(domain.Window7d).WinRate)
	assert.Nil(t, m.Window(domain.Window30d).WinRate)
	assert.NotNil(t, m.Window(domain.Window90d).WinRate)
	assert.Equal(t, 0.0, m.Score, "empty scoring window scores the floor")
}

func TestCalculate_PreHistoryFlagged(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	trades := []*domain.Trade{
		makeTrade("s1", domain.SideSell, t0, 5, 2),
	}

	m := Calculate(inputFromMatch(trades), t0+day, DefaultConfig())

	w := m.Window(domain.WindowAll)
	assert.Equal(t, 1, w.ClosedTrades)
	assert.Equal(t, 1, w.PreHistoryLots)
	assert.InDelta(t, 10.0, w.PreHistoryPnL, 1e-12)
	assert.InDelta(t, 10.0, w.RealizedPnL, 1e-12)
	assert.Nil(t, w.RealizedPnLPct, "percent is undefined without known cost")
	assert.Nil(t, w.AvgPnLPct)
	assert.Nil(t, w.AvgHoldingMs)
	assert.Equal(t, 1, m.Inputs.PreHistoryLots)
	assert.False(t, math.IsNaN(m.Score))
}

func TestCalculate_WindowPartitionSumsToAllTime(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	start := int64(1_600_000_000_000)
	now := start + 400*day

	var lots []*domain.ClosedLot
	for i := 0; i < 300; i++ {
		// odd timestamps never coincide with the even segment boundaries
		exit := start + 2*r.Int63n(200*day) + 1
		lots = append(lots, makeLot(int64(i+1), exit, r.Float64()*20-10, ptr(5.0)))
	}
	trades := []*domain.Trade{makeTrade("b1", domain.SideBuy, start, 1, 1)}

	all := Calculate(Input{WalletID: testWallet, Trades: trades, ClosedLots: lots}, now, DefaultConfig())
	total := all.Window(domain.WindowAll).RealizedPnL

	boundaries := []int64{start + 10*day, start + 45*day, start + 46*day, start + 130*day, now}
	sum := 0.0
	count := 0
	for i, b := range boundaries {
		win := WindowSpec{Label: "segment"}
		if i > 0 {
			win.Duration = time.Duration(b-boundaries[i-1]) * time.Millisecond
		}
		ws := computeWindow(win, b, trades, sortLots(lots))
		sum += ws.RealizedPnL
		count += ws.ClosedTrades
	}

	assert.Equal(t, len(lots), count)
	assert.InDelta(t, total, sum, 1e-6)
}

func TestCalculate_ScoreBoundsPathological(t *testing.T) {
	now := int64(1_700_000_000_000)
	cases := map[string][]*domain.ClosedLot{
		"total loss": {
			makeLot(1, now-1000, -100, ptr(100.0)),
		},
		"non-finite pnl": {
			makeLot(1, now-3000, math.Inf(1), ptr(1.0)),
			makeLot(2, now-2000, math.NaN(), ptr(1.0)),
			makeLot(3, now-1000, math.Inf(-1), ptr(1.0)),
		},
		"huge gain": {
			makeLot(1, now-1000, 1e12, ptr(1e-9)),
		},
		"pre-history loss curve": {
			makeLot(1, now-2000, 5, nil),
			makeLot(2, now-1000, -50, ptr(1.0)),
		},
	}
	trades := []*domain.Trade{makeTrade("b1", domain.SideBuy, now-10_000, 1, 1)}

	for name, lots := range cases {
		t.Run(name, func(t *testing.T) {
			m := Calculate(Input{WalletID: testWallet, Trades: trades, ClosedLots: lots}, now, DefaultConfig())
			assert.False(t, math.IsNaN(m.Score))
			assert.GreaterOrEqual(t, m.Score, 0.0)
			assert.LessOrEqual(t, m.Score, 100.0)
			for _, c := range m.Components {
				assert.GreaterOrEqual(t, c.Normalized, 0.0, c.Name)
				assert.LessOrEqual(t, c.Normalized, 1.0, c.Name)
			}
		})
	}
}

func TestCalculate_ScoreBoundsRandom(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	now := int64(1_700_000_000_000)
	trades := []*domain.Trade{makeTrade("b1", domain.SideBuy, now-100*day, 1, 1)}

	for i := 0; i < 200; i++ {
		n := r.Intn(80)
		lots := make([]*domain.ClosedLot, 0, n)
		for j := 0; j < n; j++ {
			var cost *float64
			if r.Intn(5) > 0 {
				cost = ptr(r.Float64() * 100)
			}
			pnl := (r.Float64()*2 - 1) * math.Pow(10, float64(r.Intn(8)))
			lots = append(lots, makeLot(int64(j+1), now-r.Int63n(60*day), pnl, cost))
		}

		m := Calculate(Input{WalletID: testWallet, Trades: trades, ClosedLots: lots}, now, DefaultConfig())
		require.GreaterOrEqual(t, m.Score, 0.0)
		require.LessOrEqual(t, m.Score, 100.0)
	}
}

func TestCalculate_AvgRRAndValuationBreakdown(t *testing.T) {
	now := int64(1_700_000_000_000)
	lots := []*domain.ClosedLot{
		makeLot(1, now-4000, 2, ptr(10.0)),
		makeLot(2, now-3000, 4, ptr(10.0)),
		makeLot(3, now-2000, -1, ptr(10.0)),
		makeLot(4, now-1000, -2, ptr(10.0)),
	}
	lots[1].ExitValuation = domain.ValuationOracleFallback
	lots[2].ExitValuation = domain.ValuationStablecoinPegged
	lots[3].ExitValuation = ""
	trades := []*domain.Trade{makeTrade("b1", domain.SideBuy, now-10_000, 1, 1)}

	m := Calculate(Input{WalletID: testWallet, Trades: trades, ClosedLots: lots}, now, DefaultConfig())
	w := m.Window(domain.Window7d)

	require.NotNil(t, w.AvgRR)
	assert.InDelta(t, 2.0, *w.AvgRR, 1e-12)
	assert.Equal(t, domain.ValuationBreakdown{OnChain: 2, OracleFallback: 1, StablecoinPegged: 1}, w.Valuation)
	assert.Equal(t, 2, w.Wins)
	assert.Equal(t, 2, w.Losses)
	assert.Equal(t, 2, w.MaxConsecutiveLosses)
	// curve: 2, 6, 5, 3 -> drawdown 3 on 40 deployed
	assert.InDelta(t, 3.0, w.MaxDrawdown, 1e-12)
	require.NotNil(t, w.MaxDrawdownPct)
	assert.InDelta(t, 7.5, *w.MaxDrawdownPct, 1e-12)
}

func TestComputeScore_Monotonic(t *testing.T) {
	base := domain.RollingWindowStats{
		ClosedTrades:   10,
		WinRate:        ptr(0.5),
		RealizedPnLPct: ptr(10.0),
		AvgPnLPct:      ptr(5.0),
		MaxDrawdownPct: ptr(20.0),
	}
	w := DefaultWeights()
	baseScore, _ := computeScore(&base, w, 50)

	better := []struct {
		name   string
		mutate func(s *domain.RollingWindowStats)
	}{
		{"higher win rate", func(s *domain.RollingWindowStats) { s.WinRate = ptr(0.9) }},
		{"higher pnl pct", func(s *domain.RollingWindowStats) { s.RealizedPnLPct = ptr(80.0) }},
		{"more experience", func(s *domain.RollingWindowStats) { s.ClosedTrades = 40 }},
		{"smaller drawdown", func(s *domain.RollingWindowStats) { s.MaxDrawdownPct = ptr(5.0) }},
		{"higher avg pnl pct", func(s *domain.RollingWindowStats) { s.AvgPnLPct = ptr(50.0) }},
		{"outlier pnl pct saturates", func(s *domain.RollingWindowStats) { s.RealizedPnLPct = ptr(1e9) }},
	}
	for _, tt := range better {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			got, _ := computeScore(&s, w, 50)
			assert.Greater(t, got, baseScore)
		})
	}
}

func TestComputeScore_ContributionsSumToScore(t *testing.T) {
	s := domain.RollingWindowStats{
		ClosedTrades:   3,
		WinRate:        ptr(2.0 / 3.0),
		RealizedPnLPct: ptr(-20.0),
		AvgPnLPct:      ptr(-5.0),
		MaxDrawdownPct: ptr(40.0),
	}
	score, components := computeScore(&s, DefaultWeights(), 50)

	sum := 0.0
	for _, c := range components {
		sum += c.Contribution
	}
	assert.InDelta(t, score, sum, 1e-9)
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	assert.Error(t, Weights{}.Validate())
	assert.Error(t, Weights{WinRate: -1, Experience: 2}.Validate())
	assert.Error(t, Weights{WinRate: math.NaN()}.Validate())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.ScoringWindow = "14d"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Windows = append(cfg.Windows, WindowSpec{Label: domain.Window7d})
	assert.Error(t, cfg.Validate())
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		label   string
		want    time.Duration
		wantErr bool
	}{
		{"all", 0, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"12h", 12 * time.Hour, false},
		{"0d", 0, true},
		{"7w", 0, true},
		{"week", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseWindow(tt.label)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Duration)
			assert.Equal(t, tt.label, got.Label)
		})
	}
}
