package ledger

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/idhash"
)

const (
	testWallet = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	assetA     = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	assetB     = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

func newTrade(id, asset string, side domain.Side, ts int64, qty, price float64) *domain.Trade {
	return &domain.Trade{
		ID:          id,
		WalletID:    testWallet,
		AssetID:     asset,
		Side:        side,
		TokenAmount: qty,
		Price:       price,
		Timestamp:   ts,
		Provenance:  domain.Provenance{Kind: domain.ValuationOnChain, BaseCurrency: "SOL"},
	}
}

func buyTrade(id, asset string, ts int64, qty, price float64) *domain.Trade {
	return newTrade(id, asset, domain.SideBuy, ts, qty, price)
}

func sellTrade(id, asset string, ts int64, qty, price float64) *domain.Trade {
	return newTrade(id, asset, domain.SideSell, ts, qty, price)
}

func TestMatch_FIFOOrder(t *testing.T) {
	s := sellTrade("s1", assetA, 3000, 15, 3)
	s.BaseAmount = 45
	trades := []*domain.Trade{
		buyTrade("b1", assetA, 1000, 10, 1),
		buyTrade("b2", assetA, 2000, 10, 2),
		s,
	}

	res := Match(testWallet, trades, Options{})
	require.Len(t, res.ClosedLots, 2)
	assert.Empty(t, res.Rejected)
	assert.Empty(t, res.Warnings)

	first := res.ClosedLots[0]
	assert.Equal(t, int64(1), first.Sequence)
	assert.Equal(t, "b1", *first.BuyTradeID)
	assert.Equal(t, "s1", first.SellTradeID)
	assert.InDelta(t, 10.0, first.Quantity, 1e-12)
	assert.InDelta(t, 10.0, *first.CostBasis, 1e-12)
	assert.InDelta(t, 30.0, first.Proceeds, 1e-12)
	assert.InDelta(t, 20.0, first.RealizedPnL, 1e-12)
	assert.InDelta(t, 200.0, *first.RealizedPnLPct, 1e-9)
	assert.Equal(t, int64(2000), *first.HoldDurationMs)
	assert.False(t, first.IsPreHistory)

	second := res.ClosedLots[1]
	assert.Equal(t, int64(2), second.Sequence)
	assert.Equal(t, "b2", *second.BuyTradeID)
	assert.InDelta(t, 5.0, second.Quantity, 1e-12)
	assert.InDelta(t, 10.0, *second.CostBasis, 1e-12)
	assert.InDelta(t, 15.0, second.Proceeds, 1e-12)
	assert.InDelta(t, 5.0, second.RealizedPnL, 1e-12)
	assert.InDelta(t, 2.0, *second.EntryPrice, 1e-12)

	require.Len(t, res.OpenPositions, 1)
	pos := res.OpenPositions[0]
	assert.Equal(t, assetA, pos.AssetID)
	assert.InDelta(t, 5.0, pos.Quantity, 1e-12)
	assert.InDelta(t, 10.0, pos.CostBasis, 1e-12)
	assert.InDelta(t, 2.0, pos.AvgUnitCost, 1e-12)
	require.Len(t, pos.Lots, 1)
	assert.Equal(t, "b2", pos.Lots[0].BuyTradeID)
	assert.Equal(t, int64(2), pos.Lots[0].LotSequence)
}

func TestMatch_ConcreteScenario(t *testing.T) {
	trades := []*domain.Trade{
		buyTrade("b1", assetA, 0, 100, 0.01),
		sellTrade("s1", assetA, 10, 100, 0.015),
	}

	res := Match(testWallet, trades, Options{})
	require.Empty(t, res.Rejected)
	require.Len(t, res.ClosedLots, 1)

	lot := res.ClosedLots[0]
	assert.False(t, lot.IsPreHistory)
	require.NotNil(t, lot.EntryTime)
	assert.Equal(t, int64(0), *lot.EntryTime)
	require.NotNil(t, lot.HoldDurationMs)
	assert.Equal(t, int64(10), *lot.HoldDurationMs)
	assert.InDelta(t, 0.5, lot.RealizedPnL, 1e-12)
	require.NotNil(t, lot.RealizedPnLPct)
	assert.InDelta(t, 50.0, *lot.RealizedPnLPct, 1e-9)
	assert.InDelta(t, 1.5, lot.Proceeds, 1e-12)
	assert.InDelta(t, 1.0, *lot.CostBasis, 1e-12)
	assert.Empty(t, res.OpenPositions)
}

func TestMatch_PreHistory(t *testing.T) {
	trades := []*domain.Trade{
		sellTrade("s1", assetA, 1000, 5, 2),
	}

	res := Match(testWallet, trades, Options{})
	require.Len(t, res.ClosedLots, 1)

	lot := res.ClosedLots[0]
	assert.True(t, lot.IsPreHistory)
	assert.Nil(t, lot.CostBasis)
	assert.Nil(t, lot.EntryPrice)
	assert.Nil(t, lot.EntryTime)
	assert.Nil(t, lot.BuyTradeID)
	assert.Nil(t, lot.HoldDurationMs)
	assert.Nil(t, lot.RealizedPnLPct)
	assert.InDelta(t, 5.0, lot.Quantity, 1e-12)
	assert.InDelta(t, 10.0, lot.Proceeds, 1e-12)
	assert.InDelta(t, 10.0, lot.RealizedPnL, 1e-12)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "s1", res.Warnings[0].SellTradeID)
	assert.InDelta(t, 5.0, res.Warnings[0].UnmatchedQuantity, 1e-12)
}

func TestMatch_PartialPreHistory(t *testing.T) {
	s := sellTrade("s1", assetA, 2000, 5, 2)
	s.BaseAmount = 10
	trades := []*domain.Trade{
		buyTrade("b1", assetA, 1000, 3, 1),
		s,
	}

	res := Match(testWallet, trades, Options{})
	require.Len(t, res.ClosedLots, 2)

	matched, pre := res.ClosedLots[0], res.ClosedLots[1]
	assert.False(t, matched.IsPreHistory)
	assert.InDelta(t, 3.0, matched.Quantity, 1e-12)
	assert.InDelta(t, 6.0, matched.Proceeds, 1e-12)

	assert.True(t, pre.IsPreHistory)
	assert.Equal(t, int64(2), pre.Sequence)
	assert.InDelta(t, 2.0, pre.Quantity, 1e-12)
	assert.InDelta(t, 4.0, pre.Proceeds, 1e-12)
	assert.InDelta(t, 10.0, matched.Proceeds+pre.Proceeds, 1e-12)
}

func TestMatch_VoidExclusion(t *testing.T) {
	base := []*domain.Trade{
		buyTrade("b1", assetA, 1000, 10, 1),
		buyTrade("b2", assetA, 2000, 10, 2),
		sellTrade("s1", assetA, 3000, 15, 3),
		sellTrade("s2", assetA, 4000, 2, 4),
	}

	void := newTrade("v1", assetA, domain.SideVoid, 2500, 1000, 0)
	withVoid := append([]*domain.Trade{void}, base...)

	want := Match(testWallet, base, Options{})
	got := Match(testWallet, withVoid, Options{})

	assert.Equal(t, want.ClosedLots, got.ClosedLots)
	assert.Equal(t, want.OpenPositions, got.OpenPositions)
	assert.Equal(t, 1, got.VoidTrades)
	assert.Equal(t, want.TradesMatched, got.TradesMatched)
}

func TestMatch_RejectsMalformedTrades(t *testing.T) {
	tests := []struct {
		name  string
		trade *domain.Trade
		field string
	}{
		{"zero quantity", buyTrade("x", assetA, 1500, 0, 1), "token_amount"},
		{"negative quantity", buyTrade("x", assetA, 1500, -1, 1), "token_amount"},
		{"nan quantity", buyTrade("x", assetA, 1500, math.NaN(), 1), "token_amount"},
		{"missing price", buyTrade("x", assetA, 1500, 1, 0), "price"},
		{"negative price", buyTrade("x", assetA, 1500, 1, -2), "price"},
		{"empty asset", buyTrade("x", "", 1500, 1, 1), "asset_id"},
		{"empty id", buyTrade("", assetA, 1500, 1, 1), "id"},
		{"negative timestamp", buyTrade("x", assetA, -1, 1, 1), "timestamp"},
		{"unknown side", newTrade("x", assetA, "transfer", 1500, 1, 1), "side"},
		{"foreign wallet", func() *domain.Trade {
			tr := buyTrade("x", assetA, 1500, 1, 1)
			tr.WalletID = "someone-else"
			return tr
		}(), "wallet_id"},
		{"unknown provenance", func() *domain.Trade {
			tr := buyTrade("x", assetA, 1500, 1, 1)
			tr.Provenance.Kind = "GUESSED"
			return tr
		}(), "provenance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trades := []*domain.Trade{
				buyTrade("b1", assetA, 1000, 10, 1),
				tt.trade,
				sellTrade("s1", assetA, 2000, 10, 2),
			}

			res := Match(testWallet, trades, Options{})

			require.Len(t, res.Rejected, 1)
			assert.Equal(t, tt.field, res.Rejected[0].Field)
			assert.True(t, errors.Is(res.Rejected[0], domain.ErrInvalidTrade))

			// The rest of the sequence still matches.
			require.Len(t, res.ClosedLots, 1)
			assert.InDelta(t, 10.0, res.ClosedLots[0].RealizedPnL, 1e-12)
		})
	}
}

func TestMatch_BaseAmountWithoutPrice(t *testing.T) {
	b := buyTrade("b1", assetA, 1000, 10, 0)
	b.BaseAmount = 5
	s := sellTrade("s1", assetA, 2000, 10, 0)
	s.BaseAmount = 8

	res := Match(testWallet, []*domain.Trade{b, s}, Options{})
	require.Empty(t, res.Rejected)
	require.Len(t, res.ClosedLots, 1)

	lot := res.ClosedLots[0]
	assert.InDelta(t, 0.5, *lot.EntryPrice, 1e-12)
	assert.InDelta(t, 0.8, lot.ExitPrice, 1e-12)
	assert.InDelta(t, 3.0, lot.RealizedPnL, 1e-12)
}

func TestMatch_SequencesPerAsset(t *testing.T) {
	trades := []*domain.Trade{
		buyTrade("a1", assetA, 1000, 1, 1),
		buyTrade("b1", assetB, 1100, 1, 1),
		sellTrade("a2", assetA, 1200, 1, 2),
		sellTrade("b2", assetB, 1300, 1, 2),
		sellTrade("b3", assetB, 1400, 1, 2),
	}

	res := Match(testWallet, trades, Options{})
	require.Len(t, res.ClosedLots, 3)

	assert.Equal(t, assetA, res.ClosedLots[0].AssetID)
	assert.Equal(t, int64(1), res.ClosedLots[0].Sequence)
	assert.Equal(t, assetB, res.ClosedLots[1].AssetID)
	assert.Equal(t, int64(1), res.ClosedLots[1].Sequence)
	assert.Equal(t, int64(2), res.ClosedLots[2].Sequence)

	for _, l := range res.ClosedLots {
		assert.Equal(t, idhash.ComputeClosedLotID(testWallet, l.AssetID, l.Sequence), l.ID)
	}
}

func TestMatch_AssetFilterAndTrackingStart(t *testing.T) {
	trades := []*domain.Trade{
		buyTrade("a1", assetA, 1000, 10, 1),
		buyTrade("b1", assetB, 1100, 10, 1),
		sellTrade("a2", assetA, 2000, 10, 2),
		sellTrade("b2", assetB, 2100, 10, 2),
	}

	onlyB := Match(testWallet, trades, Options{AssetID: assetB})
	require.Len(t, onlyB.ClosedLots, 1)
	assert.Equal(t, assetB, onlyB.ClosedLots[0].AssetID)

	start := int64(1050)
	tracked := Match(testWallet, trades, Options{TrackingStart: &start})
	require.Len(t, tracked.ClosedLots, 2)
	// a1 is discarded, so the asset A sell becomes pre-history.
	assert.True(t, tracked.ClosedLots[0].IsPreHistory)
	assert.False(t, tracked.ClosedLots[1].IsPreHistory)

	// A trade exactly at the tracking start is kept.
	start = 1000
	atStart := Match(testWallet, trades, Options{TrackingStart: &start})
	require.Len(t, atStart.ClosedLots, 2)
	for _, l := range atStart.ClosedLots {
		assert.False(t, l.IsPreHistory, "%s/%d", l.AssetID, l.Sequence)
	}
	require.NotNil(t, atStart.ClosedLots[0].BuyTradeID)
	assert.Equal(t, "a1", *atStart.ClosedLots[0].BuyTradeID)

	// One millisecond later it is discarded.
	start = 1001
	after := Match(testWallet, trades, Options{TrackingStart: &start})
	require.Len(t, after.ClosedLots, 2)
	assert.True(t, after.ClosedLots[0].IsPreHistory)
}

func TestMatch_DeterministicUnderInputOrder(t *testing.T) {
	trades := randomTrades(rand.New(rand.NewSource(7)), 200)

	first := Match(testWallet, trades, Options{})

	shuffled := make([]*domain.Trade, len(trades))
	copy(shuffled, trades)
	rand.New(rand.NewSource(99)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	second := Match(testWallet, shuffled, Options{})

	assert.Equal(t, first.ClosedLots, second.ClosedLots)
	assert.Equal(t, first.OpenPositions, second.OpenPositions)
}

func TestMatch_Conservation(t *testing.T) {
	trades := randomTrades(rand.New(rand.NewSource(42)), 300)
	res := Match(testWallet, trades, Options{})
	require.Empty(t, res.Rejected)

	bought := map[string]float64{}
	sold := map[string]float64{}
	sellProceeds := map[string]float64{}
	for _, tr := range trades {
		switch tr.Side {
		case domain.SideBuy:
			bought[tr.AssetID] += tr.TokenAmount
		case domain.SideSell:
			sold[tr.AssetID] += tr.TokenAmount
			sellProceeds[tr.ID] = tr.TokenAmount * tr.Price
		}
	}

	matched := map[string]float64{}
	closed := map[string]float64{}
	proceeds := map[string]float64{}
	for _, l := range res.ClosedLots {
		closed[l.AssetID] += l.Quantity
		if !l.IsPreHistory {
			matched[l.AssetID] += l.Quantity
		}
		proceeds[l.SellTradeID] += l.Proceeds
	}
	open := map[string]float64{}
	for _, p := range res.OpenPositions {
		open[p.AssetID] += p.Quantity
	}

	for _, asset := range []string{assetA, assetB} {
		assert.InDelta(t, bought[asset], matched[asset]+open[asset], 1e-6, "buys conserved for %s", asset)
		assert.InDelta(t, sold[asset], closed[asset], 1e-6, "sells conserved for %s", asset)
	}
	for id, want := range sellProceeds {
		assert.InDelta(t, want, proceeds[id], 1e-6, "proceeds conserved for %s", id)
	}
}

func TestMatch_RebuildOnGrownLogKeepsHistory(t *testing.T) {
	trades := randomTrades(rand.New(rand.NewSource(3)), 120)
	sorted := make([]*domain.Trade, len(trades))
	copy(sorted, trades)
	SortTrades(sorted)

	full := Match(testWallet, trades, Options{})

	// Appending trades never rewrites lots closed by earlier sells, so a
	// full rebuild after new trades arrive agrees with the earlier rebuild.
	for _, split := range []int{0, 1, 17, 60, 119, 120} {
		prefix := Match(testWallet, sorted[:split], Options{})
		require.LessOrEqual(t, len(prefix.ClosedLots), len(full.ClosedLots), "split %d", split)
		assert.Equal(t, prefix.ClosedLots, full.ClosedLots[:len(prefix.ClosedLots)], "split %d", split)
	}

	// Rebuilding twice from the same log is idempotent.
	again := Match(testWallet, trades, Options{})
	assert.Equal(t, full.ClosedLots, again.ClosedLots)
	assert.Equal(t, full.OpenPositions, again.OpenPositions)
}

// randomTrades builds a two-asset trade log with occasional oversells.
func randomTrades(r *rand.Rand, n int) []*domain.Trade {
	trades := make([]*domain.Trade, 0, n)
	ts := int64(1_700_000_000_000)
	for i := 0; i < n; i++ {
		ts += int64(1 + r.Intn(60_000))
		asset := assetA
		if r.Intn(2) == 0 {
			asset = assetB
		}
		qty := math.Round((0.5+r.Float64()*50)*1e6) / 1e6
		price := math.Round((0.001+r.Float64())*1e9) / 1e9
		id := fmt.Sprintf("t%04d", i)
		if r.Intn(5) < 3 {
			trades = append(trades, buyTrade(id, asset, ts, qty, price))
		} else {
			trades = append(trades, sellTrade(id, asset, ts, qty, price))
		}
	}
	return trades
}
