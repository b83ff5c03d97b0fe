package metrics

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/ledger"
	"solana-wallet-ledger/internal/storage"
	"solana-wallet-ledger/internal/storage/memory"
)

type failingLedgerStore struct {
	storage.LedgerStore
}

func (failingLedgerStore) GetClosedLots(context.Context, string, storage.ClosedLotFilter) ([]*domain.ClosedLot, error) {
	return nil, errors.New("timeout")
}

func TestEngine_CalculateMetrics(t *testing.T) {
	ctx := context.Background()
	trades := memory.NewTradeStore()
	lots := memory.NewLedgerStore()

	t0 := int64(1_700_000_000_000)
	input := []*domain.Trade{
		makeTrade("b1", domain.SideBuy, t0, 100, 0.01),
		makeTrade("b2", domain.SideBuy, t0+1000, 50, 0.02),
		makeTrade("s1", domain.SideSell, t0+10_000, 100, 0.015),
	}
	require.NoError(t, trades.InsertBulk(ctx, input))

	res := ledger.Match(testWallet, input, ledger.Options{})
	require.NoError(t, lots.ReplaceClosedLots(ctx, testWallet, res.ClosedLots))
	require.NoError(t, lots.UpsertOpenPositions(ctx, testWallet, res.OpenPositions))

	engine := NewEngine(EngineOptions{
		TradeStore:  trades,
		LedgerStore: lots,
		Now:         func() time.Time { return time.UnixMilli(t0 + day) },
		Logger:      log.New(io.Discard, "", 0),
	})

	m, err := engine.CalculateMetrics(ctx, testWallet)
	require.NoError(t, err)

	assert.Equal(t, t0+day, m.ComputedAt)
	assert.Equal(t, 3, m.Inputs.Trades)
	assert.Equal(t, 1, m.Inputs.ClosedLots)
	assert.Equal(t, 1, m.Inputs.OpenPositions)
	assert.InDelta(t, 0.5, m.Window(domain.Window30d).RealizedPnL, 1e-12)

	// Same inputs as the pure calculation.
	pure := Calculate(Input{
		WalletID:      testWallet,
		Trades:        input,
		ClosedLots:    res.ClosedLots,
		OpenPositions: len(res.OpenPositions),
	}, t0+day, DefaultConfig())
	assert.Equal(t, pure.Score, m.Score)
	assert.Equal(t, pure.Windows, m.Windows)
}

func TestEngine_LedgerStoreFailure(t *testing.T) {
	engine := NewEngine(EngineOptions{
		TradeStore:  memory.NewTradeStore(),
		LedgerStore: failingLedgerStore{},
		Logger:      log.New(io.Discard, "", 0),
	})

	_, err := engine.CalculateMetrics(context.Background(), testWallet)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDependency))
}

func TestEngine_CalculateMetrics_MatchesPass(t *testing.T) {
	ctx := context.Background()
	trades := memory.NewTradeStore()
	lots := memory.NewLedgerStore()

	t0 := int64(1_700_000_000_000)
	start := t0 + 1000
	input := []*domain.Trade{
		makeTrade("old", domain.SideBuy, t0, 10, 1),       // before tracking start
		makeTrade("b1", domain.SideBuy, start, 100, 0.01), // exactly at start
		makeTrade("bad", domain.SideBuy, start+500, 5, 0), // no valuation, no oracle
		makeTrade("s1", domain.SideSell, start+10_000, 100, 0.015),
	}
	require.NoError(t, trades.InsertBulk(ctx, input))

	opts := ledger.Options{TrackingStart: &start}
	loaded, err := trades.ListTrades(ctx, testWallet, domain.TradeFilter{Since: &start})
	require.NoError(t, err)
	res := ledger.Match(testWallet, loaded, opts)
	require.Len(t, res.Rejected, 1)
	require.NoError(t, lots.ReplaceClosedLots(ctx, testWallet, res.ClosedLots))

	now := start + day
	engine := NewEngine(EngineOptions{
		TradeStore:    trades,
		LedgerStore:   lots,
		TrackingStart: &start,
		Now:           func() time.Time { return time.UnixMilli(now) },
	})

	m, err := engine.CalculateMetrics(ctx, testWallet)
	require.NoError(t, err)

	assert.Equal(t, 3, m.Inputs.Trades, "trade before tracking start is ignored")
	assert.Equal(t, 1, m.Inputs.RejectedTrades)

	w := m.Window(domain.WindowAll)
	require.NotNil(t, w)
	assert.Equal(t, 1, w.Buys, "rejected buy is not counted")
	assert.Equal(t, 1, w.Sells)
	assert.InDelta(t, 1.0+1.5, w.Volume, 1e-12)

	// Same result a pass computes from its own matching output.
	pass := Calculate(Input{
		WalletID:   testWallet,
		Trades:     loaded,
		ClosedLots: res.ClosedLots,
		Rejected:   res.Rejected,
	}, now, DefaultConfig())
	assert.Equal(t, pass.Windows, m.Windows)
	assert.Equal(t, pass.Inputs, m.Inputs)
}

func TestNewEngine_NilLoggerDiscards(t *testing.T) {
	engine := NewEngine(EngineOptions{
		TradeStore:  memory.NewTradeStore(),
		LedgerStore: memory.NewLedgerStore(),
	})
	require.NotNil(t, engine.logger)
	assert.Equal(t, io.Discard, engine.logger.Writer())
}
