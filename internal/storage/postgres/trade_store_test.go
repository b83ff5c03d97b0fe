package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

func createTestTrade(id, wallet, asset string, side domain.Side, ts, seq int64) *domain.Trade {
	return &domain.Trade{
		ID:          id,
		WalletID:    wallet,
		AssetID:     asset,
		Side:        side,
		TokenAmount: 10,
		BaseAmount:  1.5,
		Price:       0.15,
		Timestamp:   ts,
		Sequence:    seq,
		Venue:       "raydium",
		Provenance: domain.Provenance{
			Kind:         domain.ValuationOnChain,
			BaseCurrency: "SOL",
		},
	}
}

func TestTradeStore_InsertBulkAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trades := []*domain.Trade{
		createTestTrade("t3", "w1", "mintA", domain.SideSell, 2000, 1),
		createTestTrade("t1", "w1", "mintA", domain.SideBuy, 1000, 2),
		createTestTrade("t2", "w1", "mintB", domain.SideBuy, 1000, 3),
		createTestTrade("t4", "w2", "mintA", domain.SideBuy, 500, 1),
	}
	require.NoError(t, store.InsertBulk(ctx, trades))

	got, err := store.ListTrades(ctx, "w1", domain.TradeFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, "t2", got[1].ID)
	assert.Equal(t, "t3", got[2].ID)
	assert.Equal(t, domain.SideSell, got[2].Side)
	assert.Equal(t, "SOL", got[2].Provenance.BaseCurrency)
	assert.InDelta(t, 1.5, got[2].BaseAmount, 1e-9)

	filtered, err := store.ListTrades(ctx, "w1", domain.TradeFilter{AssetID: "mintA", Since: ptr(int64(1500))})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "t3", filtered[0].ID)

	wallets, err := store.ListWallets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "w2"}, wallets)

	// Whole batch fails on a duplicate.
	err = store.InsertBulk(ctx, []*domain.Trade{
		createTestTrade("t5", "w1", "mintA", domain.SideBuy, 3000, 4),
		createTestTrade("t1", "w1", "mintA", domain.SideBuy, 3000, 5),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	_, err = store.GetByID(ctx, "t5")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeStore_SoftDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{
		createTestTrade("t1", "w1", "mintA", domain.SideBuy, 1000, 1),
	}))

	require.NoError(t, store.SoftDelete(ctx, "t1", 5000))
	assert.ErrorIs(t, store.SoftDelete(ctx, "missing", 5000), storage.ErrNotFound)

	got, err := store.ListTrades(ctx, "w1", domain.TradeFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)

	deleted, err := store.GetByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, deleted.DeletedAt)
	assert.Equal(t, int64(5000), *deleted.DeletedAt)
}

func TestTradeStore_ApplyCorrection(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{
		createTestTrade("t1", "w1", "mintA", domain.SideBuy, 1000, 1),
	}))

	c := &domain.Correction{
		ID:        "c1",
		TradeID:   "t1",
		FromSide:  domain.SideBuy,
		ToSide:    domain.SideVoid,
		Reason:    "liquidity add",
		Actor:     "ops",
		AppliedAt: 2000,
	}
	require.NoError(t, store.ApplyCorrection(ctx, c))
	assert.Equal(t, "w1", c.WalletID)

	trade, err := store.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.SideVoid, trade.Side)

	// Stale FromSide is rejected.
	stale := *c
	stale.ID = "c2"
	assert.ErrorIs(t, store.ApplyCorrection(ctx, &stale), storage.ErrInvalidInput)

	missing := *c
	missing.ID = "c3"
	missing.TradeID = "nope"
	assert.ErrorIs(t, store.ApplyCorrection(ctx, &missing), storage.ErrNotFound)

	history, err := store.GetByWallet(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "c1", history[0].ID)
	assert.Equal(t, domain.SideVoid, history[0].ToSide)
	assert.Equal(t, "liquidity add", history[0].Reason)
}
