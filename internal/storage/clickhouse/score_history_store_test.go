package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

func TestScoreHistoryStore(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScoreHistoryStore(conn)
	ctx := context.Background()

	points := []*domain.ScoreHistoryPoint{
		{WalletID: "w1", ComputedAt: 2000, Score: 61.5, ClosedTrades: 4, RealizedPnL: 12, WinRate: ptr(0.75)},
		{WalletID: "w1", ComputedAt: 1000, Score: 40, ClosedTrades: 0},
		{WalletID: "w2", ComputedAt: 1000, Score: 10},
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByWallet(ctx, "w1", 0, 5000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1000), got[0].ComputedAt)
	assert.Nil(t, got[0].WinRate)
	assert.Equal(t, 4, got[1].ClosedTrades)
	require.NotNil(t, got[1].WinRate)
	assert.InDelta(t, 0.75, *got[1].WinRate, 1e-9)

	got, err = store.GetByWallet(ctx, "w1", 1500, 5000)
	require.NoError(t, err)
	require.Len(t, got, 1)

	err = store.InsertBulk(ctx, []*domain.ScoreHistoryPoint{{WalletID: "w1", ComputedAt: 2000, Score: 1}})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
