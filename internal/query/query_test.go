package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
	"solana-wallet-ledger/internal/storage/memory"
)

func snapshot(wallet string, computedAt int64, score float64) *domain.WalletMetrics {
	winRate := 0.5
	return &domain.WalletMetrics{
		WalletID:      wallet,
		ComputedAt:    computedAt,
		Score:         score,
		ScoringWindow: domain.Window30d,
		Windows: []domain.RollingWindowStats{
			{Window: domain.Window7d, ClosedTrades: 1},
			{Window: domain.Window30d, ClosedTrades: 4, WinRate: &winRate, RealizedPnL: 12},
			{Window: domain.WindowAll, ClosedTrades: 9},
		},
	}
}

func newTestService(t *testing.T, history storage.ScoreHistoryStore) (*Service, *memory.ScoreStore, *memory.LedgerStore) {
	t.Helper()
	scores := memory.NewScoreStore()
	ledger := memory.NewLedgerStore()
	return NewService(Options{Scores: scores, Ledger: ledger, History: history}), scores, ledger
}

func TestService_GetMetrics(t *testing.T) {
	ctx := context.Background()
	svc, scores, _ := newTestService(t, nil)

	_, err := svc.GetMetrics(ctx, "w1", "")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, scores.AppendScoreSnapshot(ctx, snapshot("w1", 1000, 40)))
	require.NoError(t, scores.AppendScoreSnapshot(ctx, snapshot("w1", 2000, 55)))

	m, err := svc.GetMetrics(ctx, "w1", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), m.ComputedAt)
	assert.Len(t, m.Windows, 3)

	m, err = svc.GetMetrics(ctx, "w1", domain.Window30d)
	require.NoError(t, err)
	require.Len(t, m.Windows, 1)
	assert.Equal(t, 4, m.Windows[0].ClosedTrades)

	// Narrowing must not leak into the stored snapshot.
	full, err := scores.LatestScoreSnapshot(ctx, "w1")
	require.NoError(t, err)
	assert.Len(t, full.Windows, 3)

	_, err = svc.GetMetrics(ctx, "w1", "14d")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestService_GetClosedLots(t *testing.T) {
	ctx := context.Background()
	svc, _, ledger := newTestService(t, nil)

	lots := []*domain.ClosedLot{
		{WalletID: "w1", AssetID: "mintA", Sequence: 1, ExitTime: 100},
		{WalletID: "w1", AssetID: "mintB", Sequence: 1, ExitTime: 200},
		{WalletID: "w1", AssetID: "mintA", Sequence: 2, ExitTime: 300},
	}
	require.NoError(t, ledger.ReplaceClosedLots(ctx, "w1", lots))

	all, err := svc.GetClosedLots(ctx, "w1", "", nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	from := int64(150)
	filtered, err := svc.GetClosedLots(ctx, "w1", "mintA", &from)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, int64(300), filtered[0].ExitTime)
}

func TestService_ScoreTrend(t *testing.T) {
	ctx := context.Background()

	t.Run("projected from snapshots", func(t *testing.T) {
		svc, scores, _ := newTestService(t, nil)
		require.NoError(t, scores.AppendScoreSnapshot(ctx, snapshot("w1", 1000, 40)))

		points, err := svc.ScoreTrend(ctx, "w1", 0, 5000)
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Equal(t, 4, points[0].ClosedTrades)
		require.NotNil(t, points[0].WinRate)
		assert.Equal(t, 0.5, *points[0].WinRate)
	})

	t.Run("from analytics mirror", func(t *testing.T) {
		history := memory.NewScoreHistoryStore()
		svc, _, _ := newTestService(t, history)
		require.NoError(t, history.InsertBulk(ctx, []*domain.ScoreHistoryPoint{
			{WalletID: "w1", ComputedAt: 1000, Score: 10},
			{WalletID: "w1", ComputedAt: 9000, Score: 20},
		}))

		points, err := svc.ScoreTrend(ctx, "w1", 0, 5000)
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Equal(t, 10.0, points[0].Score)
	})

	t.Run("inverted range", func(t *testing.T) {
		svc, _, _ := newTestService(t, nil)
		_, err := svc.ScoreTrend(ctx, "w1", 10, 1)
		assert.True(t, errors.Is(err, storage.ErrInvalidInput))
	})
}

func TestService_Leaderboard(t *testing.T) {
	ctx := context.Background()
	svc, scores, _ := newTestService(t, nil)

	require.NoError(t, scores.AppendScoreSnapshot(ctx, snapshot("w1", 1000, 80)))
	require.NoError(t, scores.AppendScoreSnapshot(ctx, snapshot("w1", 2000, 30)))
	require.NoError(t, scores.AppendScoreSnapshot(ctx, snapshot("w2", 1500, 60)))

	board, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "w2", board[0].WalletID)
	assert.Equal(t, 30.0, board[1].Score, "latest snapshot per wallet, not best")

	board, err = svc.Leaderboard(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, board, 1)
}
