package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

func createTestMetrics(wallet string, computedAt int64, score float64) *domain.WalletMetrics {
	return &domain.WalletMetrics{
		WalletID:      wallet,
		ComputedAt:    computedAt,
		Score:         score,
		ScoringWindow: domain.Window30d,
		Components: []domain.ScoreComponent{
			{Name: "win_rate", Raw: ptr(0.5), Normalized: 0.5, Weight: 0.3, Contribution: 15},
		},
		Windows: []domain.RollingWindowStats{
			{Window: domain.Window30d, From: ptr(computedAt - 1000), To: computedAt, ClosedTrades: 2, Wins: 1, Losses: 1, WinRate: ptr(0.5)},
			{Window: domain.WindowAll, To: computedAt, ClosedTrades: 2},
		},
		Inputs: domain.MetricsInputs{Trades: 4, ClosedLots: 2},
	}
}

func TestScoreStore_AppendAndQuery(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewScoreStore(pool)

	require.NoError(t, store.AppendScoreSnapshot(ctx, createTestMetrics("w1", 1000, 40)))
	require.NoError(t, store.AppendScoreSnapshot(ctx, createTestMetrics("w1", 2000, 60)))
	require.NoError(t, store.AppendScoreSnapshot(ctx, createTestMetrics("w2", 1500, 60)))
	require.NoError(t, store.AppendScoreSnapshot(ctx, createTestMetrics("w3", 1500, 80)))

	assert.ErrorIs(t, store.AppendScoreSnapshot(ctx, createTestMetrics("w1", 1000, 10)), storage.ErrDuplicateKey)

	latest, err := store.LatestScoreSnapshot(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), latest.ComputedAt)
	assert.InDelta(t, 60.0, latest.Score, 1e-9)
	require.NotNil(t, latest.Window(domain.Window30d))
	require.NotNil(t, latest.Window(domain.Window30d).WinRate)
	assert.Nil(t, latest.Window(domain.WindowAll).From)
	require.Len(t, latest.Components, 1)
	assert.Equal(t, 4, latest.Inputs.Trades)

	_, err = store.LatestScoreSnapshot(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	history, err := store.ScoreHistory(ctx, "w1", 0, 1500)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(1000), history[0].ComputedAt)

	all, err := store.LatestAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "w3", all[0].WalletID)
	assert.Equal(t, "w1", all[1].WalletID) // tie on score broken by wallet id
	assert.Equal(t, "w2", all[2].WalletID)

	top, err := store.LatestAll(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
}

func TestPassCommitter_CommitPass(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	committer := NewPassCommitter(pool)
	ledger := NewLedgerStore(pool)
	scores := NewScoreStore(pool)

	pass := &storage.PassCommit{
		WalletID:   "w1",
		ClosedLots: []*domain.ClosedLot{createTestLot("w1", "mintA", 1, 1000)},
		OpenPositions: []*domain.OpenPosition{
			{WalletID: "w1", AssetID: "mintA", Quantity: 1, CostBasis: 2, AvgUnitCost: 2, LastTradeTime: 1000},
		},
		Metrics: createTestMetrics("w1", 5000, 55),
	}
	require.NoError(t, committer.CommitPass(ctx, pass))

	lots, err := ledger.GetClosedLots(ctx, "w1", storage.ClosedLotFilter{})
	require.NoError(t, err)
	require.Len(t, lots, 1)
	positions, err := ledger.GetOpenPositions(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, positions, 1)

	// A duplicate snapshot rolls back the ledger replacement as well.
	dup := &storage.PassCommit{
		WalletID: "w1",
		Metrics:  createTestMetrics("w1", 5000, 10),
	}
	assert.ErrorIs(t, committer.CommitPass(ctx, dup), storage.ErrDuplicateKey)

	lots, err = ledger.GetClosedLots(ctx, "w1", storage.ClosedLotFilter{})
	require.NoError(t, err)
	assert.Len(t, lots, 1)

	// Empty pass clears derived state.
	emptyPass := &storage.PassCommit{WalletID: "w1", Metrics: createTestMetrics("w1", 6000, 0)}
	require.NoError(t, committer.CommitPass(ctx, emptyPass))

	lots, err = ledger.GetClosedLots(ctx, "w1", storage.ClosedLotFilter{})
	require.NoError(t, err)
	assert.Empty(t, lots)
	positions, err = ledger.GetOpenPositions(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, positions)

	latest, err := scores.LatestScoreSnapshot(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(6000), latest.ComputedAt)

	assert.ErrorIs(t, committer.CommitPass(ctx, &storage.PassCommit{WalletID: "w1"}), storage.ErrInvalidInput)
}

func TestSweepProgressStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSweepProgressStore(pool)

	done, err := store.IsDone(ctx, "run-1", "w1")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, store.MarkDone(ctx, "run-1", "w2"))
	require.NoError(t, store.MarkDone(ctx, "run-1", "w1"))
	require.NoError(t, store.MarkDone(ctx, "run-1", "w1"))
	require.NoError(t, store.MarkDone(ctx, "run-2", "w3"))

	done, err = store.IsDone(ctx, "run-1", "w1")
	require.NoError(t, err)
	assert.True(t, done)

	wallets, err := store.CompletedWallets(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "w2"}, wallets)

	assert.ErrorIs(t, store.MarkDone(ctx, "", "w1"), storage.ErrInvalidInput)
}
