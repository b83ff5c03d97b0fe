package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

func TestPriceTimeseriesStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceTimeseriesStore(conn)
	ctx := context.Background()

	assert.NoError(t, store.InsertBulk(ctx, nil))

	points := []*domain.PriceTimeseriesPoint{
		{AssetID: "mintA", TimestampMs: 2000, Price: 1.6, Volume: 10, Source: "dex"},
		{AssetID: "mintA", TimestampMs: 1000, Price: 1.5, Volume: 20, Source: "dex"},
		{AssetID: "mintB", TimestampMs: 1000, Price: 9, Volume: 1, Source: "dex"},
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByAssetID(ctx, "mintA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Equal(t, 1.5, got[0].Price)
	assert.Equal(t, "dex", got[0].Source)
	assert.Equal(t, int64(2000), got[1].TimestampMs)
}

func TestPriceTimeseriesStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceTimeseriesStore(conn)
	ctx := context.Background()

	point := &domain.PriceTimeseriesPoint{AssetID: "mintA", TimestampMs: 1000, Price: 1.5, Source: "dex"}
	require.NoError(t, store.InsertBulk(ctx, []*domain.PriceTimeseriesPoint{point}))

	// Existing row.
	err := store.InsertBulk(ctx, []*domain.PriceTimeseriesPoint{point})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Intra-batch duplicate.
	dup := &domain.PriceTimeseriesPoint{AssetID: "mintA", TimestampMs: 3000, Price: 1}
	err = store.InsertBulk(ctx, []*domain.PriceTimeseriesPoint{dup, dup})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByAssetID(ctx, "mintA")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPriceTimeseriesStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceTimeseriesStore(conn)
	ctx := context.Background()

	var points []*domain.PriceTimeseriesPoint
	for i := int64(1); i <= 5; i++ {
		points = append(points, &domain.PriceTimeseriesPoint{AssetID: "mintA", TimestampMs: i * 1000, Price: float64(i)})
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByTimeRange(ctx, "mintA", 2000, 4000)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(2000), got[0].TimestampMs)
	assert.Equal(t, int64(4000), got[2].TimestampMs)

	got, err = store.GetByTimeRange(ctx, "mintB", 0, 10000)
	require.NoError(t, err)
	assert.Empty(t, got)
}
