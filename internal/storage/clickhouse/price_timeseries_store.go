package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// PriceTimeseriesStore implements storage.PriceTimeseriesStore using ClickHouse.
type PriceTimeseriesStore struct {
	conn *Conn
}

// NewPriceTimeseriesStore creates a new PriceTimeseriesStore.
func NewPriceTimeseriesStore(conn *Conn) *PriceTimeseriesStore {
	return &PriceTimeseriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceTimeseriesStore = (*PriceTimeseriesStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (asset_id, timestamp_ms).
func (s *PriceTimeseriesStore) InsertBulk(ctx context.Context, points []*domain.PriceTimeseriesPoint) (err error) {
	if len(points) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("price_insert", start, err) }(time.Now())

	// Check for intra-batch duplicates
	type key struct {
		assetID     string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		if p == nil || p.AssetID == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.AssetID, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// MergeTree does not enforce keys, check existing rows explicitly.
	for _, p := range points {
		exists, err := s.exists(ctx, p.AssetID, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_timeseries (asset_id, timestamp_ms, price, volume, source)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(p.AssetID, p.TimestampMs, p.Price, p.Volume, p.Source); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByAssetID retrieves all points for an asset, ordered by timestamp ASC.
func (s *PriceTimeseriesStore) GetByAssetID(ctx context.Context, assetID string) (_ []*domain.PriceTimeseriesPoint, err error) {
	defer func(start time.Time) { observe("price_by_asset", start, err) }(time.Now())

	rows, err := s.conn.Query(ctx, `
		SELECT asset_id, timestamp_ms, price, volume, source
		FROM price_timeseries
		WHERE asset_id = ?
		ORDER BY timestamp_ms ASC
	`, assetID)
	if err != nil {
		return nil, fmt.Errorf("query by asset id: %w", err)
	}
	defer rows.Close()

	return scanPriceTimeseries(rows)
}

// GetByTimeRange retrieves points for an asset within [start, end] (inclusive).
func (s *PriceTimeseriesStore) GetByTimeRange(ctx context.Context, assetID string, start, end int64) (_ []*domain.PriceTimeseriesPoint, err error) {
	defer func(t0 time.Time) { observe("price_by_range", t0, err) }(time.Now())

	rows, err := s.conn.Query(ctx, `
		SELECT asset_id, timestamp_ms, price, volume, source
		FROM price_timeseries
		WHERE asset_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`, assetID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceTimeseries(rows)
}

func (s *PriceTimeseriesStore) exists(ctx context.Context, assetID string, timestampMs int64) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM price_timeseries
		WHERE asset_id = ? AND timestamp_ms = ?
	`, assetID, timestampMs).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanPriceTimeseries(rows chRows) ([]*domain.PriceTimeseriesPoint, error) {
	var points []*domain.PriceTimeseriesPoint
	for rows.Next() {
		var p domain.PriceTimeseriesPoint
		if err := rows.Scan(&p.AssetID, &p.TimestampMs, &p.Price, &p.Volume, &p.Source); err != nil {
			return nil, fmt.Errorf("scan price timeseries row: %w", err)
		}
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price timeseries rows: %w", err)
	}
	return points, nil
}
