package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// PriceTimeseriesStore is an in-memory implementation of storage.PriceTimeseriesStore.
type PriceTimeseriesStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceTimeseriesPoint // keyed by (asset_id, timestamp_ms)
}

// NewPriceTimeseriesStore creates a new in-memory price timeseries store.
func NewPriceTimeseriesStore() *PriceTimeseriesStore {
	return &PriceTimeseriesStore{
		data: make(map[string]*domain.PriceTimeseriesPoint),
	}
}

// priceKey generates a unique key for a price point.
func priceKey(assetID string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", assetID, timestampMs)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *PriceTimeseriesStore) InsertBulk(_ context.Context, points []*domain.PriceTimeseriesPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(points))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range points {
		if p == nil || p.AssetID == "" {
			return storage.ErrInvalidInput
		}
		key := priceKey(p.AssetID, p.TimestampMs)

		// Check existing data
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		// Check intra-batch duplicate
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		key := priceKey(p.AssetID, p.TimestampMs)
		pointCopy := *p
		s.data[key] = &pointCopy
	}

	return nil
}

// GetByAssetID retrieves all points for an asset, ordered by timestamp ASC.
func (s *PriceTimeseriesStore) GetByAssetID(_ context.Context, assetID string) ([]*domain.PriceTimeseriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceTimeseriesPoint
	for _, p := range s.data {
		if p.AssetID == assetID {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// GetByTimeRange retrieves points for an asset within [start, end] (inclusive).
func (s *PriceTimeseriesStore) GetByTimeRange(_ context.Context, assetID string, start, end int64) ([]*domain.PriceTimeseriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceTimeseriesPoint
	for _, p := range s.data {
		if p.AssetID == assetID && p.TimestampMs >= start && p.TimestampMs <= end {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.PriceTimeseriesStore = (*PriceTimeseriesStore)(nil)
