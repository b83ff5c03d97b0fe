package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// ScoreHistoryStore is an in-memory implementation of storage.ScoreHistoryStore.
type ScoreHistoryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ScoreHistoryPoint // keyed by (wallet_id, computed_at)
}

// NewScoreHistoryStore creates a new in-memory score history store.
func NewScoreHistoryStore() *ScoreHistoryStore {
	return &ScoreHistoryStore{
		data: make(map[string]*domain.ScoreHistoryPoint),
	}
}

func historyKey(walletID string, computedAt int64) string {
	return fmt.Sprintf("%s|%d", walletID, computedAt)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *ScoreHistoryStore) InsertBulk(_ context.Context, points []*domain.ScoreHistoryPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.WalletID == "" {
			return storage.ErrInvalidInput
		}
		key := historyKey(p.WalletID, p.ComputedAt)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		c := *p
		c.WinRate = cloneFloat(p.WinRate)
		s.data[historyKey(p.WalletID, p.ComputedAt)] = &c
	}
	return nil
}

// GetByWallet retrieves points within [from, to] (inclusive), ordered by computed_at ASC.
func (s *ScoreHistoryStore) GetByWallet(_ context.Context, walletID string, from, to int64) ([]*domain.ScoreHistoryPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoreHistoryPoint
	for _, p := range s.data {
		if p.WalletID == walletID && p.ComputedAt >= from && p.ComputedAt <= to {
			c := *p
			c.WinRate = cloneFloat(p.WinRate)
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ComputedAt < result[j].ComputedAt
	})
	return result, nil
}

var _ storage.ScoreHistoryStore = (*ScoreHistoryStore)(nil)
