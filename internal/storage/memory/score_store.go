package memory

import (
	"context"
	"sort"
	"sync"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// ScoreStore is an in-memory implementation of storage.ScoreStore.
type ScoreStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.WalletMetrics // keyed by wallet_id, ordered by computed_at
}

// NewScoreStore creates a new in-memory score store.
func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		data: make(map[string][]*domain.WalletMetrics),
	}
}

// AppendScoreSnapshot adds a snapshot. Returns ErrDuplicateKey if (wallet_id, computed_at) exists.
func (s *ScoreStore) AppendScoreSnapshot(_ context.Context, m *domain.WalletMetrics) error {
	if m == nil || m.WalletID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.existsLocked(m) {
		return storage.ErrDuplicateKey
	}
	s.appendLocked(m)
	return nil
}

func (s *ScoreStore) existsLocked(m *domain.WalletMetrics) bool {
	for _, existing := range s.data[m.WalletID] {
		if existing.ComputedAt == m.ComputedAt {
			return true
		}
	}
	return false
}

func (s *ScoreStore) appendLocked(m *domain.WalletMetrics) {
	list := append(s.data[m.WalletID], cloneMetrics(m))
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ComputedAt < list[j].ComputedAt
	})
	s.data[m.WalletID] = list
}

// LatestScoreSnapshot retrieves the newest snapshot. Returns ErrNotFound if none.
func (s *ScoreStore) LatestScoreSnapshot(_ context.Context, walletID string) (*domain.WalletMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.data[walletID]
	if len(list) == 0 {
		return nil, storage.ErrNotFound
	}
	return cloneMetrics(list[len(list)-1]), nil
}

// ScoreHistory retrieves snapshots with computed_at within [from, to] (inclusive), ASC.
func (s *ScoreStore) ScoreHistory(_ context.Context, walletID string, from, to int64) ([]*domain.WalletMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WalletMetrics
	for _, m := range s.data[walletID] {
		if m.ComputedAt >= from && m.ComputedAt <= to {
			result = append(result, cloneMetrics(m))
		}
	}
	return result, nil
}

// LatestAll retrieves the newest snapshot per wallet ordered by score DESC, wallet ASC.
func (s *ScoreStore) LatestAll(_ context.Context, limit int) ([]*domain.WalletMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.WalletMetrics, 0, len(s.data))
	for _, list := range s.data {
		if len(list) > 0 {
			result = append(result, cloneMetrics(list[len(list)-1]))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].WalletID < result[j].WalletID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func cloneMetrics(m *domain.WalletMetrics) *domain.WalletMetrics {
	c := *m
	c.Components = append([]domain.ScoreComponent(nil), m.Components...)
	c.Windows = append([]domain.RollingWindowStats(nil), m.Windows...)
	return &c
}

var _ storage.ScoreStore = (*ScoreStore)(nil)
