package ledger

import (
	"sort"

	"solana-wallet-ledger/internal/domain"
)

// SortTrades orders trades by (timestamp ASC, sequence ASC, id ASC).
// Sequence is the ingestion order and breaks timestamp ties; id makes the
// order total when both are equal.
func SortTrades(trades []*domain.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return compareTrades(trades[i], trades[j]) < 0
	})
}

// compareTrades returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareTrades(a, b *domain.Trade) int {
	return compareKeys(a.Timestamp, a.Sequence, a.ID, b.Timestamp, b.Sequence, b.ID)
}

func compareKeys(aTs, aSeq int64, aID string, bTs, bSeq int64, bID string) int {
	if aTs != bTs {
		if aTs < bTs {
			return -1
		}
		return 1
	}
	if aSeq != bSeq {
		if aSeq < bSeq {
			return -1
		}
		return 1
	}
	if aID != bID {
		if aID < bID {
			return -1
		}
		return 1
	}
	return 0
}
