package lookup

import (
	"fmt"

	"solana-wallet-ledger/internal/domain"
)

// ErrNoPriceData is returned when no point is at or before the target.
// It matches domain.ErrPriceUnavailable under errors.Is.
var ErrNoPriceData = fmt.Errorf("no price data available: %w", domain.ErrPriceUnavailable)

// PointAt returns the newest point at or before target timestamp.
// Points must be ordered by timestamp ASC.
// Later points are never used, so a valuation cannot look ahead.
func PointAt(target int64, points []*domain.PriceTimeseriesPoint) (*domain.PriceTimeseriesPoint, error) {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].TimestampMs <= target {
			return points[i], nil
		}
	}
	return nil, ErrNoPriceData
}

// PriceAt returns price at or before target timestamp, skipping
// non-positive prices. Returns ErrNoPriceData if none qualifies.
func PriceAt(target int64, prices []*domain.PriceTimeseriesPoint) (float64, error) {
	for i := len(prices) - 1; i >= 0; i-- {
		if prices[i].TimestampMs <= target && prices[i].Price > 0 {
			return prices[i].Price, nil
		}
	}
	return 0, ErrNoPriceData
}
