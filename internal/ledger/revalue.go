package ledger

import (
	"context"
	"errors"

	"solana-wallet-ledger/internal/domain"
)

// OracleSource is the provenance source recorded on oracle-valued trades.
const OracleSource = "price_oracle"

// needsRevaluation reports whether t has neither a price nor a base amount
// but is otherwise matchable.
func needsRevaluation(t *domain.Trade) bool {
	if t.Side != domain.SideBuy && t.Side != domain.SideSell {
		return false
	}
	return t.Price <= 0 && t.BaseAmount <= 0 &&
		isFinite(t.TokenAmount) && t.TokenAmount > 0 &&
		t.AssetID != "" && t.Timestamp >= 0
}

// Revalue fills missing valuations from the oracle before matching.
// Revalued trades are copies tagged ValuationOracleFallback; the input is
// not modified. A trade the oracle has no price for is left as is and will
// be rejected by validation. Any other oracle failure aborts with a
// *domain.DependencyError.
func Revalue(ctx context.Context, oracle domain.PriceOracle, trades []*domain.Trade) ([]*domain.Trade, int, error) {
	if oracle == nil {
		return trades, 0, nil
	}

	out := make([]*domain.Trade, len(trades))
	revalued := 0
	for i, t := range trades {
		out[i] = t
		if t == nil || !needsRevaluation(t) {
			continue
		}

		price, err := oracle.PriceAt(ctx, t.AssetID, t.Timestamp)
		if err != nil {
			if errors.Is(err, domain.ErrPriceUnavailable) {
				continue
			}
			return nil, 0, domain.NewDependencyError("price_oracle", "price at "+t.AssetID, err)
		}
		if !isFinite(price) || price <= 0 {
			continue
		}

		tc := *t
		tc.Price = price
		tc.BaseAmount = price * t.TokenAmount
		tc.Provenance = domain.Provenance{
			Kind:         domain.ValuationOracleFallback,
			BaseCurrency: t.Provenance.BaseCurrency,
			Source:       OracleSource,
		}
		out[i] = &tc
		revalued++
	}
	return out, revalued, nil
}
