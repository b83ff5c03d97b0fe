package ledger

import (
	"fmt"
	"math"

	"solana-wallet-ledger/internal/domain"
)

// ValidateTrade checks a non-void trade before it reaches the FIFO queue.
// Returns nil when the trade can be matched.
func ValidateTrade(walletID string, t *domain.Trade) *domain.ValidationError {
	reject := func(field, reason string) *domain.ValidationError {
		return &domain.ValidationError{TradeID: t.ID, Field: field, Reason: reason}
	}

	if t.ID == "" {
		return reject("id", "empty")
	}
	if t.WalletID != walletID {
		return reject("wallet_id", fmt.Sprintf("belongs to %q", t.WalletID))
	}
	if t.AssetID == "" {
		return reject("asset_id", "empty")
	}
	if !t.Side.Valid() {
		return reject("side", fmt.Sprintf("unknown side %q", t.Side))
	}
	if !isFinite(t.TokenAmount) || t.TokenAmount <= 0 {
		return reject("token_amount", fmt.Sprintf("must be positive, got %v", t.TokenAmount))
	}
	if !isFinite(t.Price) || t.Price < 0 {
		return reject("price", fmt.Sprintf("must be non-negative, got %v", t.Price))
	}
	if !isFinite(t.BaseAmount) || t.BaseAmount < 0 {
		return reject("base_amount", fmt.Sprintf("must be non-negative, got %v", t.BaseAmount))
	}
	if t.Price == 0 && t.BaseAmount == 0 {
		return reject("price", "missing price and base amount")
	}
	if t.Timestamp < 0 {
		return reject("timestamp", fmt.Sprintf("must be non-negative, got %d", t.Timestamp))
	}
	if !t.Provenance.Kind.Valid() {
		return reject("provenance", fmt.Sprintf("unknown valuation kind %q", t.Provenance.Kind))
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
