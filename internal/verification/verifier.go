// Package verification checks stored ledgers against a rebuild from the
// trade log. Closed lots are compared field by field.
package verification

import (
	"context"
	"fmt"
	"math"

	"solana-wallet-ledger/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and rebuilt values.
type FieldDivergence struct {
	Field    string // field name
	Expected any    // stored value
	Actual   any    // rebuilt value
}

// LotKey identifies a closed lot within a wallet.
type LotKey struct {
	AssetID  string
	Sequence int64
}

func (k LotKey) String() string {
	return fmt.Sprintf("%s#%d", k.AssetID, k.Sequence)
}

// LotDivergence lists the divergent fields of one closed lot.
type LotDivergence struct {
	Key         LotKey
	Divergences []FieldDivergence
}

// WalletResult contains the result of verifying one wallet.
type WalletResult struct {
	WalletID    string
	Match       bool // true if every lot and position matches
	StoredLots  int
	RebuiltLots int

	Missing   []LotKey // rebuilt but not stored
	Extra     []LotKey // stored but not rebuilt
	Divergent []LotDivergence

	// Open position mismatches keyed by asset
	Positions []LotDivergence

	Err error // set when the wallet could not be verified
}

// Problems flattens the result into one line per problem.
func (r *WalletResult) Problems() []string {
	var out []string
	if r.Err != nil {
		out = append(out, fmt.Sprintf("%s: verification failed: %v", r.WalletID, r.Err))
	}
	for _, k := range r.Missing {
		out = append(out, fmt.Sprintf("%s %s: missing from store", r.WalletID, k))
	}
	for _, k := range r.Extra {
		out = append(out, fmt.Sprintf("%s %s: not produced by rebuild", r.WalletID, k))
	}
	for _, d := range append(append([]LotDivergence(nil), r.Divergent...), r.Positions...) {
		for _, f := range d.Divergences {
			out = append(out, fmt.Sprintf("%s %s: %s stored=%v rebuilt=%v", r.WalletID, d.Key, f.Field, f.Expected, f.Actual))
		}
	}
	return out
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalWallets     int
	MatchedWallets   int
	DivergentWallets int
	Results          []WalletResult
}

// Problems collects every wallet's problems in result order.
func (r *VerificationReport) Problems() []string {
	var out []string
	for i := range r.Results {
		out = append(out, r.Results[i].Problems()...)
	}
	return out
}

// Verifier interface for ledger verification.
type Verifier interface {
	// VerifyWallet rebuilds the wallet from its trades and compares the
	// result with the stored closed lots and open positions.
	VerifyWallet(ctx context.Context, walletID string) (*WalletResult, error)

	// VerifyAll verifies every wallet with trades.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// CompareClosedLots compares two closed lots and returns divergences.
// Uses FloatTolerance for float64 comparisons.
func CompareClosedLots(stored, rebuilt *domain.ClosedLot) []FieldDivergence {
	var d divergences

	d.str("ID", stored.ID, rebuilt.ID)
	d.float("Quantity", stored.Quantity, rebuilt.Quantity)
	d.floatPtr("EntryPrice", stored.EntryPrice, rebuilt.EntryPrice)
	d.intPtr("EntryTime", stored.EntryTime, rebuilt.EntryTime)
	d.float("ExitPrice", stored.ExitPrice, rebuilt.ExitPrice)
	if stored.ExitTime != rebuilt.ExitTime {
		d.add("ExitTime", stored.ExitTime, rebuilt.ExitTime)
	}
	d.floatPtr("CostBasis", stored.CostBasis, rebuilt.CostBasis)
	d.float("Proceeds", stored.Proceeds, rebuilt.Proceeds)
	d.float("RealizedPnL", stored.RealizedPnL, rebuilt.RealizedPnL)
	d.floatPtr("RealizedPnLPct", stored.RealizedPnLPct, rebuilt.RealizedPnLPct)
	d.intPtr("HoldDurationMs", stored.HoldDurationMs, rebuilt.HoldDurationMs)
	d.strPtr("BuyTradeID", stored.BuyTradeID, rebuilt.BuyTradeID)
	d.str("SellTradeID", stored.SellTradeID, rebuilt.SellTradeID)
	if stored.IsPreHistory != rebuilt.IsPreHistory {
		d.add("IsPreHistory", stored.IsPreHistory, rebuilt.IsPreHistory)
	}
	d.str("ExitValuation", string(stored.ExitValuation), string(rebuilt.ExitValuation))

	return d
}

// CompareOpenPositions compares the aggregate fields of two positions.
func CompareOpenPositions(stored, rebuilt *domain.OpenPosition) []FieldDivergence {
	var d divergences

	d.float("Quantity", stored.Quantity, rebuilt.Quantity)
	d.float("CostBasis", stored.CostBasis, rebuilt.CostBasis)
	d.float("AvgUnitCost", stored.AvgUnitCost, rebuilt.AvgUnitCost)
	if len(stored.Lots) != len(rebuilt.Lots) {
		d.add("Lots", len(stored.Lots), len(rebuilt.Lots))
	}
	if stored.LastTradeTime != rebuilt.LastTradeTime {
		d.add("LastTradeTime", stored.LastTradeTime, rebuilt.LastTradeTime)
	}

	return d
}

type divergences []FieldDivergence

func (d *divergences) add(field string, expected, actual any) {
	*d = append(*d, FieldDivergence{Field: field, Expected: expected, Actual: actual})
}

func (d *divergences) str(field, expected, actual string) {
	if expected != actual {
		d.add(field, expected, actual)
	}
}

func (d *divergences) float(field string, expected, actual float64) {
	if !floatEquals(expected, actual) {
		d.add(field, expected, actual)
	}
}

func (d *divergences) floatPtr(field string, expected, actual *float64) {
	if !floatPtrEquals(expected, actual) {
		d.add(field, deref(expected), deref(actual))
	}
}

func (d *divergences) intPtr(field string, expected, actual *int64) {
	if (expected == nil) != (actual == nil) || (expected != nil && *expected != *actual) {
		d.add(field, deref(expected), deref(actual))
	}
}

func (d *divergences) strPtr(field string, expected, actual *string) {
	if (expected == nil) != (actual == nil) || (expected != nil && *expected != *actual) {
		d.add(field, deref(expected), deref(actual))
	}
}

// deref renders nil as nil rather than a typed nil pointer.
func deref[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

// floatPtrEquals compares two *float64 values within FloatTolerance.
// Returns true if both are nil, or both are non-nil and equal.
func floatPtrEquals(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return floatEquals(*a, *b)
}
