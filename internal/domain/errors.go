package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTrade is matched by every *ValidationError.
	ErrInvalidTrade = errors.New("invalid trade")

	// ErrDependency is matched by every *DependencyError.
	ErrDependency = errors.New("dependency unavailable")

	// ErrConcurrencyConflict is returned when a pass for the same wallet is
	// already in flight.
	ErrConcurrencyConflict = errors.New("concurrent pass in progress")

	// ErrLockHeld is returned by LockManager.Acquire when the key is taken.
	ErrLockHeld = errors.New("lock already held")

	// ErrPriceUnavailable is returned by a PriceOracle with no data at or
	// before the requested time.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrCacheMiss is returned by PriceCache for absent keys.
	ErrCacheMiss = errors.New("cache miss")
)

// ValidationError rejects a single malformed trade. Matching continues
// with the remaining trades.
type ValidationError struct {
	TradeID string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid trade %s: %s: %s", e.TradeID, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidTrade
}

// InsufficientHistory is a warning, not an error: a sell consumed more than
// the known open lots and the excess was emitted as a pre-history lot.
type InsufficientHistory struct {
	WalletID          string
	AssetID           string
	SellTradeID       string
	Timestamp         int64
	UnmatchedQuantity float64
}

func (w InsufficientHistory) String() string {
	return fmt.Sprintf("insufficient history for %s/%s: sell %s left %g unmatched",
		w.WalletID, w.AssetID, w.SellTradeID, w.UnmatchedQuantity)
}

// DependencyError aborts a wallet pass because an external collaborator
// (trade source, store, oracle) failed.
type DependencyError struct {
	Dependency string // "trade_source", "ledger_store", "price_oracle", ...
	Op         string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Dependency, e.Op, e.Err)
}

func (e *DependencyError) Unwrap() []error {
	return []error{ErrDependency, e.Err}
}

// NewDependencyError wraps err. Returns nil for a nil err.
func NewDependencyError(dependency, op string, err error) error {
	if err == nil {
		return nil
	}
	return &DependencyError{Dependency: dependency, Op: op, Err: err}
}
