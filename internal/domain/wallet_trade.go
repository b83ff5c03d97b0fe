package domain

// Side is the direction of a wallet trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
	// SideVoid marks a non-trading transfer (e.g. liquidity provisioning).
	// Void trades are excluded from matching and metrics.
	SideVoid Side = "void"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	switch s {
	case SideBuy, SideSell, SideVoid:
		return true
	}
	return false
}

// ValuationKind identifies how a trade's base-currency amount was obtained.
type ValuationKind string

const (
	// ValuationOnChain: amount read from the swap itself.
	ValuationOnChain ValuationKind = "ONCHAIN"
	// ValuationOracleFallback: amount derived from the price oracle.
	ValuationOracleFallback ValuationKind = "ORACLE_FALLBACK"
	// ValuationStablecoinPegged: amount taken 1:1 from a stablecoin leg.
	ValuationStablecoinPegged ValuationKind = "STABLECOIN_PEGGED"
)

// Valid reports whether k is a known valuation kind. The empty kind is
// accepted and treated as ValuationOnChain.
func (k ValuationKind) Valid() bool {
	switch k {
	case "", ValuationOnChain, ValuationOracleFallback, ValuationStablecoinPegged:
		return true
	}
	return false
}

// Normalize returns ValuationOnChain for the empty kind.
func (k ValuationKind) Normalize() ValuationKind {
	if k == "" {
		return ValuationOnChain
	}
	return k
}

// Provenance records where a trade's valuation came from.
type Provenance struct {
	Kind         ValuationKind `json:"kind"`
	BaseCurrency string        `json:"baseCurrency,omitempty"` // SOL, USDC, ...
	Source       string        `json:"source,omitempty"`       // oracle or pricing source name
}

// Trade is an immutable wallet trade fact.
// Corresponds to trades table in PostgreSQL.
type Trade struct {
	ID          string     `json:"id"` // transaction signature key
	WalletID    string     `json:"walletId"`
	AssetID     string     `json:"assetId"` // token mint
	Side        Side       `json:"side"`
	TokenAmount float64    `json:"tokenAmount"`          // token quantity
	BaseAmount  float64    `json:"baseAmount,omitempty"` // base-currency quantity (0 = unknown)
	Price       float64    `json:"price,omitempty"`      // base per token (0 = unknown)
	Timestamp   int64      `json:"timestamp"`            // Unix ms
	Sequence    int64      `json:"sequence"`             // ingestion sequence, tie-breaker for equal timestamps
	Venue       string     `json:"venue,omitempty"`
	Provenance  Provenance `json:"provenance"`
	DeletedAt   *int64     `json:"deletedAt,omitempty"` // soft delete marker
}

// TradeFilter narrows a trade source query.
type TradeFilter struct {
	AssetID string // empty = all assets
	Since   *int64 // inclusive lower bound on Timestamp
}

// Correction is an audited change to a stored trade.
// Corresponds to trade_corrections table in PostgreSQL.
type Correction struct {
	ID        string
	TradeID   string
	WalletID  string
	FromSide  Side
	ToSide    Side
	Reason    string
	Actor     string
	AppliedAt int64 // Unix ms
}
