package domain

// OpenLot is an unconsumed quantity of an asset acquired by a single buy.
type OpenLot struct {
	AssetID     string        `json:"assetId"`
	LotSequence int64         `json:"lotSequence"` // FIFO order among lots with equal EntryTime
	Remaining   float64       `json:"remaining"`
	UnitCost    float64       `json:"unitCost"` // base per token
	EntryTime   int64         `json:"entryTime"`
	BuyTradeID  string        `json:"buyTradeId"`
	Valuation   ValuationKind `json:"valuation"`
}

// OpenPosition is the residual FIFO queue for one (wallet, asset).
// Corresponds to open_positions table in PostgreSQL.
type OpenPosition struct {
	WalletID      string    `json:"walletId"`
	AssetID       string    `json:"assetId"`
	Lots          []OpenLot `json:"lots"` // FIFO order, front is consumed first
	Quantity      float64   `json:"quantity"`
	CostBasis     float64   `json:"costBasis"`
	AvgUnitCost   float64   `json:"avgUnitCost"`
	LastTradeTime int64     `json:"lastTradeTime"`
}

// ClosedLot is a matched slice of a sell against a buy lot, or the
// unmatched remainder of a sell (pre-history).
// Corresponds to closed_lots table in PostgreSQL.
type ClosedLot struct {
	ID             string   `json:"id"` // SHA256(wallet|asset|sequence)
	WalletID       string   `json:"walletId"`
	AssetID        string   `json:"assetId"`
	Sequence       int64    `json:"sequence"` // per (wallet, asset), starts at 1
	Quantity       float64  `json:"quantity"`
	EntryPrice     *float64 `json:"entryPrice"` // nil for pre-history
	EntryTime      *int64   `json:"entryTime"`  // nil for pre-history
	ExitPrice      float64  `json:"exitPrice"`
	ExitTime       int64    `json:"exitTime"`
	CostBasis      *float64 `json:"costBasis"` // nil when unknown (pre-history)
	Proceeds       float64  `json:"proceeds"`
	RealizedPnL    float64  `json:"realizedPnl"`
	RealizedPnLPct *float64 `json:"realizedPnlPct"` // nil when cost basis unknown or zero
	HoldDurationMs *int64   `json:"holdDurationMs"`
	BuyTradeID     *string  `json:"buyTradeId"`
	SellTradeID    string   `json:"sellTradeId"`
	IsPreHistory   bool     `json:"isPreHistory"`

	EntryValuation ValuationKind `json:"entryValuation,omitempty"`
	ExitValuation  ValuationKind `json:"exitValuation"`
}

// HasKnownCost reports whether the lot carries a positive cost basis.
func (l *ClosedLot) HasKnownCost() bool {
	return l.CostBasis != nil && *l.CostBasis > 0
}
