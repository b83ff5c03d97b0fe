package domain

// PriceTimeseriesPoint is an asset price observation in base currency.
// Corresponds to price_timeseries table in ClickHouse.
type PriceTimeseriesPoint struct {
	AssetID     string  `json:"assetId"`     // token mint
	TimestampMs int64   `json:"timestampMs"` // Unix timestamp in milliseconds
	Price       float64 `json:"price"`       // base per token
	Volume      float64 `json:"volume"`      // base-currency volume behind the observation
	Source      string  `json:"source"`      // feed name
}
