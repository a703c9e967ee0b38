package domain

import "math/big"

// PriceSource tells where a price point came from.
type PriceSource string

const (
	// PriceSourceContract points come from getPriceHistory.
	PriceSourceContract PriceSource = "contract"
	// PriceSourceObserved points are recorded by the ingestion poller.
	PriceSourceObserved PriceSource = "observed"
	// PriceSourceSynthetic points are a display placeholder derived from the current price.
	PriceSourceSynthetic PriceSource = "synthetic"
)

// PricePoint is one entry of a token's price series.
// Corresponds to price_history table in ClickHouse.
type PricePoint struct {
	Token       string      // token address (checksummed hex)
	TimestampMs int64       // Unix timestamp in milliseconds
	Price       float64     // reserve per token
	Source      PriceSource // origin of the point
}

// ChartPoint is a presentation-ready price point.
type ChartPoint struct {
	Date        string  `json:"date"`
	TimestampMs int64   `json:"timestampMs"`
	Price       float64 `json:"price"`
}

// Chart is a price series with its origin.
type Chart struct {
	Token  string       `json:"token"`
	Source PriceSource  `json:"source"`
	Points []ChartPoint `json:"points"`
}

// RawPricePoint is one getPriceHistory entry as returned by the contract.
type RawPricePoint struct {
	Timestamp *big.Int // seconds
	Price     *big.Int // scaled by 1e18
}
