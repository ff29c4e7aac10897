package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the latest known market price for a symbol, in the symbol's
// native currency. Persisted quotes serve as the fallback valuation source
// when the market-data provider is unavailable.
type Quote struct {
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	AsOf     time.Time       `json:"asOf"`
}
