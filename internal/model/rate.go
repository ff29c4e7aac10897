package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is a persisted conversion rate between two currencies.
// The newest row per (from, to) pair warm-starts the in-memory rate cache
// after a restart, pre-marked stale until refreshed.
type ExchangeRate struct {
	ID           string          `json:"id"`
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
	Rate         decimal.Decimal `json:"rate"`
	FetchedAt    time.Time       `json:"fetchedAt"`
}
