package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianadvisory/portfolio-engine/internal/money"
)

// HoldingState is the derived cost-basis state for one (portfolio, symbol)
// pair under weighted-average accounting. It is owned exclusively by the
// ledger: it is recomputed either by full replay over the symbol's
// transactions or incrementally from the prior state plus one new
// transaction, and both paths must produce identical results.
//
// A holding whose quantity reaches exactly zero after a sell is deleted, not
// retained with a zero state.
type HoldingState struct {
	PortfolioID    string          `json:"portfolioId"`
	Symbol         string          `json:"symbol"`
	Quantity       decimal.Decimal `json:"quantity"`
	TotalCost      money.Amount    `json:"totalCost"`
	NativeCurrency string          `json:"nativeCurrency"`
	UpdatedAt      time.Time       `json:"updatedAt,omitempty"`
}

// AverageCost returns totalCost / quantity, or zero when nothing is held.
func (h HoldingState) AverageCost() money.Amount {
	if h.Quantity.IsZero() {
		return money.Zero(h.NativeCurrency)
	}
	return h.TotalCost.DivQuantity(h.Quantity)
}

// Empty reports whether the state represents no position at all.
func (h HoldingState) Empty() bool {
	return h.Quantity.IsZero() && h.TotalCost.IsZero()
}

// ValuatedHolding is a point-in-time valuation snapshot for one holding, in
// both its native currency and the portfolio owner's display currency.
// It is ephemeral: recomputed on demand, never authoritative.
type ValuatedHolding struct {
	PortfolioID    string          `json:"portfolioId"`
	Symbol         string          `json:"symbol"`
	Quantity       decimal.Decimal `json:"quantity"`
	NativeCurrency string          `json:"nativeCurrency"`

	AverageCost     money.Amount    `json:"averageCost"`
	TotalCost       money.Amount    `json:"totalCost"`
	CurrentPrice    money.Amount    `json:"currentPrice"`
	CurrentValue    money.Amount    `json:"currentValue"`
	GainLoss        money.Amount    `json:"gainLoss"`
	GainLossPercent decimal.Decimal `json:"gainLossPercent"`

	// Converted figures in the owner's display currency. Absent (zero with
	// ConversionUnavailable set) when no rate could be resolved.
	DisplayCurrency       string       `json:"displayCurrency,omitempty"`
	AverageCostConverted  money.Amount `json:"averageCostConverted"`
	TotalCostConverted    money.Amount `json:"totalCostConverted"`
	CurrentPriceConverted money.Amount `json:"currentPriceConverted"`
	CurrentValueConverted money.Amount `json:"currentValueConverted"`
	GainLossConverted     money.Amount `json:"gainLossConverted"`

	// Degradation flags. Stale data is a data-quality signal, not an error.
	QuoteStale            bool      `json:"quoteStale,omitempty"`
	RateStale             bool      `json:"rateStale,omitempty"`
	ConversionUnavailable bool      `json:"conversionUnavailable,omitempty"`
	PricedAt              time.Time `json:"pricedAt,omitempty"`
}
