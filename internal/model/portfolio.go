package model

import (
	"github.com/shopspring/decimal"

	"github.com/meridianadvisory/portfolio-engine/internal/money"
)

// Portfolio represents a portfolio from the database.
// DisplayCurrency comes from the owner's profile and is required: the engine
// never infers or defaults it.
type Portfolio struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	DisplayCurrency string `json:"displayCurrency"`
	IsArchived      bool   `json:"isArchived"`
}

// PortfolioFilter for querying portfolios.
type PortfolioFilter struct {
	IncludeArchived bool
}

// PortfolioTotals aggregates a portfolio's holdings in the owner's display
// currency. Totals are a projection recomputed from holding snapshots after
// every holdings-affecting event; they are never stored as source of truth.
type PortfolioTotals struct {
	DisplayCurrency      string          `json:"displayCurrency"`
	TotalValue           money.Amount    `json:"totalValue"`
	TotalCost            money.Amount    `json:"totalCost"`
	TotalGainLoss        money.Amount    `json:"totalGainLoss"`
	TotalGainLossPercent decimal.Decimal `json:"totalGainLossPercent"`

	// Degraded reports how many holdings were valuated from stale or
	// unavailable provider data.
	Degraded int `json:"degraded,omitempty"`
}

// PortfolioSummary is the presentation contract for one portfolio: its
// valuated holdings plus the aggregated totals.
type PortfolioSummary struct {
	Portfolio Portfolio         `json:"portfolio"`
	Holdings  []ValuatedHolding `json:"holdings"`
	Totals    PortfolioTotals   `json:"totals"`
}
