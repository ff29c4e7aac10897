package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/meridianadvisory/portfolio-engine/internal/model"
	"github.com/meridianadvisory/portfolio-engine/internal/money"
)

// Aggregate sums a portfolio's valuated holdings into portfolio-level totals
// in the owner's display currency. Each holding has already resolved its own
// native→display rate, since holdings can carry different native currencies.
//
// A holding whose converted value is absent (quote never available)
// contributes its converted cost instead. A holding with no conversion at
// all is excluded from the sums and counted as degraded: mixing currencies
// in one total would be worse than under-reporting with a flag.
//
// A portfolio with zero holdings yields all-zero totals, not an error.
// Aggregation is pure: the same snapshots always produce the same totals.
func Aggregate(displayCurrency string, holdings []model.ValuatedHolding) model.PortfolioTotals {
	totalCost := money.Zero(displayCurrency)
	totalValue := money.Zero(displayCurrency)
	degraded := 0

	for _, h := range holdings {
		if h.QuoteStale || h.RateStale || h.ConversionUnavailable {
			degraded++
		}
		if h.ConversionUnavailable {
			continue
		}

		totalCost = totalCost.Add(h.TotalCostConverted)

		value := h.CurrentValueConverted
		if h.QuoteStale && value.IsZero() {
			value = h.TotalCostConverted
		}
		totalValue = totalValue.Add(value)
	}

	totalGainLoss := totalValue.Sub(totalCost)
	totalGainLossPercent := decimal.Zero
	if totalCost.IsPositive() {
		totalGainLossPercent = totalGainLoss.Decimal().Div(totalCost.Decimal()).Mul(hundred)
	}

	return model.PortfolioTotals{
		DisplayCurrency:      displayCurrency,
		TotalValue:           totalValue,
		TotalCost:            totalCost,
		TotalGainLoss:        totalGainLoss,
		TotalGainLossPercent: totalGainLossPercent,
		Degraded:             degraded,
	}
}
