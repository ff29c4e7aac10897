// Package valuation turns cost-basis state into point-in-time valuations and
// aggregates them into portfolio totals. Everything here is a projection:
// recomputing from the same inputs always yields the same outputs, and
// nothing in this package is ever persisted as authoritative state.
package valuation

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/fx"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
	"github.com/meridianadvisory/portfolio-engine/internal/money"
)

var hundred = decimal.NewFromInt(100)

// RateSource resolves a conversion rate between two currency codes.
// Satisfied by *fx.Cache.
type RateSource interface {
	GetRate(ctx context.Context, from, to string) (fx.Rate, error)
}

// Valuator combines a holding's cost basis with a market price and an
// exchange rate into a ValuatedHolding.
type Valuator struct {
	rates RateSource
	log   zerolog.Logger
}

// NewValuator creates a Valuator using the given rate source.
func NewValuator(rates RateSource, log zerolog.Logger) *Valuator {
	return &Valuator{rates: rates, log: log}
}

// Valuate produces the valuation snapshot for one holding in its native
// currency and in the owner's display currency.
//
// quote is the freshest price available; quoteStale marks it as a persisted
// leftover because the live fetch failed. The valuator never fabricates a
// price: a stale quote reproduces the prior valuation unchanged (valuation
// is a pure projection of state and price), and a nil quote produces a
// cost-only snapshot. Both cases attach the ErrStaleQuote advisory so the
// caller can report the degradation; neither is a failure.
//
// A rate failure likewise degrades rather than fails: native-currency
// figures are still produced, flagged ConversionUnavailable, with the
// ErrRateUnavailable advisory attached.
func (v *Valuator) Valuate(ctx context.Context, state model.HoldingState, quote *model.Quote, quoteStale bool, displayCurrency string) (model.ValuatedHolding, error) {
	if displayCurrency == "" {
		return model.ValuatedHolding{}, apperrors.ErrMissingDisplayCurrency
	}

	if quote == nil {
		holding, err := v.costOnly(ctx, state, displayCurrency)
		holding.QuoteStale = true
		if err != nil {
			return holding, err
		}
		v.log.Warn().
			Str("portfolio_id", state.PortfolioID).
			Str("symbol", state.Symbol).
			Msg("no price has ever been recorded, valuation is cost-only")
		return holding, apperrors.ErrStaleQuote
	}

	price := money.New(quote.Price, quote.Currency)
	holding, err := v.valuate(ctx, state, price, displayCurrency)
	holding.PricedAt = quote.AsOf
	holding.QuoteStale = quoteStale
	if err != nil {
		return holding, err
	}
	if quoteStale {
		v.log.Warn().
			Str("portfolio_id", state.PortfolioID).
			Str("symbol", state.Symbol).
			Time("priced_at", quote.AsOf).
			Msg("no current price, valuation uses last persisted quote")
		return holding, apperrors.ErrStaleQuote
	}
	return holding, nil
}

// costOnly builds a snapshot with neither price nor gain figures, for a
// holding that has never been priced. The aggregator falls back to converted
// cost for its value contribution.
func (v *Valuator) costOnly(ctx context.Context, state model.HoldingState, displayCurrency string) (model.ValuatedHolding, error) {
	holding := model.ValuatedHolding{
		PortfolioID:     state.PortfolioID,
		Symbol:          state.Symbol,
		Quantity:        state.Quantity,
		NativeCurrency:  state.NativeCurrency,
		AverageCost:     state.AverageCost(),
		TotalCost:       state.TotalCost,
		CurrentPrice:    money.Zero(state.NativeCurrency),
		CurrentValue:    money.Zero(state.NativeCurrency),
		GainLoss:        money.Zero(state.NativeCurrency),
		GainLossPercent: decimal.Zero,
		DisplayCurrency: displayCurrency,
	}

	rate, err := v.rates.GetRate(ctx, state.NativeCurrency, displayCurrency)
	if err != nil {
		holding.ConversionUnavailable = true
		return holding, apperrors.ErrRateUnavailable
	}
	holding.RateStale = rate.Stale
	holding.AverageCostConverted = holding.AverageCost.MulRate(rate.Value, displayCurrency)
	holding.TotalCostConverted = holding.TotalCost.MulRate(rate.Value, displayCurrency)
	return holding, nil
}

func (v *Valuator) valuate(ctx context.Context, state model.HoldingState, currentPrice money.Amount, displayCurrency string) (model.ValuatedHolding, error) {
	currentValue := currentPrice.MulQuantity(state.Quantity)
	gainLoss := currentValue.Sub(state.TotalCost)

	gainLossPercent := decimal.Zero
	if state.TotalCost.IsPositive() {
		gainLossPercent = gainLoss.Decimal().Div(state.TotalCost.Decimal()).Mul(hundred)
	}

	holding := model.ValuatedHolding{
		PortfolioID:     state.PortfolioID,
		Symbol:          state.Symbol,
		Quantity:        state.Quantity,
		NativeCurrency:  state.NativeCurrency,
		AverageCost:     state.AverageCost(),
		TotalCost:       state.TotalCost,
		CurrentPrice:    currentPrice,
		CurrentValue:    currentValue,
		GainLoss:        gainLoss,
		GainLossPercent: gainLossPercent,
		DisplayCurrency: displayCurrency,
	}

	rate, err := v.rates.GetRate(ctx, state.NativeCurrency, displayCurrency)
	if err != nil {
		holding.ConversionUnavailable = true
		v.log.Warn().
			Str("portfolio_id", state.PortfolioID).
			Str("symbol", state.Symbol).
			Str("native", state.NativeCurrency).
			Str("display", displayCurrency).
			Msg("no exchange rate, valuation limited to native currency")
		return holding, apperrors.ErrRateUnavailable
	}

	// Each converted figure is its native value at the resolved rate.
	// gainLossPercent is a ratio of same-currency quantities and therefore
	// scale-free: it is copied, never re-derived from converted figures.
	holding.RateStale = rate.Stale
	holding.AverageCostConverted = holding.AverageCost.MulRate(rate.Value, displayCurrency)
	holding.TotalCostConverted = holding.TotalCost.MulRate(rate.Value, displayCurrency)
	holding.CurrentPriceConverted = holding.CurrentPrice.MulRate(rate.Value, displayCurrency)
	holding.CurrentValueConverted = holding.CurrentValue.MulRate(rate.Value, displayCurrency)
	holding.GainLossConverted = holding.GainLoss.MulRate(rate.Value, displayCurrency)

	return holding, nil
}
