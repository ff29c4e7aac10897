// Package ledger implements weighted-average cost-basis accounting for
// portfolio holdings. It maintains HoldingState per (portfolio, symbol) as
// transactions arrive, either incrementally (the live path) or by full replay
// (repair and audit). The two paths must produce identical results, which is
// why every mutation funnels through the same pure Apply functions.
package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
	"github.com/meridianadvisory/portfolio-engine/internal/money"
)

// NewState returns the empty state for a (portfolio, symbol) pair, the
// starting point for replay.
func NewState(portfolioID, symbol string) model.HoldingState {
	return model.HoldingState{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Quantity:    decimal.Zero,
	}
}

// ApplyBuy folds one purchase into the holding state.
//
// The new total cost is the prior cost plus quantity*unitPrice plus fees, and
// the average cost is recomputed from the blended totals (weighted-average
// accounting, not lot matching). The first buy of a brand-new holding
// establishes its native currency; any later buy in a different currency is
// rejected with CurrencyMismatchError.
func ApplyBuy(state model.HoldingState, quantity decimal.Decimal, unitPrice, fees money.Amount) (model.HoldingState, error) {
	if !quantity.IsPositive() {
		return state, fmt.Errorf("buy quantity must be positive, got %s", quantity)
	}
	if !unitPrice.SameCurrency(fees) {
		return state, &apperrors.CurrencyMismatchError{
			Symbol:              state.Symbol,
			HoldingCurrency:     unitPrice.Currency(),
			TransactionCurrency: fees.Currency(),
		}
	}
	if state.NativeCurrency != "" && state.NativeCurrency != unitPrice.Currency() {
		return state, &apperrors.CurrencyMismatchError{
			Symbol:              state.Symbol,
			HoldingCurrency:     state.NativeCurrency,
			TransactionCurrency: unitPrice.Currency(),
		}
	}

	currency := state.NativeCurrency
	if currency == "" {
		currency = unitPrice.Currency()
		state.TotalCost = money.Zero(currency)
	}

	state.TotalCost = state.TotalCost.Add(unitPrice.MulQuantity(quantity)).Add(fees)
	state.Quantity = state.Quantity.Add(quantity)
	state.NativeCurrency = currency
	return state, nil
}

// ApplySell folds one sale into the holding state.
//
// Cost basis is reduced proportionally: selling k of n units removes k/n of
// the total cost, leaving the remaining shares' average cost unchanged.
// Selling more than is held returns OverdraftError and leaves the state
// untouched; quantity can never go negative.
func ApplySell(state model.HoldingState, quantity decimal.Decimal) (model.HoldingState, error) {
	if !quantity.IsPositive() {
		return state, fmt.Errorf("sell quantity must be positive, got %s", quantity)
	}
	if quantity.GreaterThan(state.Quantity) {
		return state, &apperrors.OverdraftError{
			Symbol:    state.Symbol,
			Requested: quantity,
			Held:      state.Quantity,
		}
	}

	remaining := state.Quantity.Sub(quantity)
	if remaining.IsZero() {
		// Full liquidation: the holding is removed rather than retained at
		// zero, and a later buy re-establishes the native currency from
		// scratch. Clearing the currency here keeps replay identical to the
		// incremental delete-then-recreate path.
		state.Quantity = decimal.Zero
		state.TotalCost = money.Amount{}
		state.NativeCurrency = ""
		return state, nil
	}

	costRemoved := state.TotalCost.MulQuantity(quantity).DivQuantity(state.Quantity)
	state.TotalCost = state.TotalCost.Sub(costRemoved)
	state.Quantity = remaining
	return state, nil
}

// Apply folds a single transaction into the state. Dividends are skipped for
// cost-basis purposes: they change neither quantity nor cost.
func Apply(state model.HoldingState, tx model.Transaction) (model.HoldingState, error) {
	switch tx.Kind {
	case model.KindBuy:
		return ApplyBuy(state, tx.Quantity, tx.UnitPrice, tx.Fees)
	case model.KindSell:
		return ApplySell(state, tx.Quantity)
	case model.KindDividend:
		return state, nil
	default:
		return state, fmt.Errorf("unknown transaction kind %q", tx.Kind)
	}
}

// Replay rebuilds the holding state for one symbol from scratch by folding
// Apply over all of its transactions in (occurredAt, insertion) order.
// Replay over a full history must reproduce exactly the state reached by
// incremental application; recompute-from-scratch is the repair/audit path
// and the equivalence is what makes repair safe.
func Replay(portfolioID, symbol string, txs []model.Transaction) (model.HoldingState, error) {
	ordered := make([]model.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].OccurredAt.Equal(ordered[j].OccurredAt) {
			return ordered[i].OccurredAt.Before(ordered[j].OccurredAt)
		}
		return ordered[i].Seq < ordered[j].Seq
	})

	state := NewState(portfolioID, symbol)
	for _, tx := range ordered {
		next, err := Apply(state, tx)
		if err != nil {
			return state, fmt.Errorf("replay %s/%s at transaction %s: %w",
				portfolioID, symbol, tx.ID, err)
		}
		state = next
	}
	return state, nil
}
