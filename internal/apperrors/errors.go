// Package apperrors defines the error taxonomy shared across the engine,
// services, and HTTP layer.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrPortfolioNotFound indicates that a portfolio with the given ID does not exist.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrHoldingNotFound indicates that no holding exists for the given portfolio and symbol.
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrQuoteNotFound indicates that no price is available for a symbol.
	ErrQuoteNotFound = errors.New("quote not found")

	// ErrSettingNotFound indicates that a system setting has not been configured.
	ErrSettingNotFound = errors.New("setting not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrEmptyID indicates that a required ID parameter is empty or missing.
	ErrEmptyID = errors.New("ID cannot be empty")

	// ErrInvalidCurrency indicates an unknown or missing ISO 4217 currency code.
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrMissingDisplayCurrency indicates the portfolio owner has no display
	// currency configured. The engine never infers one.
	ErrMissingDisplayCurrency = errors.New("display currency not set")
)

// Data-provider degradation errors. These are advisory: valuation recovers
// through fallback data and surfaces them as flags, never as hard failures.
var (
	// ErrRateUnavailable indicates the rate provider failed and no cached
	// rate exists for the requested currency pair, not even a stale one.
	ErrRateUnavailable = errors.New("exchange rate unavailable")

	// ErrStaleQuote indicates no current price could be fetched for a symbol;
	// the last persisted valuation was returned instead.
	ErrStaleQuote = errors.New("current price unavailable, valuation is stale")
)

// Operation failure errors represent system-level failures when retrieving or
// processing data.
var (
	ErrFailedToRetrievePortfolios   = errors.New("failed to retrieve portfolios")
	ErrFailedToRetrieveHoldings     = errors.New("failed to retrieve holdings")
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToRetrieveTransaction  = errors.New("failed to retrieve transaction")
	ErrFailedToGetPortfolioSummary  = errors.New("failed to get portfolio summary")
	ErrFailedToRebuildHoldings      = errors.New("failed to rebuild holdings")
	ErrFailedToGetVersionInfo       = errors.New("failed to get version information")
)

// OverdraftError rejects a sell whose quantity exceeds the held quantity.
// The transaction is never persisted and never retried; quantity must not go
// negative under any code path.
type OverdraftError struct {
	Symbol    string
	Requested decimal.Decimal
	Held      decimal.Decimal
}

func (e *OverdraftError) Error() string {
	return fmt.Sprintf("sell of %s %s exceeds held quantity %s",
		e.Requested, e.Symbol, e.Held)
}

// CurrencyMismatchError rejects a buy denominated in a currency other than
// the holding's native currency. The native currency is fixed at first
// purchase; no implicit conversion is performed.
type CurrencyMismatchError struct {
	Symbol              string
	HoldingCurrency     string
	TransactionCurrency string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("transaction currency %s does not match %s holding currency %s",
		e.TransactionCurrency, e.Symbol, e.HoldingCurrency)
}
