package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridianadvisory/portfolio-engine/internal/model"
	"github.com/meridianadvisory/portfolio-engine/internal/money"
	"github.com/meridianadvisory/portfolio-engine/internal/repository"
)

// MakeID generates a fresh UUID string for test entities.
func MakeID() string {
	return uuid.New().String()
}

// Dec parses a decimal literal, failing loudly on typos in test data.
func Dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("testutil: bad decimal literal " + s)
	}
	return d
}

// PortfolioBuilder provides a fluent interface for creating test portfolios.
//
// Example usage:
//
//	// Simple creation with defaults
//	portfolio := testutil.NewPortfolio().Build(t, db)
//
//	// Customized portfolio
//	portfolio := testutil.NewPortfolio().
//	    WithName("Custom Portfolio").
//	    WithDisplayCurrency("ZAR").
//	    Build(t, db)
type PortfolioBuilder struct {
	ID              string
	Name            string
	Description     string
	DisplayCurrency string
	IsArchived      bool
}

// NewPortfolio creates a PortfolioBuilder with sensible defaults.
func NewPortfolio() *PortfolioBuilder {
	return &PortfolioBuilder{
		ID:              MakeID(),
		Name:            "Test Portfolio",
		Description:     "Test description",
		DisplayCurrency: "USD",
	}
}

// WithID sets a custom ID.
func (b *PortfolioBuilder) WithID(id string) *PortfolioBuilder {
	b.ID = id
	return b
}

// WithName sets a custom name.
func (b *PortfolioBuilder) WithName(name string) *PortfolioBuilder {
	b.Name = name
	return b
}

// WithDisplayCurrency sets the owner's display currency.
func (b *PortfolioBuilder) WithDisplayCurrency(currency string) *PortfolioBuilder {
	b.DisplayCurrency = currency
	return b
}

// Archived marks the portfolio as archived.
func (b *PortfolioBuilder) Archived() *PortfolioBuilder {
	b.IsArchived = true
	return b
}

// Build inserts the portfolio into the database and returns the model.
func (b *PortfolioBuilder) Build(t *testing.T, db *sql.DB) model.Portfolio {
	t.Helper()

	p := model.Portfolio{
		ID:              b.ID,
		Name:            b.Name,
		Description:     b.Description,
		DisplayCurrency: b.DisplayCurrency,
		IsArchived:      b.IsArchived,
	}

	if err := repository.NewPortfolioRepository(db).CreatePortfolio(p); err != nil {
		t.Fatalf("Failed to insert test portfolio: %v", err)
	}

	return p
}

// TransactionBuilder provides a fluent interface for building test
// transactions. Built transactions are submitted through the transaction
// service (the only write path), so Build returns the model unpersisted.
//
// Example usage:
//
//	tx := testutil.NewBuy(portfolio.ID, "AAPL").
//	    WithQuantity("10").
//	    WithUnitPrice("100", "USD").
//	    Build()
type TransactionBuilder struct {
	PortfolioID string
	Symbol      string
	Kind        model.TransactionKind
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Fees        decimal.Decimal
	Currency    string
	OccurredAt  time.Time
}

// NewBuy creates a TransactionBuilder for a buy with sensible defaults.
func NewBuy(portfolioID, symbol string) *TransactionBuilder {
	return &TransactionBuilder{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Kind:        model.KindBuy,
		Quantity:    Dec("10"),
		UnitPrice:   Dec("100"),
		Fees:        decimal.Zero,
		Currency:    "USD",
		OccurredAt:  time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC),
	}
}

// NewSell creates a TransactionBuilder for a sell with sensible defaults.
func NewSell(portfolioID, symbol string) *TransactionBuilder {
	b := NewBuy(portfolioID, symbol)
	b.Kind = model.KindSell
	b.Quantity = Dec("5")
	return b
}

// NewDividend creates a TransactionBuilder for a dividend with sensible defaults.
func NewDividend(portfolioID, symbol string) *TransactionBuilder {
	b := NewBuy(portfolioID, symbol)
	b.Kind = model.KindDividend
	b.Quantity = Dec("1")
	b.UnitPrice = Dec("0.50")
	return b
}

// WithQuantity sets the transaction quantity from a decimal literal.
func (b *TransactionBuilder) WithQuantity(quantity string) *TransactionBuilder {
	b.Quantity = Dec(quantity)
	return b
}

// WithUnitPrice sets the unit price and its currency.
func (b *TransactionBuilder) WithUnitPrice(price, currency string) *TransactionBuilder {
	b.UnitPrice = Dec(price)
	b.Currency = currency
	return b
}

// WithFees sets the transaction fees.
func (b *TransactionBuilder) WithFees(fees string) *TransactionBuilder {
	b.Fees = Dec(fees)
	return b
}

// At sets the transaction's occurredAt instant.
func (b *TransactionBuilder) At(occurredAt time.Time) *TransactionBuilder {
	b.OccurredAt = occurredAt
	return b
}

// Build returns the transaction model ready for submission.
func (b *TransactionBuilder) Build() model.Transaction {
	return model.Transaction{
		PortfolioID: b.PortfolioID,
		Symbol:      b.Symbol,
		Kind:        b.Kind,
		Quantity:    b.Quantity,
		UnitPrice:   money.New(b.UnitPrice, b.Currency),
		Fees:        money.New(b.Fees, b.Currency),
		Currency:    b.Currency,
		OccurredAt:  b.OccurredAt,
	}
}
