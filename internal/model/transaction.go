package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianadvisory/portfolio-engine/internal/money"
)

// TransactionKind enumerates the supported transaction types.
type TransactionKind string

const (
	// KindBuy increases the holding's quantity and cost basis.
	KindBuy TransactionKind = "buy"
	// KindSell decreases quantity and removes cost basis proportionally.
	KindSell TransactionKind = "sell"
	// KindDividend records a cash dividend. Informational for cost-basis
	// purposes: it never changes quantity or cost.
	KindDividend TransactionKind = "dividend"
)

// Valid reports whether k is a known transaction kind.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindBuy, KindSell, KindDividend:
		return true
	}
	return false
}

// Transaction is one immutable ledger event for a portfolio holding.
// Transactions are append-only: they are created by the trading-entry
// boundary and never mutated afterwards. Ordering is by OccurredAt ascending,
// ties broken by Seq (insertion order).
type Transaction struct {
	ID          string          `json:"id"`
	PortfolioID string          `json:"portfolioId"`
	Symbol      string          `json:"symbol"`
	Kind        TransactionKind `json:"kind"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   money.Amount    `json:"unitPrice"`
	Fees        money.Amount    `json:"fees"`
	Currency    string          `json:"currency"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Seq         int64           `json:"-"`
	CreatedAt   time.Time       `json:"createdAt,omitempty"`
}
