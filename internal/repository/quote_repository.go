package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
)

// QuoteRepository provides data access methods for the quote table.
// One row per symbol holds the latest persisted price; it is the fallback
// valuation source when the market-data provider is down.
type QuoteRepository struct {
	db *sql.DB
}

// NewQuoteRepository creates a new QuoteRepository with the provided database connection.
func NewQuoteRepository(db *sql.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// GetQuoteOnSymbol retrieves the latest persisted price for a symbol.
func (s *QuoteRepository) GetQuoteOnSymbol(symbol string) (model.Quote, error) {
	query := `
          SELECT symbol, price, currency, as_of
          FROM quote
          WHERE symbol = ?
      `
	var q model.Quote
	var priceStr, asOfStr string

	err := s.db.QueryRow(query, symbol).Scan(&q.Symbol, &priceStr, &q.Currency, &asOfStr)
	if err == sql.ErrNoRows {
		return model.Quote{}, apperrors.ErrQuoteNotFound
	}
	if err != nil {
		return model.Quote{}, fmt.Errorf("failed to query quote: %w", err)
	}

	if q.Price, err = ParseDecimal(priceStr); err != nil {
		return model.Quote{}, err
	}
	if q.AsOf, err = ParseTime(asOfStr); err != nil {
		return model.Quote{}, err
	}

	return q, nil
}

// UpsertQuote writes the latest price for a symbol, replacing any prior row.
func (s *QuoteRepository) UpsertQuote(q model.Quote) error {
	query := `
          INSERT INTO quote (symbol, price, currency, as_of)
          VALUES (?, ?, ?, ?)
          ON CONFLICT (symbol) DO UPDATE SET
              price = excluded.price,
              currency = excluded.currency,
              as_of = excluded.as_of
      `
	_, err := s.db.Exec(query,
		q.Symbol,
		q.Price.String(),
		q.Currency,
		q.AsOf.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert quote: %w", err)
	}

	return nil
}
