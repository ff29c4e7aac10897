package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridianadvisory/portfolio-engine/internal/fx"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
)

// RateRepository provides data access methods for the exchange_rate table.
// It satisfies fx.Store so the rate cache can persist fetches and warm-start
// from the newest row per currency pair after a restart.
type RateRepository struct {
	db *sql.DB
}

// NewRateRepository creates a new RateRepository with the provided database connection.
func NewRateRepository(db *sql.DB) *RateRepository {
	return &RateRepository{db: db}
}

// SaveRate appends a fetched rate for the given currency pair.
func (s *RateRepository) SaveRate(from, to string, rate decimal.Decimal, fetchedAt time.Time) error {
	query := `
          INSERT INTO exchange_rate (id, from_currency, to_currency, rate, fetched_at)
          VALUES (?, ?, ?, ?, ?)
      `
	_, err := s.db.Exec(query,
		uuid.NewString(),
		from,
		to,
		rate.String(),
		fetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert exchange rate: %w", err)
	}

	return nil
}

// LatestRates returns the newest persisted rate per currency pair.
func (s *RateRepository) LatestRates() (map[[2]string]fx.Rate, error) {
	query := `
          SELECT e.from_currency, e.to_currency, e.rate, e.fetched_at
          FROM exchange_rate e
          JOIN (
              SELECT from_currency, to_currency, MAX(fetched_at) AS fetched_at
              FROM exchange_rate
              GROUP BY from_currency, to_currency
          ) latest
          ON latest.from_currency = e.from_currency
          AND latest.to_currency = e.to_currency
          AND latest.fetched_at = e.fetched_at
      `
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchange_rate table: %w", err)
	}
	defer rows.Close()

	rates := make(map[[2]string]fx.Rate)

	for rows.Next() {
		var from, to, rateStr, fetchedAtStr string

		if err := rows.Scan(&from, &to, &rateStr, &fetchedAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan exchange_rate table results: %w", err)
		}

		rate, err := ParseDecimal(rateStr)
		if err != nil {
			return nil, err
		}
		fetchedAt, err := ParseTime(fetchedAtStr)
		if err != nil {
			return nil, err
		}

		rates[[2]string{from, to}] = fx.Rate{
			From:      from,
			To:        to,
			Value:     rate,
			FetchedAt: fetchedAt,
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exchange_rate table: %w", err)
	}

	return rates, nil
}

// GetRateHistory retrieves all persisted rates for a currency pair, newest first.
func (s *RateRepository) GetRateHistory(from, to string) ([]model.ExchangeRate, error) {
	query := `
          SELECT id, from_currency, to_currency, rate, fetched_at
          FROM exchange_rate
          WHERE from_currency = ? AND to_currency = ?
          ORDER BY fetched_at DESC
      `
	rows, err := s.db.Query(query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchange_rate table: %w", err)
	}
	defer rows.Close()

	rates := []model.ExchangeRate{}

	for rows.Next() {
		var r model.ExchangeRate
		var rateStr, fetchedAtStr string

		err := rows.Scan(&r.ID, &r.FromCurrency, &r.ToCurrency, &rateStr, &fetchedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exchange_rate table results: %w", err)
		}

		if r.Rate, err = ParseDecimal(rateStr); err != nil {
			return nil, err
		}
		if r.FetchedAt, err = ParseTime(fetchedAtStr); err != nil {
			return nil, err
		}

		rates = append(rates, r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exchange_rate table: %w", err)
	}

	return rates, nil
}
