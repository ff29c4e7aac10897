package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
	"github.com/meridianadvisory/portfolio-engine/internal/money"
)

// HoldingRepository provides data access methods for the holding table.
// Holding rows are derived state owned by the ledger; every write happens
// inside the same database transaction as the ledger event that caused it.
type HoldingRepository struct {
	db *sql.DB
}

// NewHoldingRepository creates a new HoldingRepository with the provided database connection.
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// GetHolding retrieves the holding state for one (portfolio, symbol) pair.
func (s *HoldingRepository) GetHolding(portfolioID, symbol string) (model.HoldingState, error) {
	query := `
          SELECT portfolio_id, symbol, quantity, total_cost, native_currency, updated_at
          FROM holding
          WHERE portfolio_id = ? AND symbol = ?
      `
	row := s.db.QueryRow(query, portfolioID, symbol)

	h, err := scanHolding(row.Scan)
	if err == sql.ErrNoRows {
		return model.HoldingState{}, apperrors.ErrHoldingNotFound
	}
	if err != nil {
		return model.HoldingState{}, fmt.Errorf("failed to query holding: %w", err)
	}

	return h, nil
}

// GetHoldingsOnPortfolioID retrieves all holdings for a portfolio, ordered by
// symbol. Returns an empty slice for a portfolio with no positions.
func (s *HoldingRepository) GetHoldingsOnPortfolioID(portfolioID string) ([]model.HoldingState, error) {
	query := `
          SELECT portfolio_id, symbol, quantity, total_cost, native_currency, updated_at
          FROM holding
          WHERE portfolio_id = ?
          ORDER BY symbol ASC
      `
	rows, err := s.db.Query(query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding table: %w", err)
	}
	defer rows.Close()

	holdings := []model.HoldingState{}

	for rows.Next() {
		h, err := scanHolding(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding table results: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding table: %w", err)
	}

	return holdings, nil
}

// UpsertHolding writes the holding state inside the given database transaction.
func (s *HoldingRepository) UpsertHolding(tx *sql.Tx, h model.HoldingState) error {
	query := `
          INSERT INTO holding (portfolio_id, symbol, quantity, total_cost, native_currency, updated_at)
          VALUES (?, ?, ?, ?, ?, ?)
          ON CONFLICT (portfolio_id, symbol) DO UPDATE SET
              quantity = excluded.quantity,
              total_cost = excluded.total_cost,
              native_currency = excluded.native_currency,
              updated_at = excluded.updated_at
      `
	_, err := tx.Exec(query,
		h.PortfolioID,
		h.Symbol,
		h.Quantity.String(),
		h.TotalCost.Decimal().String(),
		h.NativeCurrency,
		h.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}

	return nil
}

// DeleteHolding removes a fully liquidated holding inside the given database
// transaction. Missing rows are not an error; a replay that ends empty may
// delete a holding that was never persisted.
func (s *HoldingRepository) DeleteHolding(tx *sql.Tx, portfolioID, symbol string) error {
	_, err := tx.Exec(`DELETE FROM holding WHERE portfolio_id = ? AND symbol = ?`, portfolioID, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}

	return nil
}

// DeleteHoldingsOnPortfolioID clears all holdings for a portfolio inside the
// given database transaction, ahead of a full rebuild.
func (s *HoldingRepository) DeleteHoldingsOnPortfolioID(tx *sql.Tx, portfolioID string) error {
	_, err := tx.Exec(`DELETE FROM holding WHERE portfolio_id = ?`, portfolioID)
	if err != nil {
		return fmt.Errorf("failed to delete holdings: %w", err)
	}

	return nil
}

// DistinctSymbols returns every symbol currently held across all portfolios.
// The refresh scheduler uses this to know which quotes to keep warm.
func (s *HoldingRepository) DistinctSymbols() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT symbol FROM holding ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding symbols: %w", err)
	}
	defer rows.Close()

	symbols := []string{}

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan holding symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding symbols: %w", err)
	}

	return symbols, nil
}

// DistinctCurrencyPairs returns every (native, display) currency pair formed
// by a holding and its portfolio's display currency, excluding same-currency
// pairs. The refresh scheduler uses this to keep exchange rates warm.
func (s *HoldingRepository) DistinctCurrencyPairs() ([][2]string, error) {
	query := `
          SELECT DISTINCT h.native_currency, p.display_currency
          FROM holding h
          JOIN portfolio p ON p.id = h.portfolio_id
          WHERE h.native_currency != p.display_currency
      `
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query currency pairs: %w", err)
	}
	defer rows.Close()

	pairs := [][2]string{}

	for rows.Next() {
		var from, to string
		if err := rows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan currency pair: %w", err)
		}
		pairs = append(pairs, [2]string{from, to})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating currency pairs: %w", err)
	}

	return pairs, nil
}

func scanHolding(scan func(...any) error) (model.HoldingState, error) {
	var h model.HoldingState
	var quantityStr, totalCostStr, updatedAtStr string

	err := scan(
		&h.PortfolioID,
		&h.Symbol,
		&quantityStr,
		&totalCostStr,
		&h.NativeCurrency,
		&updatedAtStr,
	)
	if err != nil {
		return model.HoldingState{}, err
	}

	if h.Quantity, err = ParseDecimal(quantityStr); err != nil {
		return model.HoldingState{}, err
	}
	totalCost, err := ParseDecimal(totalCostStr)
	if err != nil {
		return model.HoldingState{}, err
	}
	h.TotalCost = money.New(totalCost, h.NativeCurrency)

	if h.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.HoldingState{}, err
	}

	return h, nil
}
