package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
	"github.com/meridianadvisory/portfolio-engine/internal/money"
)

const transactionColumns = `id, portfolio_id, symbol, kind, quantity, unit_price, fees, currency, occurred_at, seq, created_at`

// TransactionRepository provides data access methods for the transaction table.
// Transactions are append-only ledger events; there is no update path.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreateTransaction inserts a transaction inside the given database
// transaction and assigns its sequence number. The sequence is the tiebreak
// for events sharing an occurred_at instant, so it must be allocated under
// the same write lock that persists the row.
func (s *TransactionRepository) CreateTransaction(tx *sql.Tx, t *model.Transaction) error {
	query := `
          INSERT INTO "transaction" (` + transactionColumns + `)
          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?,
                  (SELECT COALESCE(MAX(seq), 0) + 1 FROM "transaction"), ?)
          RETURNING seq
      `
	err := tx.QueryRow(query,
		t.ID,
		t.PortfolioID,
		t.Symbol,
		string(t.Kind),
		t.Quantity.String(),
		t.UnitPrice.Decimal().String(),
		t.Fees.Decimal().String(),
		t.Currency,
		t.OccurredAt.UTC().Format(time.RFC3339Nano),
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
	).Scan(&t.Seq)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// GetTransactionsForHolding retrieves all transactions for one (portfolio,
// symbol) pair in replay order: occurred_at ascending, ties by sequence.
func (s *TransactionRepository) GetTransactionsForHolding(portfolioID, symbol string) ([]model.Transaction, error) {
	query := `
          SELECT ` + transactionColumns + `
          FROM "transaction"
          WHERE portfolio_id = ? AND symbol = ?
          ORDER BY occurred_at ASC, seq ASC
      `
	return s.queryTransactions(query, portfolioID, symbol)
}

// GetTransactionsOnPortfolioID retrieves all transactions for a portfolio in
// replay order.
func (s *TransactionRepository) GetTransactionsOnPortfolioID(portfolioID string) ([]model.Transaction, error) {
	query := `
          SELECT ` + transactionColumns + `
          FROM "transaction"
          WHERE portfolio_id = ?
          ORDER BY occurred_at ASC, seq ASC
      `
	return s.queryTransactions(query, portfolioID)
}

// GetTransactionOnID retrieves a single transaction by its ID.
func (s *TransactionRepository) GetTransactionOnID(transactionID string) (model.Transaction, error) {
	query := `
          SELECT ` + transactionColumns + `
          FROM "transaction"
          WHERE id = ?
      `
	row := s.db.QueryRow(query, transactionID)

	t, err := scanTransaction(row.Scan)
	if err == sql.ErrNoRows {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to query transaction: %w", err)
	}

	return t, nil
}

// DeleteTransaction removes a transaction inside the given database
// transaction. The caller rebuilds the affected holding by replay before
// committing.
func (s *TransactionRepository) DeleteTransaction(tx *sql.Tx, transactionID string) error {
	res, err := tx.Exec(`DELETE FROM "transaction" WHERE id = ?`, transactionID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrTransactionNotFound
	}

	return nil
}

func (s *TransactionRepository) queryTransactions(query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}

	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction table results: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}

	return transactions, nil
}

func scanTransaction(scan func(...any) error) (model.Transaction, error) {
	var t model.Transaction
	var kind, quantityStr, unitPriceStr, feesStr, occurredAtStr, createdAtStr string

	err := scan(
		&t.ID,
		&t.PortfolioID,
		&t.Symbol,
		&kind,
		&quantityStr,
		&unitPriceStr,
		&feesStr,
		&t.Currency,
		&occurredAtStr,
		&t.Seq,
		&createdAtStr,
	)
	if err != nil {
		return model.Transaction{}, err
	}

	t.Kind = model.TransactionKind(kind)

	if t.Quantity, err = ParseDecimal(quantityStr); err != nil {
		return model.Transaction{}, err
	}
	unitPrice, err := ParseDecimal(unitPriceStr)
	if err != nil {
		return model.Transaction{}, err
	}
	fees, err := ParseDecimal(feesStr)
	if err != nil {
		return model.Transaction{}, err
	}
	t.UnitPrice = money.New(unitPrice, t.Currency)
	t.Fees = money.New(fees, t.Currency)

	if t.OccurredAt, err = ParseTime(occurredAtStr); err != nil {
		return model.Transaction{}, err
	}
	if t.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Transaction{}, err
	}

	return t, nil
}
