package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
	"github.com/meridianadvisory/portfolio-engine/internal/repository"
	"github.com/meridianadvisory/portfolio-engine/internal/service"
)

// mustSubmit pushes a transaction through the service and fails the test on
// any error. Used for test fixtures, not for the behavior under test.
func mustSubmit(t *testing.T, svc *service.TransactionService, tx model.Transaction) model.Transaction {
	t.Helper()
	stored, err := svc.SubmitTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("fixture SubmitTransaction() failed: %v", err)
	}
	return stored
}

func getHolding(t *testing.T, db *sql.DB, portfolioID, symbol string) model.HoldingState {
	t.Helper()
	holding, err := repository.NewHoldingRepository(db).GetHolding(portfolioID, symbol)
	if err != nil {
		t.Fatalf("GetHolding(%s, %s) failed: %v", portfolioID, symbol, err)
	}
	return holding
}

func holdingExists(t *testing.T, db *sql.DB, portfolioID, symbol string) bool {
	t.Helper()
	_, err := repository.NewHoldingRepository(db).GetHolding(portfolioID, symbol)
	if errors.Is(err, apperrors.ErrHoldingNotFound) {
		return false
	}
	if err != nil {
		t.Fatalf("GetHolding(%s, %s) failed: %v", portfolioID, symbol, err)
	}
	return true
}

func countTransactions(t *testing.T, db *sql.DB, portfolioID string) int {
	t.Helper()
	transactions, err := repository.NewTransactionRepository(db).GetTransactionsOnPortfolioID(portfolioID)
	if err != nil {
		t.Fatalf("GetTransactionsOnPortfolioID(%s) failed: %v", portfolioID, err)
	}
	return len(transactions)
}
