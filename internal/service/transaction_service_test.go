package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/testutil"
)

// TestTransactionService_SubmitTransaction tests the trading-entry boundary.
//
// WHY: Every transaction enters the system through SubmitTransaction, and the
// holding it updates must always equal what replaying the full history would
// produce. These tests pin the weighted-average arithmetic at the service
// level, storage included.
func TestTransactionService_SubmitTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("first buy establishes the holding", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)
		portfolio := testutil.NewPortfolio().Build(t, db)

		// Execute
		_, err := svc.SubmitTransaction(ctx, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").
			WithUnitPrice("100", "USD").
			WithFees("5").
			Build())

		// Assert
		if err != nil {
			t.Fatalf("SubmitTransaction() returned unexpected error: %v", err)
		}

		holding := getHolding(t, db, portfolio.ID, "AAPL")
		if !holding.Quantity.Equal(testutil.Dec("10")) {
			t.Errorf("Expected quantity 10, got %s", holding.Quantity)
		}
		if !holding.TotalCost.Decimal().Equal(testutil.Dec("1005")) {
			t.Errorf("Expected total cost 1005, got %s", holding.TotalCost.Decimal())
		}
		if !holding.AverageCost().Decimal().Equal(testutil.Dec("100.5")) {
			t.Errorf("Expected average cost 100.5, got %s", holding.AverageCost().Decimal())
		}
		if holding.NativeCurrency != "USD" {
			t.Errorf("Expected native currency USD, got %s", holding.NativeCurrency)
		}
	})

	t.Run("second buy blends the average", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)
		portfolio := testutil.NewPortfolio().Build(t, db)

		mustSubmit(t, svc, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("100", "USD").WithFees("5").Build())

		// Execute
		_, err := svc.SubmitTransaction(ctx, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("120", "USD").Build())

		// Assert
		if err != nil {
			t.Fatalf("SubmitTransaction() returned unexpected error: %v", err)
		}

		holding := getHolding(t, db, portfolio.ID, "AAPL")
		if !holding.TotalCost.Decimal().Equal(testutil.Dec("2205")) {
			t.Errorf("Expected total cost 2205, got %s", holding.TotalCost.Decimal())
		}
		if !holding.AverageCost().Decimal().Equal(testutil.Dec("110.25")) {
			t.Errorf("Expected average cost 110.25, got %s", holding.AverageCost().Decimal())
		}
	})

	t.Run("sell removes cost proportionally and keeps the average", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)
		portfolio := testutil.NewPortfolio().Build(t, db)

		mustSubmit(t, svc, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("100", "USD").WithFees("5").Build())
		mustSubmit(t, svc, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("120", "USD").Build())

		// Execute
		_, err := svc.SubmitTransaction(ctx, testutil.NewSell(portfolio.ID, "AAPL").
			WithQuantity("5").Build())

		// Assert
		if err != nil {
			t.Fatalf("SubmitTransaction() returned unexpected error: %v", err)
		}

		holding := getHolding(t, db, portfolio.ID, "AAPL")
		if !holding.Quantity.Equal(testutil.Dec("15")) {
			t.Errorf("Expected quantity 15, got %s", holding.Quantity)
		}
		if !holding.TotalCost.Decimal().Equal(testutil.Dec("1653.75")) {
			t.Errorf("Expected total cost 1653.75, got %s", holding.TotalCost.Decimal())
		}
		if !holding.AverageCost().Decimal().Equal(testutil.Dec("110.25")) {
			t.Errorf("Expected average cost unchanged at 110.25, got %s", holding.AverageCost().Decimal())
		}
	})

	t.Run("full liquidation deletes the holding", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)
		portfolio := testutil.NewPortfolio().Build(t, db)

		mustSubmit(t, svc, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("100", "USD").Build())

		// Execute
		_, err := svc.SubmitTransaction(ctx, testutil.NewSell(portfolio.ID, "AAPL").
			WithQuantity("10").Build())

		// Assert
		if err != nil {
			t.Fatalf("SubmitTransaction() returned unexpected error: %v", err)
		}

		if holdingExists(t, db, portfolio.ID, "AAPL") {
			t.Error("Expected holding row to be deleted after full liquidation")
		}
	})

	t.Run("re-buy after liquidation establishes a new currency", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)
		portfolio := testutil.NewPortfolio().Build(t, db)

		mustSubmit(t, svc, testutil.NewBuy(portfolio.ID, "SAP").
			WithQuantity("10").WithUnitPrice("100", "USD").Build())
		mustSubmit(t, svc, testutil.NewSell(portfolio.ID, "SAP").
			WithQuantity("10").Build())

		// Execute
		_, err := svc.SubmitTransaction(ctx, testutil.NewBuy(portfolio.ID, "SAP").
			WithQuantity("4").WithUnitPrice("150", "EUR").Build())

		// Assert
		if err != nil {
			t.Fatalf("SubmitTransaction() returned unexpected error: %v", err)
		}

		holding := getHolding(t, db, portfolio.ID, "SAP")
		if holding.NativeCurrency != "EUR" {
			t.Errorf("Expected new native currency EUR, got %s", holding.NativeCurrency)
		}
	})

	t.Run("backdated buy folds in timestamp order", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)
		portfolio := testutil.NewPortfolio().Build(t, db)

		mustSubmit(t, svc, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("100", "USD").
			At(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)).Build())
		mustSubmit(t, svc, testutil.NewSell(portfolio.ID, "AAPL").
			WithQuantity("5").
			At(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)).Build())

		// Execute
		_, err := svc.SubmitTransaction(ctx, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("200", "USD").
			At(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)).Build())

		// Assert
		if err != nil {
			t.Fatalf("SubmitTransaction() returned unexpected error: %v", err)
		}

		// The buy predates the sell, so the sell removed a quarter of a
		// 3000 cost basis: 15 units at total cost 2250.
		holding := getHolding(t, db, portfolio.ID, "AAPL")
		if !holding.Quantity.Equal(testutil.Dec("15")) {
			t.Errorf("Expected quantity 15, got %s", holding.Quantity)
		}
		if !holding.TotalCost.Decimal().Equal(testutil.Dec("2250")) {
			t.Errorf("Expected total cost 2250, got %s", holding.TotalCost.Decimal())
		}
	})

	t.Run("backdated sell is checked against its point in history", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)
		portfolio := testutil.NewPortfolio().Build(t, db)

		mustSubmit(t, svc, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("5").WithUnitPrice("100", "USD").
			At(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)).Build())
		mustSubmit(t, svc, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("100", "USD").
			At(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)).Build())

		// Execute: only 5 units existed on Feb 1, so selling 8 then must
		// fail even though 15 are held now.
		_, err := svc.SubmitTransaction(ctx, testutil.NewSell(portfolio.ID, "AAPL").
			WithQuantity("8").
			At(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)).Build())

		// Assert
		var overdraft *apperrors.OverdraftError
		if !errors.As(err, &overdraft) {
			t.Fatalf("Expected OverdraftError, got %v", err)
		}
		if n := countTransactions(t, db, portfolio.ID); n != 2 {
			t.Errorf("Expected the rejected sell to leave 2 stored transactions, found %d", n)
		}
		holding := getHolding(t, db, portfolio.ID, "AAPL")
		if !holding.Quantity.Equal(testutil.Dec("15")) {
			t.Errorf("Expected holding untouched at quantity 15, got %s", holding.Quantity)
		}
	})

	t.Run("overdraft is rejected and never persisted", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)
		portfolio := testutil.NewPortfolio().Build(t, db)

		mustSubmit(t, svc, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("100", "USD").Build())

		// Execute
		_, err := svc.SubmitTransaction(ctx, testutil.NewSell(portfolio.ID, "AAPL").
			WithQuantity("15").Build())

		// Assert
		var overdraft *apperrors.OverdraftError
		if !errors.As(err, &overdraft) {
			t.Fatalf("Expected OverdraftError, got %v", err)
		}

		if n := countTransactions(t, db, portfolio.ID); n != 1 {
			t.Errorf("Expected the rejected sell to leave 1 stored transaction, found %d", n)
		}

		holding := getHolding(t, db, portfolio.ID, "AAPL")
		if !holding.Quantity.Equal(testutil.Dec("10")) {
			t.Errorf("Expected holding untouched at quantity 10, got %s", holding.Quantity)
		}
	})

	t.Run("currency mismatch is rejected and never persisted", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)
		portfolio := testutil.NewPortfolio().Build(t, db)

		mustSubmit(t, svc, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("100", "USD").Build())

		// Execute
		_, err := svc.SubmitTransaction(ctx, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("5").WithUnitPrice("90", "EUR").Build())

		// Assert
		var mismatch *apperrors.CurrencyMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("Expected CurrencyMismatchError, got %v", err)
		}
		if mismatch.HoldingCurrency != "USD" || mismatch.TransactionCurrency != "EUR" {
			t.Errorf("Unexpected mismatch detail: %+v", mismatch)
		}

		if n := countTransactions(t, db, portfolio.ID); n != 1 {
			t.Errorf("Expected the rejected buy to leave 1 stored transaction, found %d", n)
		}
	})

	t.Run("unknown portfolio is rejected", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)

		// Execute
		_, err := svc.SubmitTransaction(ctx, testutil.NewBuy(testutil.MakeID(), "AAPL").Build())

		// Assert
		if !errors.Is(err, apperrors.ErrPortfolioNotFound) {
			t.Fatalf("Expected ErrPortfolioNotFound, got %v", err)
		}
	})

	t.Run("dividend records without touching the holding", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)
		portfolio := testutil.NewPortfolio().Build(t, db)

		mustSubmit(t, svc, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("100", "USD").Build())

		// Execute
		_, err := svc.SubmitTransaction(ctx, testutil.NewDividend(portfolio.ID, "AAPL").Build())

		// Assert
		if err != nil {
			t.Fatalf("SubmitTransaction() returned unexpected error: %v", err)
		}

		if n := countTransactions(t, db, portfolio.ID); n != 2 {
			t.Errorf("Expected 2 stored transactions, found %d", n)
		}

		holding := getHolding(t, db, portfolio.ID, "AAPL")
		if !holding.Quantity.Equal(testutil.Dec("10")) {
			t.Errorf("Expected dividend to leave quantity at 10, got %s", holding.Quantity)
		}
	})
}

// TestTransactionService_SubmitTransaction_Concurrent exercises the keyed
// serialization of one holding under concurrent submissions.
//
// WHY: A buy and a sell racing on the same holding must not interleave their
// read-modify-write; the final state has to equal some sequential order of
// the operations.
func TestTransactionService_SubmitTransaction_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTransactionService(t, db)
	portfolio := testutil.NewPortfolio().Build(t, db)

	mustSubmit(t, svc, testutil.NewBuy(portfolio.ID, "AAPL").
		WithQuantity("100").WithUnitPrice("10", "USD").Build())

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitTransaction(context.Background(),
				testutil.NewSell(portfolio.ID, "AAPL").
					WithQuantity("10").
					At(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)).
					Build())
			if err != nil {
				t.Errorf("concurrent sell failed: %v", err)
			}
		}()
	}
	wg.Wait()

	holding := getHolding(t, db, portfolio.ID, "AAPL")
	if !holding.Quantity.Equal(testutil.Dec("20")) {
		t.Errorf("Expected quantity 20 after 8 concurrent sells of 10, got %s", holding.Quantity)
	}
	if !holding.AverageCost().Decimal().Equal(testutil.Dec("10")) {
		t.Errorf("Expected average cost unchanged at 10, got %s", holding.AverageCost().Decimal())
	}
}

// TestTransactionService_DeleteTransaction tests history edits.
//
// WHY: Deleting a ledger event invalidates the incremental state; the service
// must rebuild the holding by replay so the stored state equals the surviving
// history.
func TestTransactionService_DeleteTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("rebuilds the holding from the remaining history", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)
		portfolio := testutil.NewPortfolio().Build(t, db)

		mustSubmit(t, svc, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("100", "USD").WithFees("5").Build())
		second, err := svc.SubmitTransaction(ctx, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("120", "USD").
			At(time.Date(2026, 1, 16, 14, 30, 0, 0, time.UTC)).Build())
		if err != nil {
			t.Fatalf("SubmitTransaction() returned unexpected error: %v", err)
		}

		// Execute
		if err := svc.DeleteTransaction(ctx, second.ID); err != nil {
			t.Fatalf("DeleteTransaction() returned unexpected error: %v", err)
		}

		// Assert
		holding := getHolding(t, db, portfolio.ID, "AAPL")
		if !holding.Quantity.Equal(testutil.Dec("10")) {
			t.Errorf("Expected quantity back to 10, got %s", holding.Quantity)
		}
		if !holding.TotalCost.Decimal().Equal(testutil.Dec("1005")) {
			t.Errorf("Expected total cost back to 1005, got %s", holding.TotalCost.Decimal())
		}
	})

	t.Run("deleting the only transaction removes the holding", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)
		portfolio := testutil.NewPortfolio().Build(t, db)

		only, err := svc.SubmitTransaction(ctx, testutil.NewBuy(portfolio.ID, "AAPL").Build())
		if err != nil {
			t.Fatalf("SubmitTransaction() returned unexpected error: %v", err)
		}

		// Execute
		if err := svc.DeleteTransaction(ctx, only.ID); err != nil {
			t.Fatalf("DeleteTransaction() returned unexpected error: %v", err)
		}

		// Assert
		if holdingExists(t, db, portfolio.ID, "AAPL") {
			t.Error("Expected holding row to be removed when its history is empty")
		}
	})

	t.Run("unknown transaction returns not found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)

		err := svc.DeleteTransaction(ctx, testutil.MakeID())
		if !errors.Is(err, apperrors.ErrTransactionNotFound) {
			t.Fatalf("Expected ErrTransactionNotFound, got %v", err)
		}
	})
}
