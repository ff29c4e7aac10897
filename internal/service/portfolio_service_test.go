package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
	"github.com/meridianadvisory/portfolio-engine/internal/repository"
	"github.com/meridianadvisory/portfolio-engine/internal/service"
	"github.com/meridianadvisory/portfolio-engine/internal/testutil"
)

// TestPortfolioService_GetAllPortfolios tests the GetAllPortfolios method.
//
// WHY: Portfolio retrieval is a fundamental operation. This ensures the service
// correctly returns all portfolios from the database, including edge cases like
// empty databases and multiple portfolios.
func TestPortfolioService_GetAllPortfolios(t *testing.T) {
	t.Run("returns empty slice when no portfolios exist", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db, testutil.NewFakeQuoteSource(), testutil.NewFakeRateProvider())

		// Execute
		portfolios, err := svc.GetAllPortfolios()

		// Assert
		if err != nil {
			t.Fatalf("GetAllPortfolios() returned unexpected error: %v", err)
		}
		if len(portfolios) != 0 {
			t.Errorf("Expected 0 portfolios, got %d", len(portfolios))
		}
	})

	t.Run("returns all portfolios including archived", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db, testutil.NewFakeQuoteSource(), testutil.NewFakeRateProvider())

		testutil.NewPortfolio().WithName("Active").Build(t, db)
		testutil.NewPortfolio().WithName("Retired").Archived().Build(t, db)

		// Execute
		portfolios, err := svc.GetAllPortfolios()

		// Assert
		if err != nil {
			t.Fatalf("GetAllPortfolios() returned unexpected error: %v", err)
		}
		if len(portfolios) != 2 {
			t.Errorf("Expected 2 portfolios, got %d", len(portfolios))
		}
	})
}

// TestPortfolioService_CreatePortfolio tests portfolio creation rules.
//
// WHY: The display currency is the anchor for every conversion downstream.
// Creation must refuse a missing or unknown currency rather than persist a
// portfolio that can never be summarized.
func TestPortfolioService_CreatePortfolio(t *testing.T) {
	t.Run("creates a portfolio and assigns an ID", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db, testutil.NewFakeQuoteSource(), testutil.NewFakeRateProvider())

		// Execute
		created, err := svc.CreatePortfolio(model.Portfolio{
			Name:            "Retirement",
			DisplayCurrency: "EUR",
		})

		// Assert
		if err != nil {
			t.Fatalf("CreatePortfolio() returned unexpected error: %v", err)
		}
		if created.ID == "" {
			t.Error("Expected a generated ID")
		}

		stored, err := svc.GetPortfolio(created.ID)
		if err != nil {
			t.Fatalf("GetPortfolio() returned unexpected error: %v", err)
		}
		if stored.DisplayCurrency != "EUR" {
			t.Errorf("Expected display currency EUR, got %s", stored.DisplayCurrency)
		}
	})

	t.Run("rejects a missing display currency", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db, testutil.NewFakeQuoteSource(), testutil.NewFakeRateProvider())

		_, err := svc.CreatePortfolio(model.Portfolio{Name: "No currency"})
		if !errors.Is(err, apperrors.ErrMissingDisplayCurrency) {
			t.Fatalf("Expected ErrMissingDisplayCurrency, got %v", err)
		}
	})

	t.Run("rejects an unknown currency code", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db, testutil.NewFakeQuoteSource(), testutil.NewFakeRateProvider())

		_, err := svc.CreatePortfolio(model.Portfolio{Name: "Bad currency", DisplayCurrency: "XYZ"})
		if !errors.Is(err, apperrors.ErrInvalidCurrency) {
			t.Fatalf("Expected ErrInvalidCurrency, got %v", err)
		}
	})
}

// TestPortfolioService_GetPortfolioSummary tests the aggregated view.
//
// WHY: The summary is where multi-currency holdings meet the owner's display
// currency. Totals must add converted figures across currencies, absorb
// degraded holdings into the Degraded count instead of failing, and refuse
// to run without a display currency.
func TestPortfolioService_GetPortfolioSummary(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)

	t.Run("aggregates converted totals across currencies", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		quotes := testutil.NewFakeQuoteSource()
		rates := testutil.NewFakeRateProvider()
		svc := testutil.NewTestPortfolioService(t, db, quotes, rates)
		txSvc := testutil.NewTestTransactionService(t, db)

		portfolio := testutil.NewPortfolio().WithDisplayCurrency("USD").Build(t, db)
		mustSubmit(t, txSvc, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("100", "USD").Build())
		mustSubmit(t, txSvc, testutil.NewBuy(portfolio.ID, "NPN").
			WithQuantity("5").WithUnitPrice("3000", "ZAR").Build())

		quotes.SetQuote("AAPL", "150", "USD", asOf)
		quotes.SetQuote("NPN", "3500", "ZAR", asOf)
		rates.SetRate("ZAR", "USD", "0.055")

		// Execute
		summary, err := svc.GetPortfolioSummary(ctx, portfolio.ID)

		// Assert
		if err != nil {
			t.Fatalf("GetPortfolioSummary() returned unexpected error: %v", err)
		}
		if len(summary.Holdings) != 2 {
			t.Fatalf("Expected 2 valuated holdings, got %d", len(summary.Holdings))
		}

		// AAPL: 10 x 150 = 1500 USD. NPN: 5 x 3500 x 0.055 = 962.50 USD.
		if !summary.Totals.TotalValue.Decimal().Equal(testutil.Dec("2462.5")) {
			t.Errorf("Expected total value 2462.5, got %s", summary.Totals.TotalValue.Decimal())
		}
		// Cost: 1000 USD + 15000 ZAR x 0.055 = 1825 USD.
		if !summary.Totals.TotalCost.Decimal().Equal(testutil.Dec("1825")) {
			t.Errorf("Expected total cost 1825, got %s", summary.Totals.TotalCost.Decimal())
		}
		if !summary.Totals.TotalGainLoss.Decimal().Equal(testutil.Dec("637.5")) {
			t.Errorf("Expected total gain 637.5, got %s", summary.Totals.TotalGainLoss.Decimal())
		}
		if summary.Totals.Degraded != 0 {
			t.Errorf("Expected no degraded holdings, got %d", summary.Totals.Degraded)
		}
	})

	t.Run("unconvertible holding is excluded and counted as degraded", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		quotes := testutil.NewFakeQuoteSource()
		rates := testutil.NewFakeRateProvider()
		svc := testutil.NewTestPortfolioService(t, db, quotes, rates)
		txSvc := testutil.NewTestTransactionService(t, db)

		portfolio := testutil.NewPortfolio().WithDisplayCurrency("USD").Build(t, db)
		mustSubmit(t, txSvc, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("100", "USD").Build())
		mustSubmit(t, txSvc, testutil.NewBuy(portfolio.ID, "NPN").
			WithQuantity("5").WithUnitPrice("3000", "ZAR").Build())

		quotes.SetQuote("AAPL", "150", "USD", asOf)
		quotes.SetQuote("NPN", "3500", "ZAR", asOf)
		// no ZAR/USD rate configured

		// Execute
		summary, err := svc.GetPortfolioSummary(ctx, portfolio.ID)

		// Assert
		if err != nil {
			t.Fatalf("GetPortfolioSummary() returned unexpected error: %v", err)
		}
		if summary.Totals.Degraded != 1 {
			t.Errorf("Expected 1 degraded holding, got %d", summary.Totals.Degraded)
		}
		if !summary.Totals.TotalValue.Decimal().Equal(testutil.Dec("1500")) {
			t.Errorf("Expected totals to cover AAPL only at 1500, got %s", summary.Totals.TotalValue.Decimal())
		}
		if len(summary.Holdings) != 2 {
			t.Errorf("Expected both holdings listed despite degradation, got %d", len(summary.Holdings))
		}
	})

	t.Run("stale quotes degrade without failing the summary", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		quotes := testutil.NewFakeQuoteSource()
		rates := testutil.NewFakeRateProvider()
		svc := testutil.NewTestPortfolioService(t, db, quotes, rates)
		txSvc := testutil.NewTestTransactionService(t, db)

		portfolio := testutil.NewPortfolio().WithDisplayCurrency("USD").Build(t, db)
		mustSubmit(t, txSvc, testutil.NewBuy(portfolio.ID, "AAPL").
			WithQuantity("10").WithUnitPrice("100", "USD").Build())
		quotes.Fail(errors.New("provider down"))

		// Execute
		summary, err := svc.GetPortfolioSummary(ctx, portfolio.ID)

		// Assert
		if err != nil {
			t.Fatalf("GetPortfolioSummary() returned unexpected error: %v", err)
		}
		if summary.Totals.Degraded != 1 {
			t.Errorf("Expected 1 degraded holding, got %d", summary.Totals.Degraded)
		}
		// Without any price the holding is carried at cost.
		if !summary.Totals.TotalValue.Decimal().Equal(testutil.Dec("1000")) {
			t.Errorf("Expected cost-carried total 1000, got %s", summary.Totals.TotalValue.Decimal())
		}
	})

	t.Run("hung rate provider is cut off by the valuation timeout", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		quotes := testutil.NewFakeQuoteSource()
		rates := testutil.NewFakeRateProvider()
		svc := service.NewPortfolioService(
			repository.NewPortfolioRepository(db),
			testutil.NewTestHoldingService(t, db, quotes, rates),
			50*time.Millisecond,
			zerolog.Nop(),
		)
		txSvc := testutil.NewTestTransactionService(t, db)

		portfolio := testutil.NewPortfolio().WithDisplayCurrency("USD").Build(t, db)
		mustSubmit(t, txSvc, testutil.NewBuy(portfolio.ID, "NPN").
			WithQuantity("5").WithUnitPrice("3000", "ZAR").Build())

		quotes.SetQuote("NPN", "3500", "ZAR", asOf)
		rates.Stall()

		// Execute
		start := time.Now()
		summary, err := svc.GetPortfolioSummary(ctx, portfolio.ID)
		elapsed := time.Since(start)

		// Assert
		if err != nil {
			t.Fatalf("GetPortfolioSummary() returned unexpected error: %v", err)
		}
		if elapsed > 2*time.Second {
			t.Fatalf("Expected the timeout to cut the fetch short, took %s", elapsed)
		}
		if summary.Totals.Degraded != 1 {
			t.Errorf("Expected the unconverted holding counted as degraded, got %d", summary.Totals.Degraded)
		}
		if len(summary.Holdings) != 1 {
			t.Fatalf("Expected the holding listed despite degradation, got %d", len(summary.Holdings))
		}
	})

	t.Run("missing display currency is refused", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db, testutil.NewFakeQuoteSource(), testutil.NewFakeRateProvider())
		portfolio := testutil.NewPortfolio().WithDisplayCurrency("").Build(t, db)

		// Execute
		_, err := svc.GetPortfolioSummary(ctx, portfolio.ID)

		// Assert
		if !errors.Is(err, apperrors.ErrMissingDisplayCurrency) {
			t.Fatalf("Expected ErrMissingDisplayCurrency, got %v", err)
		}
	})

	t.Run("unknown portfolio returns not found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db, testutil.NewFakeQuoteSource(), testutil.NewFakeRateProvider())

		_, err := svc.GetPortfolioSummary(ctx, testutil.MakeID())
		if !errors.Is(err, apperrors.ErrPortfolioNotFound) {
			t.Fatalf("Expected ErrPortfolioNotFound, got %v", err)
		}
	})
}
