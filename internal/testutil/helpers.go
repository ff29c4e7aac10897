package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridianadvisory/portfolio-engine/internal/fx"
	"github.com/meridianadvisory/portfolio-engine/internal/repository"
	"github.com/meridianadvisory/portfolio-engine/internal/service"
	"github.com/meridianadvisory/portfolio-engine/internal/valuation"
)

// NewTestTransactionService wires a TransactionService over the given test
// database.
func NewTestTransactionService(t *testing.T, db *sql.DB) *service.TransactionService {
	t.Helper()

	return service.NewTransactionService(
		repository.NewTransactionRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewPortfolioRepository(db),
		repository.NewTransactor(db),
		zerolog.Nop(),
	)
}

// NewTestHoldingService wires a HoldingService over the given test database
// with fake market-data providers. Both fakes start empty; tests configure
// the quotes and rates they need.
func NewTestHoldingService(t *testing.T, db *sql.DB, quotes *FakeQuoteSource, rates *FakeRateProvider) *service.HoldingService {
	t.Helper()

	cache := fx.NewCache(rates, zerolog.Nop(), fx.WithStore(repository.NewRateRepository(db)))
	valuator := valuation.NewValuator(cache, zerolog.Nop())

	return service.NewHoldingService(
		repository.NewHoldingRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewPortfolioRepository(db),
		repository.NewQuoteRepository(db),
		repository.NewTransactor(db),
		quotes,
		valuator,
		zerolog.Nop(),
	)
}

// TestFernetKey is a throwaway base64url key for settings encryption tests.
const TestFernetKey = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="

// NewTestSystemService wires a SystemService over the given test database.
func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()
	return service.NewSystemService(db, repository.NewRateRepository(db))
}

// NewTestSettingsService wires a SettingsService over the given test
// database with an encryption key configured.
func NewTestSettingsService(t *testing.T, db *sql.DB) *service.SettingsService {
	t.Helper()

	svc, err := service.NewSettingsService(repository.NewSettingRepository(db), TestFernetKey)
	if err != nil {
		t.Fatalf("failed to create settings service: %v", err)
	}
	return svc
}

// NewTestPortfolioService wires a PortfolioService over the given test
// database with fake market-data providers.
func NewTestPortfolioService(t *testing.T, db *sql.DB, quotes *FakeQuoteSource, rates *FakeRateProvider) *service.PortfolioService {
	t.Helper()

	return service.NewPortfolioService(
		repository.NewPortfolioRepository(db),
		NewTestHoldingService(t, db, quotes, rates),
		5*time.Second,
		zerolog.Nop(),
	)
}
