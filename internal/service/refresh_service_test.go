package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridianadvisory/portfolio-engine/internal/fx"
	"github.com/meridianadvisory/portfolio-engine/internal/repository"
	"github.com/meridianadvisory/portfolio-engine/internal/service"
	"github.com/meridianadvisory/portfolio-engine/internal/testutil"
)

// TestRefreshService_RefreshAll tests the background refresh cycle.
//
// WHY: The refresher is what keeps the stale-fallback material fresh. It must
// cover not just the pairs currently held but also the pairs the cache was
// warm-started with, or a pair would stop refreshing the moment its holding
// is sold off.
func TestRefreshService_RefreshAll(t *testing.T) {
	ctx := context.Background()

	t.Run("expired warm-started pair is refetched without a holding", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		rateRepo := repository.NewRateRepository(db)

		// Persist a rate fetched well past the TTL, then warm-start from it.
		stale := time.Now().UTC().Add(-48 * time.Hour)
		if err := rateRepo.SaveRate("EUR", "USD", testutil.Dec("1.05"), stale); err != nil {
			t.Fatalf("SaveRate() returned unexpected error: %v", err)
		}

		rates := testutil.NewFakeRateProvider()
		rates.SetRate("EUR", "USD", "1.09")
		cache := fx.NewCache(rates, zerolog.Nop(), fx.WithStore(rateRepo))

		svc := service.NewRefreshService(
			repository.NewHoldingRepository(db),
			repository.NewQuoteRepository(db),
			testutil.NewFakeQuoteSource(),
			cache,
			time.Minute,
			zerolog.Nop(),
		)

		// Execute
		if err := svc.RefreshAll(ctx); err != nil {
			t.Fatalf("RefreshAll() returned unexpected error: %v", err)
		}

		// Assert
		history, err := rateRepo.GetRateHistory("EUR", "USD")
		if err != nil {
			t.Fatalf("GetRateHistory() returned unexpected error: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("Expected the refreshed rate persisted alongside the old one, got %d rows", len(history))
		}
		if !history[0].Rate.Equal(testutil.Dec("1.09")) {
			t.Errorf("Expected the refreshed rate 1.09 newest, got %s", history[0].Rate)
		}
	})

	t.Run("fresh cached pair is not refetched", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		rateRepo := repository.NewRateRepository(db)

		rates := testutil.NewFakeRateProvider()
		rates.SetRate("EUR", "USD", "1.08")
		cache := fx.NewCache(rates, zerolog.Nop(), fx.WithStore(rateRepo))

		// Prime the cache; the entry is well within the TTL.
		if _, err := cache.GetRate(ctx, "EUR", "USD"); err != nil {
			t.Fatalf("GetRate() returned unexpected error: %v", err)
		}

		svc := service.NewRefreshService(
			repository.NewHoldingRepository(db),
			repository.NewQuoteRepository(db),
			testutil.NewFakeQuoteSource(),
			cache,
			time.Minute,
			zerolog.Nop(),
		)

		// Execute
		if err := svc.RefreshAll(ctx); err != nil {
			t.Fatalf("RefreshAll() returned unexpected error: %v", err)
		}

		// Assert
		history, err := rateRepo.GetRateHistory("EUR", "USD")
		if err != nil {
			t.Fatalf("GetRateHistory() returned unexpected error: %v", err)
		}
		if len(history) != 1 {
			t.Errorf("Expected the primed rate only, got %d rows", len(history))
		}
	})
}
