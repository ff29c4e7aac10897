package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/meridianadvisory/portfolio-engine/internal/fx"
	"github.com/meridianadvisory/portfolio-engine/internal/quote"
	"github.com/meridianadvisory/portfolio-engine/internal/repository"
)

// RefreshService keeps quotes and exchange rates warm on a cron schedule.
// Fresh data in the quote store and rate cache is what the degradation paths
// fall back to, so the refresher runs even though every valuation also
// fetches on demand.
type RefreshService struct {
	holdingRepo *repository.HoldingRepository
	quoteRepo   *repository.QuoteRepository
	quotes      quote.Source
	rates       *fx.Cache
	timeout     time.Duration
	cron        *cron.Cron
	log         zerolog.Logger
}

// NewRefreshService creates a new RefreshService with the provided dependencies.
func NewRefreshService(
	holdingRepo *repository.HoldingRepository,
	quoteRepo *repository.QuoteRepository,
	quotes quote.Source,
	rates *fx.Cache,
	timeout time.Duration,
	log zerolog.Logger,
) *RefreshService {
	return &RefreshService{
		holdingRepo: holdingRepo,
		quoteRepo:   quoteRepo,
		quotes:      quotes,
		rates:       rates,
		timeout:     timeout,
		cron:        cron.New(),
		log:         log.With().Str("component", "refresh").Logger(),
	}
}

// Start registers the refresh job and starts the cron loop.
func (s *RefreshService) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.RefreshAll(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("scheduled refresh failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register refresh schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.log.Info().Str("schedule", schedule).Msg("refresh scheduler started")
	return nil
}

// Stop stops the cron loop, waiting for a running job to finish.
func (s *RefreshService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("refresh scheduler stopped")
}

// RefreshAll refreshes quotes for every held symbol and rates for every
// (native, display) currency pair in use. Individual failures are logged and
// skipped; the next cycle retries them.
func (s *RefreshService) RefreshAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	symbols, err := s.holdingRepo.DistinctSymbols()
	if err != nil {
		return err
	}
	for _, symbol := range symbols {
		q, err := s.quotes.LatestQuote(ctx, symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("quote refresh failed")
			continue
		}
		if err := s.quoteRepo.UpsertQuote(q); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to persist refreshed quote")
		}
	}

	held, err := s.holdingRepo.DistinctCurrencyPairs()
	if err != nil {
		return err
	}

	// Union with the pairs already cached, so warm-started entries keep
	// refreshing even after the holding that introduced them is gone.
	seen := make(map[[2]string]struct{}, len(held))
	pairs := make([][2]string, 0, len(held))
	for _, pair := range append(held, s.rates.Pairs()...) {
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}
		pairs = append(pairs, pair)
	}
	for _, pair := range pairs {
		// GetRate fetches and persists when the cached entry has expired.
		if _, err := s.rates.GetRate(ctx, pair[0], pair[1]); err != nil {
			s.log.Warn().
				Err(err).
				Str("pair", pair[0]+"/"+pair[1]).
				Msg("rate refresh failed")
		}
	}

	s.log.Debug().
		Int("symbols", len(symbols)).
		Int("pairs", len(pairs)).
		Msg("refresh cycle complete")

	return nil
}
