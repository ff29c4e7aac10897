package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
	"github.com/meridianadvisory/portfolio-engine/internal/money"
	"github.com/meridianadvisory/portfolio-engine/internal/repository"
	"github.com/meridianadvisory/portfolio-engine/internal/valuation"
)

// PortfolioService handles portfolio-related business logic operations.
// It coordinates holding valuation and aggregation into portfolio summaries
// denominated in the owner's display currency.
type PortfolioService struct {
	portfolioRepo    *repository.PortfolioRepository
	holdingService   *HoldingService
	valuationTimeout time.Duration
	log              zerolog.Logger
}

// NewPortfolioService creates a new PortfolioService with the provided
// dependencies. valuationTimeout bounds one summary's market-data fetches;
// a hung provider degrades to the fallback paths instead of holding the
// request open.
func NewPortfolioService(
	portfolioRepo *repository.PortfolioRepository,
	holdingService *HoldingService,
	valuationTimeout time.Duration,
	log zerolog.Logger,
) *PortfolioService {
	return &PortfolioService{
		portfolioRepo:    portfolioRepo,
		holdingService:   holdingService,
		valuationTimeout: valuationTimeout,
		log:              log,
	}
}

// GetAllPortfolios retrieves all portfolios with no filters applied.
func (s *PortfolioService) GetAllPortfolios() ([]model.Portfolio, error) {
	return s.portfolioRepo.GetPortfolios(model.PortfolioFilter{
		IncludeArchived: true,
	})
}

// GetPortfolio retrieves a single portfolio by its ID.
func (s *PortfolioService) GetPortfolio(portfolioID string) (model.Portfolio, error) {
	return s.portfolioRepo.GetPortfolioOnID(portfolioID)
}

// CreatePortfolio creates a new portfolio. The display currency is required
// and must be a known ISO 4217 code; the engine never infers a default.
func (s *PortfolioService) CreatePortfolio(p model.Portfolio) (model.Portfolio, error) {
	if p.DisplayCurrency == "" {
		return model.Portfolio{}, apperrors.ErrMissingDisplayCurrency
	}
	if !money.ValidCurrency(p.DisplayCurrency) {
		return model.Portfolio{}, apperrors.ErrInvalidCurrency
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if err := s.portfolioRepo.CreatePortfolio(p); err != nil {
		return model.Portfolio{}, err
	}
	return p, nil
}

// GetPortfolioSummary valuates all of a portfolio's holdings and aggregates
// them into totals in the owner's display currency.
//
// Holdings are valuated in parallel; each resolves its own quote and rate, so
// one symbol's slow or failing provider does not block the rest. Advisory
// degradation (stale quotes, missing rates) is absorbed into the per-holding
// flags and the aggregate Degraded count rather than failing the summary.
func (s *PortfolioService) GetPortfolioSummary(ctx context.Context, portfolioID string) (model.PortfolioSummary, error) {
	portfolio, err := s.portfolioRepo.GetPortfolioOnID(portfolioID)
	if err != nil {
		return model.PortfolioSummary{}, err
	}
	if portfolio.DisplayCurrency == "" {
		return model.PortfolioSummary{}, apperrors.ErrMissingDisplayCurrency
	}

	states, err := s.holdingService.GetHoldings(portfolioID)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.valuationTimeout)
	defer cancel()

	valuated := make([]model.ValuatedHolding, len(states))

	g, gctx := errgroup.WithContext(ctx)
	for i, state := range states {
		i, state := i, state
		g.Go(func() error {
			h, err := s.holdingService.ValuateHolding(gctx, state, portfolio.DisplayCurrency)
			if err != nil && !isAdvisory(err) {
				return err
			}
			valuated[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("portfolio valuation failed")
		return model.PortfolioSummary{}, apperrors.ErrFailedToGetPortfolioSummary
	}

	totals := valuation.Aggregate(portfolio.DisplayCurrency, valuated)
	if totals.Degraded > 0 {
		s.log.Warn().
			Str("portfolio_id", portfolioID).
			Int("degraded", totals.Degraded).
			Msg("portfolio summary includes degraded valuations")
	}

	return model.PortfolioSummary{
		Portfolio: portfolio,
		Holdings:  valuated,
		Totals:    totals,
	}, nil
}

// isAdvisory reports whether a valuation error signals degraded data rather
// than failure. Advisory errors come with a usable snapshot.
func isAdvisory(err error) bool {
	return errors.Is(err, apperrors.ErrStaleQuote) ||
		errors.Is(err, apperrors.ErrRateUnavailable)
}
