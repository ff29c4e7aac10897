package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/ledger"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
	"github.com/meridianadvisory/portfolio-engine/internal/quote"
	"github.com/meridianadvisory/portfolio-engine/internal/repository"
	"github.com/meridianadvisory/portfolio-engine/internal/valuation"
)

// HoldingService reads holding state and valuates it with market data.
// It owns the quote fallback chain: live provider quote first, then the last
// persisted quote flagged stale, then cost-only figures.
type HoldingService struct {
	holdingRepo     *repository.HoldingRepository
	transactionRepo *repository.TransactionRepository
	portfolioRepo   *repository.PortfolioRepository
	quoteRepo       *repository.QuoteRepository
	transactor      *repository.Transactor
	quotes          quote.Source
	valuator        *valuation.Valuator
	log             zerolog.Logger
}

// NewHoldingService creates a new HoldingService with the provided dependencies.
func NewHoldingService(
	holdingRepo *repository.HoldingRepository,
	transactionRepo *repository.TransactionRepository,
	portfolioRepo *repository.PortfolioRepository,
	quoteRepo *repository.QuoteRepository,
	transactor *repository.Transactor,
	quotes quote.Source,
	valuator *valuation.Valuator,
	log zerolog.Logger,
) *HoldingService {
	return &HoldingService{
		holdingRepo:     holdingRepo,
		transactionRepo: transactionRepo,
		portfolioRepo:   portfolioRepo,
		quoteRepo:       quoteRepo,
		transactor:      transactor,
		quotes:          quotes,
		valuator:        valuator,
		log:             log,
	}
}

// GetHoldings returns the raw holding states for a portfolio.
func (s *HoldingService) GetHoldings(portfolioID string) ([]model.HoldingState, error) {
	if _, err := s.portfolioRepo.GetPortfolioOnID(portfolioID); err != nil {
		return nil, err
	}
	return s.holdingRepo.GetHoldingsOnPortfolioID(portfolioID)
}

// ValuateHolding produces the valuation snapshot for one holding state in the
// given display currency.
//
// The returned error is advisory when the valuation itself succeeded on
// degraded data (ErrStaleQuote, ErrRateUnavailable); the snapshot is still
// usable and carries the corresponding flags.
func (s *HoldingService) ValuateHolding(ctx context.Context, state model.HoldingState, displayCurrency string) (model.ValuatedHolding, error) {
	q, stale := s.resolveQuote(ctx, state.Symbol)
	return s.valuator.Valuate(ctx, state, q, stale, displayCurrency)
}

// resolveQuote fetches a live quote, persisting it on success. On failure it
// falls back to the last persisted quote, reported stale. Returns nil when no
// price was ever recorded for the symbol.
func (s *HoldingService) resolveQuote(ctx context.Context, symbol string) (*model.Quote, bool) {
	q, err := s.quotes.LatestQuote(ctx, symbol)
	if err == nil {
		if saveErr := s.quoteRepo.UpsertQuote(q); saveErr != nil {
			s.log.Warn().Err(saveErr).Str("symbol", symbol).Msg("failed to persist quote")
		}
		return &q, false
	}

	s.log.Warn().Err(err).Str("symbol", symbol).Msg("quote provider unavailable, falling back to persisted price")

	persisted, repoErr := s.quoteRepo.GetQuoteOnSymbol(symbol)
	if repoErr != nil {
		if !isNotFound(repoErr) {
			s.log.Error().Err(repoErr).Str("symbol", symbol).Msg("failed to load persisted quote")
		}
		return nil, true
	}
	return &persisted, true
}

// RebuildHoldings discards a portfolio's derived holding state and recomputes
// it by full replay of the transaction history. This is the repair path:
// because replay must equal incremental application, a rebuild of an
// uncorrupted portfolio is a no-op.
func (s *HoldingService) RebuildHoldings(ctx context.Context, portfolioID string) ([]model.HoldingState, error) {
	if _, err := s.portfolioRepo.GetPortfolioOnID(portfolioID); err != nil {
		return nil, err
	}

	txs, err := s.transactionRepo.GetTransactionsOnPortfolioID(portfolioID)
	if err != nil {
		return nil, err
	}

	bySymbol := make(map[string][]model.Transaction)
	for _, t := range txs {
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], t)
	}

	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	now := time.Now().UTC()
	rebuilt := []model.HoldingState{}

	for _, symbol := range symbols {
		state, err := ledger.Replay(portfolioID, symbol, bySymbol[symbol])
		if err != nil {
			return nil, err
		}
		if !state.Empty() {
			state.UpdatedAt = now
			rebuilt = append(rebuilt, state)
		}
	}

	err = s.transactor.WithinTx(func(tx *sql.Tx) error {
		if err := s.holdingRepo.DeleteHoldingsOnPortfolioID(tx, portfolioID); err != nil {
			return err
		}
		for _, state := range rebuilt {
			if err := s.holdingRepo.UpsertHolding(tx, state); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.ErrFailedToRebuildHoldings
	}

	s.log.Info().
		Str("portfolio_id", portfolioID).
		Int("holdings", len(rebuilt)).
		Int("transactions", len(txs)).
		Msg("holdings rebuilt from transaction history")

	return rebuilt, nil
}
