package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meridianadvisory/portfolio-engine/internal/ledger"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
	"github.com/meridianadvisory/portfolio-engine/internal/repository"
)

// TransactionService is the trading-entry boundary. Every transaction passes
// through SubmitTransaction, which applies it to the holding's cost-basis
// state and persists both atomically. A transaction the ledger rejects is
// never persisted.
type TransactionService struct {
	transactionRepo *repository.TransactionRepository
	holdingRepo     *repository.HoldingRepository
	portfolioRepo   *repository.PortfolioRepository
	transactor      *repository.Transactor
	locks           *ledger.KeyedMutex
	log             zerolog.Logger
}

// NewTransactionService creates a new TransactionService with the provided repository dependencies.
func NewTransactionService(
	transactionRepo *repository.TransactionRepository,
	holdingRepo *repository.HoldingRepository,
	portfolioRepo *repository.PortfolioRepository,
	transactor *repository.Transactor,
	log zerolog.Logger,
) *TransactionService {
	return &TransactionService{
		transactionRepo: transactionRepo,
		holdingRepo:     holdingRepo,
		portfolioRepo:   portfolioRepo,
		transactor:      transactor,
		locks:           ledger.NewKeyedMutex(),
		log:             log,
	}
}

// SubmitTransaction validates, applies, and persists one transaction.
//
// The read-modify-write of the holding is serialized per (portfolio, symbol)
// through a keyed mutex, so concurrent buys and sells against one holding
// apply in a deterministic sequence. Ledger rejections (overdraft, currency
// mismatch) surface as typed errors and leave no trace in storage.
//
// A transaction dated after everything already recorded folds incrementally
// onto the stored state. A backdated transaction cannot: it belongs earlier
// in the fold, so the holding is recomputed by replaying the full history
// with the new transaction in timestamp order. Either way the persisted
// state equals what a replay of the stored rows would produce.
func (s *TransactionService) SubmitTransaction(ctx context.Context, t model.Transaction) (model.Transaction, error) {
	if _, err := s.portfolioRepo.GetPortfolioOnID(t.PortfolioID); err != nil {
		return model.Transaction{}, err
	}

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.CreatedAt = time.Now().UTC()

	unlock := s.locks.Lock(t.PortfolioID, t.Symbol)
	defer unlock()

	next, err := s.applyToHolding(t)
	if err != nil {
		if isLedgerRejection(err) {
			s.log.Info().
				Err(err).
				Str("portfolio_id", t.PortfolioID).
				Str("symbol", t.Symbol).
				Str("kind", string(t.Kind)).
				Msg("transaction rejected")
		}
		return model.Transaction{}, err
	}

	err = s.transactor.WithinTx(func(tx *sql.Tx) error {
		if err := s.transactionRepo.CreateTransaction(tx, &t); err != nil {
			return err
		}
		return s.persistState(tx, next)
	})
	if err != nil {
		return model.Transaction{}, err
	}

	return t, nil
}

// applyToHolding computes the holding state after t. The caller must hold
// the keyed mutex for (t.PortfolioID, t.Symbol).
func (s *TransactionService) applyToHolding(t model.Transaction) (model.HoldingState, error) {
	history, err := s.transactionRepo.GetTransactionsForHolding(t.PortfolioID, t.Symbol)
	if err != nil {
		return model.HoldingState{}, err
	}

	if n := len(history); n > 0 && t.OccurredAt.Before(history[n-1].OccurredAt) {
		// The stored seq will be larger than every existing one; a
		// provisional value past the history's maximum replays the
		// transaction in the same position it will occupy once persisted.
		t.Seq = history[n-1].Seq + 1
		return ledger.Replay(t.PortfolioID, t.Symbol, append(history, t))
	}

	state, err := s.loadState(t.PortfolioID, t.Symbol)
	if err != nil {
		return model.HoldingState{}, err
	}
	return ledger.Apply(state, t)
}

// DeleteTransaction removes a transaction and rebuilds the affected holding
// by replaying the remaining history. Replay equivalence guarantees the
// rebuilt state matches what incremental application of the surviving
// transactions would have produced.
func (s *TransactionService) DeleteTransaction(ctx context.Context, transactionID string) error {
	t, err := s.transactionRepo.GetTransactionOnID(transactionID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(t.PortfolioID, t.Symbol)
	defer unlock()

	history, err := s.transactionRepo.GetTransactionsForHolding(t.PortfolioID, t.Symbol)
	if err != nil {
		return err
	}

	remaining := make([]model.Transaction, 0, len(history))
	for _, tx := range history {
		if tx.ID != transactionID {
			remaining = append(remaining, tx)
		}
	}

	state, err := ledger.Replay(t.PortfolioID, t.Symbol, remaining)
	if err != nil {
		return err
	}

	return s.transactor.WithinTx(func(tx *sql.Tx) error {
		if err := s.transactionRepo.DeleteTransaction(tx, transactionID); err != nil {
			return err
		}
		return s.persistState(tx, state)
	})
}

// GetTransactionsOnPortfolioID returns a portfolio's transactions in replay order.
func (s *TransactionService) GetTransactionsOnPortfolioID(portfolioID string) ([]model.Transaction, error) {
	if _, err := s.portfolioRepo.GetPortfolioOnID(portfolioID); err != nil {
		return nil, err
	}
	return s.transactionRepo.GetTransactionsOnPortfolioID(portfolioID)
}

// GetTransaction retrieves a single transaction by its ID.
func (s *TransactionService) GetTransaction(transactionID string) (model.Transaction, error) {
	return s.transactionRepo.GetTransactionOnID(transactionID)
}

func (s *TransactionService) loadState(portfolioID, symbol string) (model.HoldingState, error) {
	state, err := s.holdingRepo.GetHolding(portfolioID, symbol)
	if err == nil {
		return state, nil
	}
	if isNotFound(err) {
		return ledger.NewState(portfolioID, symbol), nil
	}
	return model.HoldingState{}, err
}

// persistState writes the post-apply holding state. A fully liquidated
// holding is deleted rather than kept at zero.
func (s *TransactionService) persistState(tx *sql.Tx, state model.HoldingState) error {
	if state.Empty() {
		return s.holdingRepo.DeleteHolding(tx, state.PortfolioID, state.Symbol)
	}
	state.UpdatedAt = time.Now().UTC()
	return s.holdingRepo.UpsertHolding(tx, state)
}
