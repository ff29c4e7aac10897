package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridianadvisory/portfolio-engine/internal/api/request"
	"github.com/meridianadvisory/portfolio-engine/internal/api/response"
	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
	"github.com/meridianadvisory/portfolio-engine/internal/money"
	"github.com/meridianadvisory/portfolio-engine/internal/service"
	"github.com/meridianadvisory/portfolio-engine/internal/validation"

	"github.com/shopspring/decimal"
)

// TransactionHandler handles HTTP requests for transaction endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the transactionService.
type TransactionHandler struct {
	transactionService *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler with the provided service dependency.
func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

// TransactionsPerPortfolio handles GET requests to retrieve all transactions for a specific portfolio.
//
// Endpoint: GET /api/transaction/portfolio/{uuid}
// Response: 200 OK with array of Transaction in replay order
// Error: 400 Bad Request if portfolio ID is invalid (validated by middleware)
// Error: 404 Not Found if the portfolio does not exist
// Error: 500 Internal Server Error if retrieval fails
func (h *TransactionHandler) TransactionsPerPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "uuid")

	transactions, err := h.transactionService.GetTransactionsOnPortfolioID(portfolioID)
	if err != nil {
		if errors.Is(err, apperrors.ErrPortfolioNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrPortfolioNotFound.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTransactions.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transactions)
}

// GetTransaction handles GET requests to retrieve a single transaction by ID.
//
// Endpoint: GET /api/transaction/{uuid}
// Response: 200 OK with Transaction
// Error: 400 Bad Request if transaction ID is invalid (validated by middleware)
// Error: 404 Not Found if transaction not found
// Error: 500 Internal Server Error if retrieval fails
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "uuid")

	transaction, err := h.transactionService.GetTransaction(transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTransactionNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrTransactionNotFound.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTransaction.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transaction)
}

// CreateTransaction handles POST requests to submit a new transaction.
// The submission passes through the cost-basis ledger before anything is
// persisted; ledger rejections come back as 422 with the typed error detail.
//
// Endpoint: POST /api/transaction
// Request Body: CreateTransactionRequest
// Response: 201 Created with Transaction
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 404 Not Found if the portfolio does not exist
// Error: 422 Unprocessable Entity on overdraft or currency mismatch
// Error: 500 Internal Server Error if persistence fails
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateTransactionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateTransaction(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	transaction, err := h.transactionService.SubmitTransaction(r.Context(), toTransaction(req))
	if err != nil {
		respondSubmitError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusCreated, transaction)
}

// DeleteTransaction handles DELETE requests to remove a transaction.
// The affected holding is rebuilt from the remaining history.
//
// Endpoint: DELETE /api/transaction/{uuid}
// Response: 204 No Content
// Error: 400 Bad Request if transaction ID is invalid (validated by middleware)
// Error: 404 Not Found if transaction not found
// Error: 500 Internal Server Error if deletion fails
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "uuid")

	if err := h.transactionService.DeleteTransaction(r.Context(), transactionID); err != nil {
		if errors.Is(err, apperrors.ErrTransactionNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrTransactionNotFound.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to delete transaction", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// toTransaction converts a validated request into the model. Parse errors
// cannot occur past validation, so failed parses become zero values.
func toTransaction(req request.CreateTransactionRequest) model.Transaction {
	quantity, _ := decimal.NewFromString(req.Quantity)
	unitPrice, _ := decimal.NewFromString(req.UnitPrice)
	fees := decimal.Zero
	if req.Fees != "" {
		fees, _ = decimal.NewFromString(req.Fees)
	}
	occurredAt, _ := validation.ParseTime(req.OccurredAt)

	return model.Transaction{
		PortfolioID: req.PortfolioID,
		Symbol:      req.Symbol,
		Kind:        model.TransactionKind(req.Kind),
		Quantity:    quantity,
		UnitPrice:   money.New(unitPrice, req.Currency),
		Fees:        money.New(fees, req.Currency),
		Currency:    req.Currency,
		OccurredAt:  occurredAt,
	}
}

// respondSubmitError maps submission failures to HTTP statuses. Ledger
// rejections are well-formed requests the accounting rules refuse, hence 422.
func respondSubmitError(w http.ResponseWriter, err error) {
	var overdraft *apperrors.OverdraftError
	if errors.As(err, &overdraft) {
		response.RespondError(w, http.StatusUnprocessableEntity, "sell exceeds held quantity", overdraft.Error())
		return
	}

	var mismatch *apperrors.CurrencyMismatchError
	if errors.As(err, &mismatch) {
		response.RespondError(w, http.StatusUnprocessableEntity, "transaction currency does not match holding", mismatch.Error())
		return
	}

	if errors.Is(err, apperrors.ErrPortfolioNotFound) {
		response.RespondError(w, http.StatusNotFound, apperrors.ErrPortfolioNotFound.Error(), "")
		return
	}

	response.RespondError(w, http.StatusInternalServerError, "failed to create transaction", err.Error())
}
