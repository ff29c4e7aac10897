package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridianadvisory/portfolio-engine/internal/api/response"
	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/service"
)

// HoldingHandler handles HTTP requests for holding endpoints.
type HoldingHandler struct {
	holdingService *service.HoldingService
}

// NewHoldingHandler creates a new HoldingHandler with the provided service dependency.
func NewHoldingHandler(holdingService *service.HoldingService) *HoldingHandler {
	return &HoldingHandler{
		holdingService: holdingService,
	}
}

// HoldingsPerPortfolio handles GET requests to retrieve a portfolio's raw
// holding states (quantity, cost basis, native currency).
//
// Endpoint: GET /api/portfolio/{uuid}/holdings
// Response: 200 OK with array of HoldingState
// Error: 400 Bad Request if portfolio ID is invalid (validated by middleware)
// Error: 404 Not Found if the portfolio does not exist
// Error: 500 Internal Server Error if retrieval fails
func (h *HoldingHandler) HoldingsPerPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "uuid")

	holdings, err := h.holdingService.GetHoldings(portfolioID)
	if err != nil {
		if errors.Is(err, apperrors.ErrPortfolioNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrPortfolioNotFound.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveHoldings.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, holdings)
}

// RebuildHoldings handles POST requests to recompute a portfolio's holdings
// by full replay of its transaction history. For an uncorrupted portfolio
// this is a no-op; it exists as the repair path.
//
// Endpoint: POST /api/portfolio/{uuid}/holdings/rebuild
// Response: 200 OK with the rebuilt array of HoldingState
// Error: 400 Bad Request if portfolio ID is invalid (validated by middleware)
// Error: 404 Not Found if the portfolio does not exist
// Error: 500 Internal Server Error if the rebuild fails
func (h *HoldingHandler) RebuildHoldings(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "uuid")

	holdings, err := h.holdingService.RebuildHoldings(r.Context(), portfolioID)
	if err != nil {
		if errors.Is(err, apperrors.ErrPortfolioNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrPortfolioNotFound.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRebuildHoldings.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, holdings)
}
