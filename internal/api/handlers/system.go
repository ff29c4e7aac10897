package handlers

import (
	"errors"
	"net/http"

	"github.com/meridianadvisory/portfolio-engine/internal/api/response"
	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/service"
)

// SystemHandler handles system-related HTTP requests
type SystemHandler struct {
	systemService *service.SystemService
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// Health checks the health of the system and database connectivity
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	// Check database health
	if err := h.systemService.CheckHealth(); err != nil {
		resp := HealthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
			Error:    err.Error(),
		}
		response.RespondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	// System is healthy
	resp := HealthResponse{
		Status:   "healthy",
		Database: "connected",
	}
	response.RespondJSON(w, http.StatusOK, resp)
}

// Version handles GET requests to retrieve version information and feature availability.
//
// Endpoint: GET /api/system/version
// Response: 200 OK with VersionInfo
// Error: 500 Internal Server Error if version check fails
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	info, err := h.systemService.GetVersionInfo()
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetVersionInfo.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, info)
}

// RateHistory handles GET requests to retrieve the persisted exchange rates
// for a currency pair, newest first.
//
// Endpoint: GET /api/system/rates/history?from=EUR&to=USD
// Response: 200 OK with array of ExchangeRate
// Error: 400 Bad Request if either currency code is missing or unknown
// Error: 500 Internal Server Error if retrieval fails
func (h *SystemHandler) RateHistory(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	history, err := h.systemService.RateHistory(from, to)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCurrency) {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidCurrency.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve rate history", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, history)
}
