package handlers

import (
	"net/http"
	"strings"

	"github.com/meridianadvisory/portfolio-engine/internal/api/response"
	"github.com/meridianadvisory/portfolio-engine/internal/service"
)

// SettingsHandler handles HTTP requests for system settings.
type SettingsHandler struct {
	settingsService *service.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler with the provided service dependency.
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
	}
}

// ProviderTokenRequest represents the request body for storing the
// market-data provider API token.
type ProviderTokenRequest struct {
	Token string `json:"token"`
}

// ProviderTokenStatus reports whether a provider token is configured. The
// token itself is never returned.
type ProviderTokenStatus struct {
	Configured bool `json:"configured"`
}

// SetProviderToken handles PUT requests to store the provider API token.
// The token is encrypted at rest.
//
// Endpoint: PUT /api/system/settings/provider-token
// Response: 204 No Content
// Error: 400 Bad Request if the token is empty
// Error: 500 Internal Server Error if storage or encryption fails
func (h *SettingsHandler) SetProviderToken(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[ProviderTokenRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		response.RespondError(w, http.StatusBadRequest, "token is required", "")
		return
	}

	if err := h.settingsService.SetSecret(service.ProviderTokenKey, req.Token); err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to store provider token", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// ProviderToken handles GET requests for the provider token status.
//
// Endpoint: GET /api/system/settings/provider-token
// Response: 200 OK with ProviderTokenStatus
func (h *SettingsHandler) ProviderToken(w http.ResponseWriter, r *http.Request) {
	_, err := h.settingsService.GetSetting(service.ProviderTokenKey)

	response.RespondJSON(w, http.StatusOK, ProviderTokenStatus{Configured: err == nil})
}
