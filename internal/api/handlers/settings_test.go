package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meridianadvisory/portfolio-engine/internal/testutil"
)

func TestSettingsHandler_ProviderToken(t *testing.T) {
	setupHandler := func(t *testing.T) (*SettingsHandler, *sql.DB) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		ss := testutil.NewTestSettingsService(t, db)
		return NewSettingsHandler(ss), db
	}

	t.Run("reports unconfigured before a token is stored", func(t *testing.T) {
		handler, _ := setupHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/api/system/settings/provider-token", nil)
		w := httptest.NewRecorder()
		handler.ProviderToken(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var status ProviderTokenStatus
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&status)

		if status.Configured {
			t.Error("Expected configured=false before storing a token")
		}
	})

	t.Run("stores the token and never echoes it back", func(t *testing.T) {
		handler, db := setupHandler(t)

		body := []byte(`{"token":"secret-api-token"}`)
		req := httptest.NewRequest(http.MethodPut, "/api/system/settings/provider-token", bytes.NewReader(body))
		w := httptest.NewRecorder()
		handler.SetProviderToken(w, req)

		if w.Code != http.StatusNoContent {
			t.Fatalf("Expected 204, got %d: %s", w.Code, w.Body.String())
		}

		// The stored value must be ciphertext, not the plain token.
		var stored string
		if err := db.QueryRow(`SELECT value FROM setting WHERE key = 'provider_api_token'`).Scan(&stored); err != nil {
			t.Fatalf("failed to read stored setting: %v", err)
		}
		if stored == "secret-api-token" {
			t.Error("Expected stored token to be encrypted")
		}

		getReq := httptest.NewRequest(http.MethodGet, "/api/system/settings/provider-token", nil)
		getW := httptest.NewRecorder()
		handler.ProviderToken(getW, getReq)

		raw := getW.Body.Bytes()
		if bytes.Contains(raw, []byte("secret-api-token")) {
			t.Error("Token must never appear in the status response")
		}

		var status ProviderTokenStatus
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.Unmarshal(raw, &status)

		if !status.Configured {
			t.Error("Expected configured=true after storing a token")
		}
	})

	t.Run("rejects an empty token", func(t *testing.T) {
		handler, _ := setupHandler(t)

		body := []byte(`{"token":"  "}`)
		req := httptest.NewRequest(http.MethodPut, "/api/system/settings/provider-token", bytes.NewReader(body))
		w := httptest.NewRecorder()
		handler.SetProviderToken(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}
