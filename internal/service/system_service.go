package service

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/database"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
	"github.com/meridianadvisory/portfolio-engine/internal/money"
	"github.com/meridianadvisory/portfolio-engine/internal/repository"
	"github.com/meridianadvisory/portfolio-engine/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db       *sql.DB
	rateRepo *repository.RateRepository
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB, rateRepo *repository.RateRepository) *SystemService {
	return &SystemService{
		db:       db,
		rateRepo: rateRepo,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// GetVersionInfo returns the application version, the applied schema version,
// and the features this build exposes.
func (s *SystemService) GetVersionInfo() (model.VersionInfo, error) {
	var dbVersion int64
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version_id), 0) FROM goose_db_version`).Scan(&dbVersion)
	if err != nil {
		return model.VersionInfo{}, fmt.Errorf("failed to read schema version: %w", err)
	}

	return model.VersionInfo{
		AppVersion: version.Version,
		DbVersion:  fmt.Sprintf("%d", dbVersion),
		Features: map[string]bool{
			"multi_currency":   true,
			"stale_fallback":   true,
			"holdings_rebuild": true,
		},
	}, nil
}

// RateHistory returns every persisted exchange rate for a currency pair,
// newest first. Both codes must be known ISO 4217 currencies.
func (s *SystemService) RateHistory(from, to string) ([]model.ExchangeRate, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if !money.ValidCurrency(from) || !money.ValidCurrency(to) {
		return nil, apperrors.ErrInvalidCurrency
	}

	return s.rateRepo.GetRateHistory(from, to)
}
