package repository

import (
	"database/sql"
	"fmt"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
)

// SettingRepository provides data access methods for the setting table.
// Values flagged encrypted are fernet ciphertext; the settings service owns
// encryption and decryption.
type SettingRepository struct {
	db *sql.DB
}

// NewSettingRepository creates a new SettingRepository with the provided database connection.
func NewSettingRepository(db *sql.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// GetSetting retrieves a setting value and whether it is stored encrypted.
func (s *SettingRepository) GetSetting(key string) (string, bool, error) {
	var value string
	var encrypted bool

	err := s.db.QueryRow(`SELECT value, is_encrypted FROM setting WHERE key = ?`, key).
		Scan(&value, &encrypted)
	if err == sql.ErrNoRows {
		return "", false, apperrors.ErrSettingNotFound
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query setting: %w", err)
	}

	return value, encrypted, nil
}

// SetSetting writes a setting value, replacing any prior value.
func (s *SettingRepository) SetSetting(key, value string, encrypted bool) error {
	query := `
          INSERT INTO setting (key, value, is_encrypted)
          VALUES (?, ?, ?)
          ON CONFLICT (key) DO UPDATE SET
              value = excluded.value,
              is_encrypted = excluded.is_encrypted
      `
	_, err := s.db.Exec(query, key, value, encrypted)
	if err != nil {
		return fmt.Errorf("failed to upsert setting: %w", err)
	}

	return nil
}
