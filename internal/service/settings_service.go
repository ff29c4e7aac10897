package service

import (
	"fmt"

	"github.com/fernet/fernet-go"

	"github.com/meridianadvisory/portfolio-engine/internal/repository"
)

// ProviderTokenKey is the setting under which the market-data provider API
// token is stored.
const ProviderTokenKey = "provider_api_token"

// SettingsService reads and writes system settings. Secrets are stored
// fernet-encrypted; plain settings pass through untouched.
type SettingsService struct {
	settingRepo *repository.SettingRepository
	key         *fernet.Key
}

// NewSettingsService creates a new SettingsService. The fernet key is
// optional; without one, secret settings cannot be stored or read.
func NewSettingsService(settingRepo *repository.SettingRepository, fernetKey string) (*SettingsService, error) {
	s := &SettingsService{settingRepo: settingRepo}

	if fernetKey != "" {
		key, err := fernet.DecodeKey(fernetKey)
		if err != nil {
			return nil, fmt.Errorf("invalid fernet key: %w", err)
		}
		s.key = key
	}

	return s, nil
}

// GetSetting returns a setting value, decrypting it when stored encrypted.
func (s *SettingsService) GetSetting(key string) (string, error) {
	value, encrypted, err := s.settingRepo.GetSetting(key)
	if err != nil {
		return "", err
	}
	if !encrypted {
		return value, nil
	}

	if s.key == nil {
		return "", fmt.Errorf("setting %s is encrypted but no fernet key is configured", key)
	}
	// TTL 0: stored secrets do not expire.
	plain := fernet.VerifyAndDecrypt([]byte(value), 0, []*fernet.Key{s.key})
	if plain == nil {
		return "", fmt.Errorf("failed to decrypt setting %s", key)
	}
	return string(plain), nil
}

// SetSetting stores a plain setting value.
func (s *SettingsService) SetSetting(key, value string) error {
	return s.settingRepo.SetSetting(key, value, false)
}

// SetSecret stores a setting value fernet-encrypted.
func (s *SettingsService) SetSecret(key, value string) error {
	if s.key == nil {
		return fmt.Errorf("cannot store secret %s: no fernet key is configured", key)
	}
	token, err := fernet.EncryptAndSign([]byte(value), s.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt setting %s: %w", key, err)
	}
	return s.settingRepo.SetSetting(key, string(token), true)
}
