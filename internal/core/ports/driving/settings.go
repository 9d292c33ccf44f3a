package driving

import "github.com/custodia-labs/ragdesk/internal/core/domain"

// SettingsService resolves application settings from the config file
// and the environment.
type SettingsService interface {
	// Get returns the effective settings.
	Get() (*domain.AppSettings, error)

	// Set persists a single configuration key.
	Set(key string, value any) error
}
