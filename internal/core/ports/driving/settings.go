package driving

import "github.com/custodia-labs/recall-cli/internal/core/domain"

// SettingsService manages global pipeline settings.
type SettingsService interface {
	// Get retrieves the current settings, falling back to defaults for
	// unset keys.
	Get() (*domain.Settings, error)

	// Save validates and persists settings.
	Save(settings *domain.Settings) error

	// GetDefaults returns the standard settings.
	GetDefaults() domain.Settings

	// Validate checks settings for internal consistency.
	Validate(settings *domain.Settings) error
}
