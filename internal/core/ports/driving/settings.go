package driving

import "github.com/custodia-labs/specforge/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks that current settings are usable.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig() error
}

// CatalogService exposes the document-type catalog.
type CatalogService interface {
	// DocTypes returns the catalog followed by any custom types used in the session.
	DocTypes(sessionDocs map[string]string) []domain.DocType

	// DocType resolves one key; unknown keys have nil metadata.
	DocType(key string) domain.DocType
}
