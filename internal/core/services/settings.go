package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLLMProvider        = "llm.provider"
	keyLLMModel           = "llm.model"
	keyLLMBaseURL         = "llm.base_url"
	keyLLMAPIKey          = "llm.api_key"
	keyTemperature        = "generation.temperature"
	keyVerifyTemperature  = "generation.verify_temperature"
	keyMaxOutputTokens    = "generation.max_output_tokens"
	keyRequestsPerMinute  = "generation.requests_per_minute"
	keyStorageBackend     = "storage.backend"
	keyStorageDataDir     = "storage.data_dir"
	keyStorageRedisURL    = "storage.redis_url"
	keyStorageDebounce    = "storage.debounce"
	keyStorageMaxMessages = "storage.max_messages"
	keyStorageMaxVersions = "storage.max_versions_per_doc"
	keyServerAddr         = "server.addr"
	keyImagesEnabled      = "images.enabled"
	keyImagesModel        = "images.model"
	keyImagesConcurrency  = "images.concurrency"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := s.getProvider(keyLLMProvider, defaults.LLM.Provider)
	model := s.configStore.GetString(keyLLMModel)
	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}

	debounce := defaults.Storage.Debounce
	if raw := s.configStore.GetString(keyStorageDebounce); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", keyStorageDebounce, err)
		}
		debounce = d
	}

	settings := &domain.AppSettings{
		LLM: domain.LLMSettings{
			Provider: provider,
			Model:    model,
			BaseURL:  s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Generation: domain.GenerationSettings{
			Temperature:       s.getFloat(keyTemperature, defaults.Generation.Temperature),
			VerifyTemperature: s.getFloat(keyVerifyTemperature, defaults.Generation.VerifyTemperature),
			MaxOutputTokens:   s.getInt(keyMaxOutputTokens, defaults.Generation.MaxOutputTokens),
			RequestsPerMinute: s.getInt(keyRequestsPerMinute, defaults.Generation.RequestsPerMinute),
		},
		Storage: domain.StorageSettings{
			Backend:           s.getBackend(defaults.Storage.Backend),
			DataDir:           s.configStore.GetString(keyStorageDataDir),
			RedisURL:          s.configStore.GetString(keyStorageRedisURL),
			Debounce:          debounce,
			MaxMessages:       s.getInt(keyStorageMaxMessages, defaults.Storage.MaxMessages),
			MaxVersionsPerDoc: s.getInt(keyStorageMaxVersions, defaults.Storage.MaxVersionsPerDoc),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, defaults.Server.Addr),
		},
		Images: domain.ImageSettings{
			Enabled:     s.getBool(keyImagesEnabled, defaults.Images.Enabled),
			Model:       s.getString(keyImagesModel, defaults.Images.Model),
			Concurrency: s.getInt(keyImagesConcurrency, defaults.Images.Concurrency),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyTemperature, settings.Generation.Temperature},
		{keyVerifyTemperature, settings.Generation.VerifyTemperature},
		{keyMaxOutputTokens, settings.Generation.MaxOutputTokens},
		{keyRequestsPerMinute, settings.Generation.RequestsPerMinute},
		{keyStorageBackend, string(settings.Storage.Backend)},
		{keyStorageDataDir, settings.Storage.DataDir},
		{keyStorageRedisURL, settings.Storage.RedisURL},
		{keyStorageDebounce, settings.Storage.Debounce.String()},
		{keyStorageMaxMessages, settings.Storage.MaxMessages},
		{keyStorageMaxVersions, settings.Storage.MaxVersionsPerDoc},
		{keyServerAddr, settings.Server.Addr},
		{keyImagesEnabled, settings.Images.Enabled},
		{keyImagesModel, settings.Images.Model},
		{keyImagesConcurrency, settings.Images.Concurrency},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// An empty key keeps the stored one so callers can save without re-entering it.
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	// Local providers need a base URL; cloud providers use their public endpoint.
	if provider == domain.AIProviderOllama {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %s is not configured", domain.ErrLLMUnavailable, settings.LLM.Provider)
	}
	if t := settings.Generation.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("%w: temperature %.2f out of range [0, 2]", domain.ErrInvalidInput, t)
	}
	if settings.Storage.Backend == domain.StorageRedis && settings.Storage.RedisURL == "" {
		return fmt.Errorf("%w: storage.redis_url is required for the redis backend", domain.ErrInvalidInput)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	backend := domain.StorageBackend(s.configStore.GetString(keyStorageBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
