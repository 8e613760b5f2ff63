package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies a hosted or local model provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGemini, AIProviderAnthropic, AIProviderOpenAI, AIProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p != AIProviderOllama
}

// SupportsImages returns true if the provider can render image markers.
func (p AIProvider) SupportsImages() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderGemini:
		return "Gemini (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	default:
		return unknownDescription
	}
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	Provider AIProvider
	Model    string

	// BaseURL overrides the provider endpoint. Required for Ollama.
	BaseURL string

	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// GenerationSettings tunes model calls.
type GenerationSettings struct {
	Temperature       float64
	VerifyTemperature float64
	MaxOutputTokens   int

	// RequestsPerMinute caps outgoing model calls. Zero disables the limit.
	RequestsPerMinute int
}

// StorageBackend selects the session store implementation.
type StorageBackend string

// Available storage backends.
const (
	StorageSQLite StorageBackend = "sqlite"
	StorageRedis  StorageBackend = "redis"
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageSQLite, StorageRedis, StorageMemory:
		return true
	default:
		return false
	}
}

// StorageSettings holds session persistence configuration.
type StorageSettings struct {
	Backend  StorageBackend
	DataDir  string
	RedisURL string

	// Debounce is the coalescing window for session writes.
	Debounce time.Duration

	MaxMessages       int
	MaxVersionsPerDoc int
}

// TrimPolicy returns the trim limits for persisted sessions.
func (s StorageSettings) TrimPolicy() TrimPolicy {
	p := DefaultTrimPolicy()
	if s.MaxMessages > 0 {
		p.MaxMessages = s.MaxMessages
	}
	if s.MaxVersionsPerDoc > 0 {
		p.MaxVersionsPerDoc = s.MaxVersionsPerDoc
	}
	return p
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	Addr string
}

// ImageSettings controls inline image rendering.
type ImageSettings struct {
	Enabled     bool
	Model       string
	Concurrency int
}

// AppSettings holds all application settings.
type AppSettings struct {
	LLM        LLMSettings
	Generation GenerationSettings
	Storage    StorageSettings
	Server     ServerSettings
	Images     ImageSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The LLM provider is left without an API key; users configure it explicitly.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LLM: LLMSettings{
			Provider: AIProviderGemini,
			Model:    DefaultLLMModels()[AIProviderGemini],
		},
		Generation: GenerationSettings{
			Temperature:       0.7,
			VerifyTemperature: 0.2,
			MaxOutputTokens:   8192,
			RequestsPerMinute: 30,
		},
		Storage: StorageSettings{
			Backend:           StorageSQLite,
			Debounce:          300 * time.Millisecond,
			MaxMessages:       DefaultMaxMessages,
			MaxVersionsPerDoc: DefaultMaxVersionsPerDoc,
		},
		Server: ServerSettings{
			Addr: "127.0.0.1:8080",
		},
		Images: ImageSettings{
			Enabled:     false,
			Model:       "dall-e-3",
			Concurrency: 4,
		},
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderAnthropic,
		AIProviderOpenAI,
		AIProviderOllama,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini:    "gemini-2.0-flash",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderOllama:    "llama3.2",
	}
}
