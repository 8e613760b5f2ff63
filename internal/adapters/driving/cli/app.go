package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/specforge/internal/adapters/driven/ai"
	"github.com/custodia-labs/specforge/internal/adapters/driven/config/file"
	"github.com/custodia-labs/specforge/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/specforge/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/specforge/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
	"github.com/custodia-labs/specforge/internal/core/services"
	"github.com/custodia-labs/specforge/internal/logger"
)

// apiKeyEnv overrides the configured API key when set.
const apiKeyEnv = "SPECFORGE_API_KEY"

// closeTimeout bounds the final flush of pending session writes.
const closeTimeout = 10 * time.Second

// application owns every adapter and service for one CLI invocation.
type application struct {
	dir       string
	settings  *domain.AppSettings
	settingsS *services.SettingsService
	core      *services.Core
	prompts   *file.PromptStore
	templates *file.TemplateStore
	closers   []func() error
}

type appOptions struct {
	// Dir is the configuration directory. Empty means ~/.specforge.
	Dir string

	// Ephemeral keeps sessions in memory regardless of settings.
	Ephemeral bool
}

func newApplication(opts appOptions) (*application, error) {
	dir := opts.Dir
	if dir == "" {
		var err error
		if dir, err = file.DefaultDir(); err != nil {
			return nil, err
		}
	}

	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsS := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsS.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if key := os.Getenv(apiKeyEnv); key != "" {
		settings.LLM.APIKey = key
	}
	if opts.Ephemeral {
		settings.Storage.Backend = domain.StorageMemory
	}

	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		return nil, err
	}
	templates, err := file.NewTemplateStore(dir)
	if err != nil {
		return nil, fmt.Errorf("load document types: %w", err)
	}

	a := &application{
		dir:       dir,
		settings:  settings,
		settingsS: settingsS,
		prompts:   prompts,
		templates: templates,
	}

	store, err := a.openStore(settings.Storage)
	if err != nil {
		return nil, err
	}

	aiResult := ai.Init(settings)
	for _, w := range aiResult.Warnings {
		logger.Warn("%s", w)
	}
	a.closers = append(a.closers, func() error {
		aiResult.Close()
		return nil
	})

	a.core = services.NewCore(services.Deps{
		Store:     store,
		Prompts:   prompts,
		Templates: templates,
		LLM:       aiResult.LLMService,
		Images:    aiResult.ImageGenerator,
		Settings:  *settings,
	})
	return a, nil
}

// openStore opens the configured session store and registers its closer.
func (a *application) openStore(cfg domain.StorageSettings) (driven.SessionStore, error) {
	switch cfg.Backend {
	case domain.StorageMemory:
		logger.Debug("sessions kept in memory")
		return memory.NewSessionStore(), nil
	case domain.StorageRedis:
		store, err := redis.NewStore(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		logger.Debug("sessions stored in redis")
		return store, nil
	default:
		dataDir := cfg.DataDir
		if dataDir == "" {
			dataDir = filepath.Join(a.dir, "data")
		}
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		logger.Debug("sessions stored in %s", store.Path())
		return store, nil
	}
}

// bind points the package-level ports at this application's services.
func (a *application) bind() {
	settingsService = a.settingsS
	sessionService = a.core.Sessions
	generationService = a.core.Orchestrator
	verificationService = a.core.Verification
	proxyService = a.core.Proxy
	catalogService = a.core.Catalog
}

// Close flushes pending writes, then releases adapters in reverse order.
func (a *application) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	var errs []error
	if a.core != nil {
		if err := a.core.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush sessions: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
