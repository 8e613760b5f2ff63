package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/specforge/internal/adapters/driven/config/file"
	"github.com/custodia-labs/specforge/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the LLM provider, generation parameters, storage and
the HTTP server.

Use subcommands to configure specific settings.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Choose the LLM provider, model and API key used for chat, generation and verification.`,
	RunE:  runSettingsLLM,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting by key.

Keys:
  generation.temperature          Sampling temperature for chat and generation
  generation.verify_temperature   Sampling temperature for verification
  generation.max_output_tokens    Output token cap per request
  generation.requests_per_minute  Client-side request rate limit (0 = off)
  storage.backend                 sqlite, redis or memory
  storage.data_dir                SQLite directory
  storage.redis_url               Redis connection URL
  storage.debounce                Delay before a session write, e.g. 300ms
  server.addr                     HTTP listen address
  images.enabled                  Generate illustrations (OpenAI only)
  images.model                    Image model
  images.concurrency              Parallel image requests`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration directory",
	Args:  cobra.NoArgs,
	RunE:  runSettingsPath,
}

func init() {
	settingsPathCmd.Annotations = map[string]string{noSetup: "true"}

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsPathCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		if settings.LLM.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
		} else {
			cmd.Printf("  API Key: (not set, or use %s)\n", apiKeyEnv)
		}
	}
	status := "configured"
	if !settings.LLM.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Generation]")
	cmd.Printf("  Temperature: %.2f\n", settings.Generation.Temperature)
	cmd.Printf("  Verify temperature: %.2f\n", settings.Generation.VerifyTemperature)
	cmd.Printf("  Max output tokens: %d\n", settings.Generation.MaxOutputTokens)
	if settings.Generation.RequestsPerMinute > 0 {
		cmd.Printf("  Rate limit: %d requests/minute\n", settings.Generation.RequestsPerMinute)
	} else {
		cmd.Println("  Rate limit: off")
	}
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend)
	switch settings.Storage.Backend {
	case domain.StorageRedis:
		cmd.Printf("  Redis URL: %s\n", settings.Storage.RedisURL)
	case domain.StorageSQLite:
		if settings.Storage.DataDir != "" {
			cmd.Printf("  Data dir: %s\n", settings.Storage.DataDir)
		}
	}
	cmd.Printf("  Write debounce: %s\n", settings.Storage.Debounce)
	cmd.Printf("  Kept messages: %d\n", settings.Storage.MaxMessages)
	cmd.Printf("  Kept versions per document: %d\n", settings.Storage.MaxVersionsPerDoc)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Println()

	cmd.Println("[Images]")
	if settings.Images.Enabled {
		cmd.Printf("  Enabled: yes (%s, %d parallel)\n", settings.Images.Model, settings.Images.Concurrency)
	} else {
		cmd.Println("  Enabled: no")
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'specforge settings llm' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	defaultModel := domain.DefaultLLMModels()[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n", selectedProvider.Description(), model)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := applySetting(settings, args[0], args[1]); err != nil {
		return err
	}
	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("%s = %s\n", args[0], args[1])
	return nil
}

func runSettingsPath(cmd *cobra.Command, _ []string) error {
	dir := configDir
	if dir == "" {
		var err error
		if dir, err = file.DefaultDir(); err != nil {
			return err
		}
	}
	cmd.Println(filepath.Clean(dir))
	return nil
}

// applySetting parses value and stores it under key.
func applySetting(s *domain.AppSettings, key, value string) error {
	invalid := func(err error) error {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}

	switch key {
	case "generation.temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return invalid(err)
		}
		s.Generation.Temperature = f
	case "generation.verify_temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return invalid(err)
		}
		s.Generation.VerifyTemperature = f
	case "generation.max_output_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return invalid(err)
		}
		s.Generation.MaxOutputTokens = n
	case "generation.requests_per_minute":
		n, err := strconv.Atoi(value)
		if err != nil {
			return invalid(err)
		}
		s.Generation.RequestsPerMinute = n
	case "storage.backend":
		b := domain.StorageBackend(value)
		if !b.IsValid() {
			return invalid(errors.New("unknown backend"))
		}
		s.Storage.Backend = b
	case "storage.data_dir":
		s.Storage.DataDir = value
	case "storage.redis_url":
		s.Storage.RedisURL = value
	case "storage.debounce":
		d, err := time.ParseDuration(value)
		if err != nil {
			return invalid(err)
		}
		s.Storage.Debounce = d
	case "server.addr":
		s.Server.Addr = value
	case "images.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return invalid(err)
		}
		s.Images.Enabled = b
	case "images.model":
		s.Images.Model = value
	case "images.concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return invalid(err)
		}
		s.Images.Concurrency = n
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo on a terminal, else falls back to reader.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}
