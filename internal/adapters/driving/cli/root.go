// Package cli implements the specforge command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/specforge/internal/core/ports/driving"
	"github.com/custodia-labs/specforge/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

var (
	verbose   bool
	configDir string
	ephemeral bool
)

// Services used by commands. Bound by setup, or directly by tests.
var (
	settingsService     driving.SettingsService
	sessionService      driving.SessionService
	generationService   driving.GenerationOrchestrator
	verificationService driving.VerificationService
	proxyService        driving.ProxyService
	catalogService      driving.CatalogService
)

// app is the running application, nil until setup succeeds.
var app *application

// noSetup marks commands that must run without opening stores.
const noSetup = "specforge/no-setup"

var rootCmd = &cobra.Command{
	Use:   "specforge",
	Short: "Plan software projects with an AI co-author",
	Long: `SpecForge turns a conversation into a consistent set of planning documents:
product requirements, design, architecture, technical specs, test plans and
roadmaps. It keeps every document versioned and cross-checks them for
contradictions.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.specforge)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep sessions in memory for this run only")
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if cmd.Annotations[noSetup] == "true" || sessionService != nil {
		return nil
	}

	a, err := newApplication(appOptions{Dir: configDir, Ephemeral: ephemeral})
	if err != nil {
		return err
	}
	app = a
	app.bind()
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	err := app.Close()
	app = nil
	unbind()
	return err
}

func unbind() {
	settingsService = nil
	sessionService = nil
	generationService = nil
	verificationService = nil
	proxyService = nil
	catalogService = nil
}

// requireServices fails fast when a command runs without wiring.
func requireServices() error {
	if sessionService == nil || generationService == nil || verificationService == nil {
		return errors.New("services not configured")
	}
	return nil
}
