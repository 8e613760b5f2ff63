package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/specforge/internal/adapters/driven/config/file"
	"github.com/custodia-labs/specforge/internal/adapters/driving/web"
	"github.com/custodia-labs/specforge/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API used by the browser client.

Chat, generation and verification responses are streamed as server-sent
events. Prompt files and the document type catalog are reloaded when they
change on disk.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from settings)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	if proxyService == nil || catalogService == nil {
		return errors.New("services not configured")
	}

	server, err := web.NewServer(&web.Ports{
		Sessions:     sessionService,
		Generation:   generationService,
		Verification: verificationService,
		Proxy:        proxyService,
		Catalog:      catalogService,
	})
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" && app != nil {
		addr = app.settings.Server.Addr
	}
	if addr == "" {
		return errors.New("no listen address: pass --addr or set server.addr")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if app != nil {
		startWatcher(ctx, app.prompts, app.templates)
	}

	cmd.Printf("Listening on http://%s\n", addr)
	return server.Run(ctx, addr)
}

// startWatcher reloads prompts and doc types on change until ctx ends.
// Watching is best effort; the server runs without it.
func startWatcher(ctx context.Context, prompts *file.PromptStore, templates *file.TemplateStore) {
	w, err := file.NewWatcher(prompts, templates)
	if err != nil {
		logger.Warn("config watcher disabled: %v", err)
		return
	}
	go func() {
		defer func() { _ = w.Close() }()
		w.Run(ctx)
	}()
}
