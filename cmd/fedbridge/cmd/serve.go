package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/api"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the setup API server",
	Long: `Start the fedbridge API server.

The server exposes the step engine over REST plus SSE streams for step
updates and debug logs, and keeps step statuses fresh with a periodic
background re-check.

Examples:
  # Start with defaults (127.0.0.1:8787)
  fedbridge serve --domain example.com --tenant-id <uuid>

  # Bind elsewhere
  fedbridge serve --host 0.0.0.0 --port 9000

  # Disable CORS (behind a reverse proxy)
  fedbridge serve --no-cors`,
	RunE: runServe,
}

var (
	serveHost   string
	servePort   int
	serveNoCORS bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "",
		"Host address to bind to")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0,
		"Port to listen on")
	serveCmd.Flags().BoolVar(&serveNoCORS, "no-cors", false,
		"Disable CORS headers")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, cleanup, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := api.DefaultConfig()
	cfg.Host = eng.cfg.Server.Host
	if serveHost != "" {
		cfg.Host = serveHost
	}
	cfg.Port = eng.cfg.Server.Port
	if servePort != 0 {
		cfg.Port = servePort
	}
	cfg.ReadTimeout = eng.cfg.Server.ReadTimeout
	cfg.CORSOrigins = eng.cfg.Server.CORSOrigins
	cfg.EnableCORS = !serveNoCORS

	server := api.New(cfg, eng.logger,
		eng.registry, eng.store, eng.run, eng.checker,
		eng.validator, eng.errs, eng.bus,
	)

	// Background status refresh while the server runs.
	go eng.checker.Start(ctx)

	// Reload configuration on file changes.
	if path := eng.loader.ConfigFileUsed(); path != "" {
		watcher := config.NewWatcher(eng.loader, path, func(updated *config.Config) {
			eng.logger.Info("configuration reloaded", "path", path)
		}, eng.logger)
		go watcher.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	eng.logger.Info("shutting down server...")
	if err := server.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	eng.logger.Info("server stopped")
	return nil
}
