package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/cache"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/config"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/errmgr"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/events"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/logging"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/provider"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/runner"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/session"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/state"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/steps"
)

// engine bundles the wired setup components behind the commands.
type engine struct {
	cfg       *config.Config
	loader    *config.Loader
	logger    *logging.Logger
	bus       *events.Bus
	progress  core.ProgressStore
	store     *state.Store
	tokens    *session.TokenStore
	validator *session.Validator
	registry  *steps.Registry
	errs      *errmgr.Manager
	run       *runner.Runner
	checker   *runner.AutoChecker
}

func loadConfig() (*config.Config, *config.Loader, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	format := cfg.Log.Format
	if logFormat != "" {
		format = logFormat
	}
	return logging.New(logging.Config{
		Level:  level,
		Format: format,
		Output: os.Stderr,
	})
}

// buildEngine wires the full engine. The returned cleanup closes the
// event bus and the progress backend.
func buildEngine(ctx context.Context) (*engine, func(), error) {
	cfg, loader, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	bus := events.New(100)
	// Mirror engine logs onto the bus for the debug log stream.
	logger := newLogger(cfg).Tee(events.NewBusHandler(bus, slog.LevelDebug))

	progress, err := state.NewProgressStore(cfg.State.Backend, cfg.State.Dir)
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("opening state backend: %w", err)
	}

	cleanup := func() {
		if closeErr := state.CloseProgressStore(progress); closeErr != nil {
			logger.Warn("closing state backend", "error", closeErr.Error())
		}
		bus.Close()
	}

	store := state.NewStore(
		state.WithProgressStore(progress),
		state.WithBus(bus),
		state.WithLogger(logger),
	)

	tokens := session.NewTokenStore()
	source := session.NewEnvSource(tokens)
	validator := session.NewValidator(source, tokens, session.WithLogger(logger))

	rc := cache.New()
	retry := provider.DefaultRetryPolicy()
	if cfg.Retry.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.BaseDelay > 0 {
		retry.BaseDelay = cfg.Retry.BaseDelay
	}
	if cfg.Retry.MaxDelay > 0 {
		retry.MaxDelay = cfg.Retry.MaxDelay
	}

	dir := provider.NewClient(core.ProviderGoogle, cfg.Providers.Google.AdminBaseURL, source,
		provider.WithLogger(logger),
		provider.WithRetryPolicy(retry),
		provider.WithErrorTranslator(provider.GoogleErrorHook),
	)
	idp := provider.NewClient(core.ProviderGoogle, cfg.Providers.Google.CloudIdentityBaseURL, source,
		provider.WithLogger(logger),
		provider.WithRetryPolicy(retry),
		provider.WithErrorTranslator(provider.GoogleErrorHook),
	)
	graph := provider.NewClient(core.ProviderMicrosoft, cfg.Providers.Microsoft.GraphBaseURL, source,
		provider.WithLogger(logger),
		provider.WithRetryPolicy(retry),
		provider.WithErrorTranslator(provider.MicrosoftErrorHook),
	)

	google := provider.NewGoogleService(dir, idp, rc)
	microsoft := provider.NewMicrosoftService(graph, rc)

	registry := steps.NewDefaultRegistry(logger, google, microsoft)
	errs := errmgr.NewManager(errmgr.WithLogger(logger), errmgr.WithBus(bus))
	run := runner.NewRunner(registry, store, validator, errs,
		runner.WithLogger(logger),
		runner.WithBus(bus),
	)

	checkerOpts := []runner.AutoCheckerOption{runner.WithCheckerLogger(logger)}
	if cfg.Setup.AutoCheckInterval > 0 {
		checkerOpts = append(checkerOpts, runner.WithInterval(cfg.Setup.AutoCheckInterval))
	}
	checker := runner.NewAutoChecker(registry, store, run, checkerOpts...)

	eng := &engine{
		cfg:       cfg,
		loader:    loader,
		logger:    logger,
		bus:       bus,
		progress:  progress,
		store:     store,
		tokens:    tokens,
		validator: validator,
		registry:  registry,
		errs:      errs,
		run:       run,
		checker:   checker,
	}

	if cfg.Setup.Domain != "" {
		if err := eng.bindDomain(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	return eng, cleanup, nil
}

// bindDomain points the store at the configured domain and seeds the
// step status table.
func (e *engine) bindDomain(ctx context.Context) error {
	if err := e.store.SetDomain(ctx, e.cfg.Setup.Domain, e.cfg.Setup.TenantID); err != nil {
		return fmt.Errorf("loading progress for %s: %w", e.cfg.Setup.Domain, err)
	}
	return e.store.InitializeSteps(ctx, e.registry.IDs())
}

func (e *engine) requireDomain() error {
	if e.store.Domain() == "" {
		return fmt.Errorf("no domain configured: pass --domain or set setup.domain in .fedbridge.yaml")
	}
	return nil
}
