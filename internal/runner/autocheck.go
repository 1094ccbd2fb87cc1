package runner

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/logging"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/state"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/steps"
)

// DefaultCheckInterval is how often the periodic re-check fires.
const DefaultCheckInterval = 60 * time.Second

// AutoChecker re-evaluates automatable steps' probes against live provider
// state, on demand and on a timer. Checks are independent and fan out in
// parallel; there is no ordering dependency between them.
type AutoChecker struct {
	registry *steps.Registry
	store    *state.Store
	runner   *Runner
	interval time.Duration
	logger   *logging.Logger
}

// AutoCheckerOption configures the checker.
type AutoCheckerOption func(*AutoChecker)

// WithInterval sets the periodic check interval.
func WithInterval(d time.Duration) AutoCheckerOption {
	return func(a *AutoChecker) { a.interval = d }
}

// WithCheckerLogger sets the logger.
func WithCheckerLogger(logger *logging.Logger) AutoCheckerOption {
	return func(a *AutoChecker) { a.logger = logger }
}

// NewAutoChecker creates an auto-checker over the runner's check machinery.
func NewAutoChecker(registry *steps.Registry, store *state.Store, r *Runner, opts ...AutoCheckerOption) *AutoChecker {
	a := &AutoChecker{
		registry: registry,
		store:    store,
		runner:   r,
		interval: DefaultCheckInterval,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// checkableIDs returns the automatable steps that expose a check probe.
func (a *AutoChecker) checkableIDs() []core.StepID {
	var ids []core.StepID
	for _, id := range a.registry.IDs() {
		step := a.registry.MustGet(id)
		if !step.Definition().Automatable {
			continue
		}
		if _, ok := step.(core.Checkable); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ManualRefresh checks every automatable step once. A no-op when domain or
// tenant are not yet configured.
func (a *AutoChecker) ManualRefresh(ctx context.Context) error {
	if a.store.Domain() == "" || a.store.TenantID() == "" {
		a.logger.Debug("skipping refresh, configuration incomplete")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range a.checkableIDs() {
		id := id
		g.Go(func() error {
			if _, err := a.runner.RunCheck(gctx, id); err != nil {
				// Check failures are expected conditions (expired auth,
				// upstream hiccups); they are recorded on the step and
				// must not abort the other probes.
				a.logger.Debug("check failed", "step", string(id), "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Start runs periodic refreshes until ctx is cancelled.
func (a *AutoChecker) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.ManualRefresh(ctx); err != nil {
				a.logger.Warn("periodic refresh failed", "error", err)
			}
		}
	}
}
