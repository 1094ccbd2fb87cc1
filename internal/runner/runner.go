// Package runner orchestrates step execution: the sequential run-all loop,
// single-step execution with authorization gates, and check application.
// It never mutates workflow state directly; everything goes through the
// store's actions.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/errmgr"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/events"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/logging"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/session"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/state"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/steps"
)

// Runner drives step checks and executions against the workflow store.
type Runner struct {
	registry  *steps.Registry
	store     *state.Store
	validator *session.Validator
	errs      *errmgr.Manager

	logger *logging.Logger
	bus    *events.Bus
	now    func() time.Time
}

// Option configures the runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithBus sets the bus run lifecycle events are published to.
func WithBus(bus *events.Bus) Option {
	return func(r *Runner) { r.bus = bus }
}

// NewRunner creates a runner.
func NewRunner(registry *steps.Registry, store *state.Store, validator *session.Validator, errs *errmgr.Manager, opts ...Option) *Runner {
	r := &Runner{
		registry:  registry,
		store:     store,
		validator: validator,
		errs:      errs,
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// requireDomain rejects step actions until a domain is bound; steps read
// the domain from their invocation context and cannot run without one.
func (r *Runner) requireDomain() error {
	if r.store.Domain() == "" {
		return core.ErrValidationFailed(core.CodeValidationError, "No domain is configured for this setup.")
	}
	return nil
}

// stepContext builds a fresh invocation context from current state.
func (r *Runner) stepContext() *core.StepContext {
	return &core.StepContext{
		Domain:   r.store.Domain(),
		TenantID: r.store.TenantID(),
		Outputs:  r.store.Outputs(),
	}
}

// authorize verifies the session covers a step's provider. On failure it
// dispatches a sign-in prompt and returns false; the step must not run.
func (r *Runner) authorize(ctx context.Context, def core.StepDefinition) bool {
	validation := r.validator.Validate(ctx)

	var missing core.Provider
	switch def.Provider {
	case core.ProviderGoogle:
		if !validation.GoogleValid {
			missing = core.ProviderGoogle
		}
	case core.ProviderMicrosoft:
		if !validation.MicrosoftValid {
			missing = core.ProviderMicrosoft
		}
	default:
		switch {
		case !validation.GoogleValid && !validation.MicrosoftValid:
			missing = core.ProviderBoth
		case !validation.GoogleValid:
			missing = core.ProviderGoogle
		case !validation.MicrosoftValid:
			missing = core.ProviderMicrosoft
		}
	}
	if missing == "" {
		return true
	}

	r.errs.Dispatch(core.ErrAuth(core.CodeAuthMissing, signInMessage(missing), missing))
	return false
}

func signInMessage(p core.Provider) string {
	switch p {
	case core.ProviderGoogle:
		return "Please sign in with Google to run this step."
	case core.ProviderMicrosoft:
		return "Please sign in with Microsoft to run this step."
	default:
		return "Please sign in with Google and Microsoft to run this step."
	}
}

// RunCheck runs one step's check probe and applies the result to the store.
func (r *Runner) RunCheck(ctx context.Context, id core.StepID) (*core.CheckResult, error) {
	if err := r.requireDomain(); err != nil {
		return nil, err
	}
	sc := r.stepContext()
	now := r.now()

	result, err := r.registry.CheckStep(ctx, id, sc)
	if err != nil {
		r.errs.Dispatch(err)
		info, _ := r.store.StepInfo(id)
		info.LastCheckedAt = &now
		info.Error = err.Error()
		if uerr := r.store.UpdateStep(ctx, id, info); uerr != nil {
			r.logger.Error("recording check failure", "step", string(id), "error", uerr)
		}
		return nil, err
	}

	if result.Completed {
		if len(result.Outputs) > 0 {
			if err := r.store.AddOutputs(ctx, result.Outputs); err != nil {
				return nil, err
			}
		}
		meta := &core.StatusMetadata{ResourceURL: result.ResourceURL, PreExisting: result.PreExisting}
		if err := r.store.MarkStepComplete(ctx, id, core.CompletionServerVerified, meta); err != nil {
			return nil, err
		}
		return result, nil
	}

	// A failed probe must not revoke a user's attestation.
	if r.store.IsUserCompleted(id) {
		info, _ := r.store.StepInfo(id)
		info.LastCheckedAt = &now
		return result, r.store.UpdateStep(ctx, id, info)
	}

	info, _ := r.store.StepInfo(id)
	if info.Status == "" || info.Status == core.StepStatusCompleted {
		info.Status = core.StepStatusPending
	}
	info.CompletionType = ""
	info.LastCheckedAt = &now
	info.Error = ""
	return result, r.store.UpdateStep(ctx, id, info)
}

// HandleExecute runs one step behind the authorization gate.
func (r *Runner) HandleExecute(ctx context.Context, id core.StepID) (*core.ExecutionResult, error) {
	if err := r.requireDomain(); err != nil {
		return nil, err
	}
	def := r.registry.MustGet(id).Definition()
	if !r.authorize(ctx, def) {
		return nil, core.ErrAuth(core.CodeAuthMissing, signInMessage(def.Provider), def.Provider)
	}
	return r.executeOne(ctx, id)
}

func (r *Runner) executeOne(ctx context.Context, id core.StepID) (*core.ExecutionResult, error) {
	// Status transitions merge into the existing record; the check
	// timestamp and resource metadata survive a failed run.
	info, _ := r.store.StepInfo(id)
	info.Status = core.StepStatusInProgress
	info.CompletionType = ""
	info.Error = ""
	if err := r.store.UpdateStep(ctx, id, info); err != nil {
		return nil, err
	}

	sc := r.stepContext()
	result, err := r.registry.ExecuteStep(ctx, id, sc)
	if err != nil {
		// Unexpected: the wrapper normalizes everything it knows about.
		r.errs.Dispatch(err)
		failed, _ := r.store.StepInfo(id)
		failed.Status = core.StepStatusFailed
		failed.Error = err.Error()
		if uerr := r.store.UpdateStep(ctx, id, failed); uerr != nil {
			r.logger.Error("recording execution failure", "step", string(id), "error", uerr)
		}
		return nil, err
	}

	if result.Success {
		if len(result.Outputs) > 0 {
			if err := r.store.AddOutputs(ctx, result.Outputs); err != nil {
				return nil, err
			}
		}
		meta := &core.StatusMetadata{ResourceURL: result.ResourceURL}
		if err := r.store.MarkStepComplete(ctx, id, core.CompletionServerVerified, meta); err != nil {
			return nil, err
		}
		r.logger.Info("step executed", "step", string(id))
		return result, nil
	}

	failure, _ := r.store.StepInfo(id)
	failure.Status = core.StepStatusFailed
	if result.Error != nil {
		failure.Error = result.Error.Message
		r.errs.Dispatch(stepErrorToDomain(result.Error))
	}
	if err := r.store.UpdateStep(ctx, id, failure); err != nil {
		return nil, err
	}
	return result, nil
}

// stepErrorToDomain lifts a structured step failure into the error taxonomy.
func stepErrorToDomain(se *core.StepError) *core.DomainError {
	switch se.Code {
	case core.CodeAuthExpired:
		return core.ErrAuth(se.Code, se.Message, se.Provider)
	case core.CodeMissingConfig, core.CodeMissingDependency, core.CodeNoExecuteFunction:
		return core.ErrValidationFailed(se.Code, se.Message)
	default:
		return core.ErrAPI(se.Code, se.Message, se.Provider, 0)
	}
}

// RunAllPending executes every pending automatable step in registry order,
// strictly sequentially: later steps may consume outputs of earlier ones.
// Stops at the first step that lands failed.
func (r *Runner) RunAllPending(ctx context.Context) error {
	if err := r.requireDomain(); err != nil {
		return err
	}
	runID := uuid.NewString()
	if r.bus != nil {
		r.bus.Publish(events.NewRunStarted(runID))
	}
	r.logger.Info("run-all started", "run_id", runID)

	failed := false
	for _, id := range r.registry.IDs() {
		def := r.registry.MustGet(id).Definition()
		if !def.Automatable {
			continue
		}
		info, _ := r.store.StepInfo(id)
		if info.Status != "" && info.Status != core.StepStatusPending {
			continue
		}

		if !r.authorize(ctx, def) {
			r.logger.Warn("skipping unauthorized step", "step", string(id), "provider", string(def.Provider))
			continue
		}

		if _, err := r.executeOne(ctx, id); err != nil {
			failed = true
			break
		}
		after, _ := r.store.StepInfo(id)
		if after.Status == core.StepStatusFailed {
			r.logger.Warn("run-all stopped at failed step", "step", string(id))
			failed = true
			break
		}
	}

	if r.bus != nil {
		r.bus.Publish(events.NewRunFinished(runID, failed))
	}
	r.logger.Info("run-all finished", "run_id", runID, "failed", failed)
	if failed {
		return fmt.Errorf("run %s stopped after a step failure", runID)
	}
	return nil
}
