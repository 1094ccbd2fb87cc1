package steps

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/logging"
)

// Registry is the ordered, immutable collection of provisioning steps.
type Registry struct {
	order  []core.StepID
	steps  map[core.StepID]core.Step
	logger *logging.Logger
}

// NewRegistry builds a registry from steps in walkthrough order. Duplicate
// ids are a programmer error and panic at construction.
func NewRegistry(logger *logging.Logger, steps ...core.Step) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Registry{
		steps:  make(map[core.StepID]core.Step, len(steps)),
		logger: logger,
	}
	for _, s := range steps {
		id := s.Definition().ID
		if _, exists := r.steps[id]; exists {
			panic(fmt.Sprintf("steps: duplicate step id %q", id))
		}
		r.steps[id] = s
		r.order = append(r.order, id)
	}
	return r
}

// Get returns the step with the given id.
func (r *Registry) Get(id core.StepID) (core.Step, bool) {
	s, ok := r.steps[id]
	return s, ok
}

// MustGet returns the step or panics. An unknown id is a caller bug, not a
// runtime condition.
func (r *Registry) MustGet(id core.StepID) core.Step {
	s, ok := r.steps[id]
	if !ok {
		panic(fmt.Sprintf("steps: unknown step id %q", id))
	}
	return s
}

// IDs returns all step ids in registry order.
func (r *Registry) IDs() []core.StepID {
	out := make([]core.StepID, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions returns all step definitions in registry order.
func (r *Registry) Definitions() []core.StepDefinition {
	out := make([]core.StepDefinition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.steps[id].Definition())
	}
	return out
}

// Inputs returns the declared input descriptors for a step.
func (r *Registry) Inputs(id core.StepID) []core.InputDescriptor {
	return r.MustGet(id).Definition().Inputs
}

// Outputs returns the declared output descriptors for a step.
func (r *Registry) Outputs(id core.StepID) []core.OutputDescriptor {
	return r.MustGet(id).Definition().Outputs
}

// CheckStep runs a step's check probe. Steps without the check capability
// yield a structured "no check logic" result rather than an error.
func (r *Registry) CheckStep(ctx context.Context, id core.StepID, sc *core.StepContext) (*core.CheckResult, error) {
	step := r.MustGet(id)

	checkable, ok := step.(core.Checkable)
	if !ok {
		return &core.CheckResult{
			Completed: false,
			Message:   fmt.Sprintf("No check logic available for step %s", id),
		}, nil
	}

	sc.Logger = r.logger.WithStep(string(id)).Logger
	return checkable.Check(ctx, sc)
}

// ExecuteStep runs a step's provisioning action. Steps without the execute
// capability yield a NO_EXECUTE_FUNCTION failure; manual steps land here
// legitimately.
func (r *Registry) ExecuteStep(ctx context.Context, id core.StepID, sc *core.StepContext) (*core.ExecutionResult, error) {
	step := r.MustGet(id)

	executable, ok := step.(core.Executable)
	if !ok {
		return &core.ExecutionResult{
			Success: false,
			Error: &core.StepError{
				Code:    core.CodeNoExecuteFunction,
				Message: fmt.Sprintf("step %s has no execute logic", id),
			},
		}, nil
	}

	sc.Logger = r.logger.WithStep(string(id)).Logger
	return executable.Execute(ctx, sc)
}
