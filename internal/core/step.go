package core

import (
	"context"
	"log/slog"
)

// StepID uniquely identifies a provisioning step. Format: <ProviderPrefix>-<N>.
type StepID string

// Provider identifies one of the two federated identity providers.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
	ProviderBoth      Provider = "both"
)

// Automatability classifies how much human involvement a step requires.
type Automatability string

const (
	AutomatabilityAutomated  Automatability = "automated"
	AutomatabilitySupervised Automatability = "supervised"
	AutomatabilityManual     Automatability = "manual"
)

// InputDescriptor names an output key a step consumes and the step producing it.
type InputDescriptor struct {
	Key        string `json:"key"`
	ProducedBy StepID `json:"produced_by"`
	Description string `json:"description,omitempty"`
}

// OutputDescriptor names an output key a step produces.
type OutputDescriptor struct {
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
}

// StepDefinition is the immutable, build-time description of a provisioning step.
type StepDefinition struct {
	ID             StepID             `json:"id"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Details        string             `json:"details,omitempty"`
	Category       string             `json:"category"`
	Activity       string             `json:"activity"`
	Provider       Provider           `json:"provider"`
	Automatability Automatability     `json:"automatability"`
	Automatable    bool               `json:"automatable"`
	DependsOn      []StepID           `json:"depends_on,omitempty"`
	Inputs         []InputDescriptor  `json:"inputs,omitempty"`
	Outputs        []OutputDescriptor `json:"outputs,omitempty"`
}

// Step is one unit of provisioning work. Concrete steps embed their
// definition and optionally implement Checkable and/or Executable.
type Step interface {
	Definition() StepDefinition
}

// Checkable is the read-only probe capability: it determines whether a
// step's real-world outcome already holds without changing anything.
type Checkable interface {
	Check(ctx context.Context, sc *StepContext) (*CheckResult, error)
}

// Executable is the provisioning capability: it performs the step's side
// effect against the external provider.
type Executable interface {
	Execute(ctx context.Context, sc *StepContext) (*ExecutionResult, error)
}

// StepContext carries the per-invocation inputs for check/execute logic.
// It is constructed fresh from current workflow state for every call and is
// read-only to the step except via its return value.
type StepContext struct {
	Domain   string
	TenantID string
	Outputs  map[string]interface{}
	Logger   *slog.Logger
}

// Output returns the named accumulated output, if present.
func (sc *StepContext) Output(key string) (interface{}, bool) {
	v, ok := sc.Outputs[key]
	return v, ok
}

// StringOutput returns the named output as a string, or "" if absent or
// not a string.
func (sc *StepContext) StringOutput(key string) string {
	if v, ok := sc.Outputs[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Log returns the context logger, falling back to slog.Default.
func (sc *StepContext) Log() *slog.Logger {
	if sc.Logger != nil {
		return sc.Logger
	}
	return slog.Default()
}

// CheckResult is the outcome of a step's Check probe.
type CheckResult struct {
	Completed   bool                   `json:"completed"`
	Message     string                 `json:"message,omitempty"`
	Outputs     map[string]interface{} `json:"outputs,omitempty"`
	ResourceURL string                 `json:"resource_url,omitempty"`
	PreExisting bool                   `json:"pre_existing,omitempty"`
}

// StepError is the typed, non-throwing error channel of step execution.
// Expected conditions (auth expiry, missing dependencies) travel here
// rather than as returned errors.
type StepError struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Provider Provider `json:"provider,omitempty"`
}

func (e *StepError) Error() string {
	return e.Code + ": " + e.Message
}

// ExecutionResult is the outcome of a step's Execute action. Execution
// never propagates a raw error past the wrapper boundary; failures are
// reported via Error.
type ExecutionResult struct {
	Success     bool                   `json:"success"`
	Error       *StepError             `json:"error,omitempty"`
	Outputs     map[string]interface{} `json:"outputs,omitempty"`
	ResourceURL string                 `json:"resource_url,omitempty"`
}
