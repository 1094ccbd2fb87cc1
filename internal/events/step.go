package events

import "github.com/hugo-lorenzo-mato/fedbridge/internal/core"

// Event type constants.
const (
	TypeStepUpdated = "step_updated"
	TypeOutputAdded = "output_added"
	TypeErrorRaised = "error_raised"
	TypeLogEntry    = "log_entry"
	TypeRunStarted  = "run_started"
	TypeRunFinished = "run_finished"
)

// StepUpdated signals a change to one step's status.
type StepUpdated struct {
	BaseEvent
	StepID core.StepID     `json:"step_id"`
	Status core.StepStatus `json:"status"`
	Error  string          `json:"error,omitempty"`
}

// NewStepUpdated creates a step update event.
func NewStepUpdated(id core.StepID, status core.StepStatus, errMsg string) StepUpdated {
	return StepUpdated{
		BaseEvent: NewBaseEvent(TypeStepUpdated),
		StepID:    id,
		Status:    status,
		Error:     errMsg,
	}
}

// OutputAdded signals a new accumulated output.
type OutputAdded struct {
	BaseEvent
	Key string `json:"key"`
}

// NewOutputAdded creates an output event.
func NewOutputAdded(key string) OutputAdded {
	return OutputAdded{
		BaseEvent: NewBaseEvent(TypeOutputAdded),
		Key:       key,
	}
}

// ErrorRaised carries a classified error to the UI error slot consumers.
type ErrorRaised struct {
	BaseEvent
	Err core.ManagedError `json:"error"`
}

// NewErrorRaised creates an error event.
func NewErrorRaised(me core.ManagedError) ErrorRaised {
	return ErrorRaised{
		BaseEvent: NewBaseEvent(TypeErrorRaised),
		Err:       me,
	}
}

// LogEntry is one debug-log line streamed to clients.
type LogEntry struct {
	BaseEvent
	Level   string `json:"level"`
	Message string `json:"message"`
	StepID  string `json:"step_id,omitempty"`
}

// NewLogEntry creates a log event.
func NewLogEntry(level, message, stepID string) LogEntry {
	return LogEntry{
		BaseEvent: NewBaseEvent(TypeLogEntry),
		Level:     level,
		Message:   message,
		StepID:    stepID,
	}
}

// RunStarted signals the start of a run-all pass.
type RunStarted struct {
	BaseEvent
	RunID string `json:"run_id"`
}

// NewRunStarted creates a run start event.
func NewRunStarted(runID string) RunStarted {
	return RunStarted{
		BaseEvent: NewBaseEvent(TypeRunStarted),
		RunID:     runID,
	}
}

// RunFinished signals the end of a run-all pass.
type RunFinished struct {
	BaseEvent
	RunID  string `json:"run_id"`
	Failed bool   `json:"failed"`
}

// NewRunFinished creates a run finish event.
func NewRunFinished(runID string, failed bool) RunFinished {
	return RunFinished{
		BaseEvent: NewBaseEvent(TypeRunFinished),
		RunID:     runID,
		Failed:    failed,
	}
}
