package core

import "time"

// StepStatus represents the current state of a step.
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
	StepStatusBlocked    StepStatus = "blocked"
)

// CompletionType distinguishes "I attest this is done" from "the system
// verified it". Only meaningful when Status is completed.
type CompletionType string

const (
	CompletionUserMarked     CompletionType = "user-marked"
	CompletionServerVerified CompletionType = "server-verified"
)

// StatusMetadata holds auxiliary data recorded alongside a step's status.
type StatusMetadata struct {
	ResourceURL string `json:"resource_url,omitempty"`
	PreExisting bool   `json:"pre_existing,omitempty"`
}

// StepStatusInfo is the per-step mutable state held by the workflow store.
type StepStatusInfo struct {
	Status         StepStatus      `json:"status"`
	CompletionType CompletionType  `json:"completion_type,omitempty"`
	LastCheckedAt  *time.Time      `json:"last_checked_at,omitempty"`
	Error          string          `json:"error,omitempty"`
	Metadata       *StatusMetadata `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the status info.
func (s StepStatusInfo) Clone() StepStatusInfo {
	out := s
	if s.LastCheckedAt != nil {
		t := *s.LastCheckedAt
		out.LastCheckedAt = &t
	}
	if s.Metadata != nil {
		m := *s.Metadata
		out.Metadata = &m
	}
	return out
}

// MigrateStatusInfo normalizes a persisted status record before it is
// trusted. Older persisted shapes lack CompletionType; for those, a
// completed step with the PreExisting metadata flag is treated as
// server-verified, any other completed step as user-marked.
func MigrateStatusInfo(info StepStatusInfo) StepStatusInfo {
	out := info.Clone()
	if out.Status == "" {
		out.Status = StepStatusPending
	}
	if out.Status == StepStatusCompleted && out.CompletionType == "" {
		if out.Metadata != nil && out.Metadata.PreExisting {
			out.CompletionType = CompletionServerVerified
		} else {
			out.CompletionType = CompletionUserMarked
		}
	}
	if out.Status != StepStatusCompleted {
		out.CompletionType = ""
	}
	return out
}
