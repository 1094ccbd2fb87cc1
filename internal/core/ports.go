package core

import "context"

// Progress is the persisted unit of workflow state, keyed by domain.
type Progress struct {
	Steps   map[StepID]StepStatusInfo `json:"steps"`
	Outputs map[string]interface{}    `json:"outputs"`
}

// ProgressStore persists per-domain setup progress.
type ProgressStore interface {
	// Save persists progress for a domain.
	Save(ctx context.Context, domain string, p *Progress) error

	// Load retrieves progress for a domain, or nil if none exists.
	Load(ctx context.Context, domain string) (*Progress, error)

	// Delete removes all persisted progress for a domain.
	Delete(ctx context.Context, domain string) error
}

// SessionSource supplies the current authenticated session. The core
// depends only on the session shape, not on how it is obtained.
type SessionSource interface {
	Session(ctx context.Context) (*Session, error)
}

// SessionSourceFunc adapts a function to the SessionSource interface.
type SessionSourceFunc func(ctx context.Context) (*Session, error)

// Session implements SessionSource.
func (f SessionSourceFunc) Session(ctx context.Context) (*Session, error) {
	return f(ctx)
}
