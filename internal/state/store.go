// Package state holds the in-memory workflow store and its persistence
// backends. The store is the single writer for step statuses and
// accumulated outputs; every mutation is persisted for the active domain
// and published on the event bus.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/events"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/logging"
)

// Store is the mutable workflow state for one active domain.
type Store struct {
	mu              sync.RWMutex
	domain          string
	tenantID        string
	steps           map[core.StepID]core.StepStatusInfo
	outputs         map[string]interface{}
	userCompletions map[core.StepID]bool

	persist core.ProgressStore
	bus     *events.Bus
	logger  *logging.Logger
	now     func() time.Time
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithProgressStore sets the persistence backend.
func WithProgressStore(ps core.ProgressStore) StoreOption {
	return func(s *Store) { s.persist = ps }
}

// WithBus sets the event bus mutations are published to.
func WithBus(bus *events.Bus) StoreOption {
	return func(s *Store) { s.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		steps:           make(map[core.StepID]core.StepStatusInfo),
		outputs:         make(map[string]interface{}),
		userCompletions: make(map[core.StepID]bool),
		logger:          logging.NewNop(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetDomain switches the active domain, replacing in-memory state with
// whatever is persisted for it. Persisted records pass through status
// migration before they are trusted.
func (s *Store) SetDomain(ctx context.Context, domain, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.domain = domain
	s.tenantID = tenantID
	s.steps = make(map[core.StepID]core.StepStatusInfo)
	s.outputs = make(map[string]interface{})
	s.userCompletions = make(map[core.StepID]bool)

	if s.persist == nil || domain == "" {
		return nil
	}

	p, err := s.persist.Load(ctx, domain)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}

	for id, info := range p.Steps {
		migrated := core.MigrateStatusInfo(info)
		s.steps[id] = migrated
		if migrated.Status == core.StepStatusCompleted && migrated.CompletionType == core.CompletionUserMarked {
			s.userCompletions[id] = true
		}
	}
	for k, v := range p.Outputs {
		s.outputs[k] = v
	}

	s.logger.Debug("restored progress",
		"domain", domain, "steps", len(s.steps), "outputs", len(s.outputs))
	return nil
}

// Domain returns the active domain.
func (s *Store) Domain() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.domain
}

// TenantID returns the active Microsoft tenant.
func (s *Store) TenantID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tenantID
}

// InitializeSteps ensures every listed step has a status entry. Existing
// entries are left untouched.
func (s *Store) InitializeSteps(ctx context.Context, ids []core.StepID) error {
	s.mu.Lock()
	changed := false
	for _, id := range ids {
		if _, ok := s.steps[id]; !ok {
			s.steps[id] = core.StepStatusInfo{Status: core.StepStatusPending}
			changed = true
		}
	}
	s.mu.Unlock()

	if !changed {
		return nil
	}
	return s.save(ctx)
}

// UpdateStep replaces one step's status info.
func (s *Store) UpdateStep(ctx context.Context, id core.StepID, info core.StepStatusInfo) error {
	s.mu.Lock()
	s.steps[id] = info.Clone()
	if info.Status != core.StepStatusCompleted || info.CompletionType != core.CompletionUserMarked {
		delete(s.userCompletions, id)
	}
	s.mu.Unlock()

	s.publish(events.NewStepUpdated(id, info.Status, info.Error))
	return s.save(ctx)
}

// MarkStepComplete records a completion of the given type.
func (s *Store) MarkStepComplete(ctx context.Context, id core.StepID, completion core.CompletionType, meta *core.StatusMetadata) error {
	now := s.now()

	s.mu.Lock()
	info := s.steps[id]
	info.Status = core.StepStatusCompleted
	info.CompletionType = completion
	info.Error = ""
	info.LastCheckedAt = &now
	if meta != nil {
		m := *meta
		info.Metadata = &m
	}
	s.steps[id] = info
	if completion == core.CompletionUserMarked {
		s.userCompletions[id] = true
	} else {
		delete(s.userCompletions, id)
	}
	s.mu.Unlock()

	s.publish(events.NewStepUpdated(id, core.StepStatusCompleted, ""))
	return s.save(ctx)
}

// MarkStepIncomplete resets a step to pending, discarding completion
// provenance and errors.
func (s *Store) MarkStepIncomplete(ctx context.Context, id core.StepID) error {
	s.mu.Lock()
	s.steps[id] = core.StepStatusInfo{Status: core.StepStatusPending}
	delete(s.userCompletions, id)
	s.mu.Unlock()

	s.publish(events.NewStepUpdated(id, core.StepStatusPending, ""))
	return s.save(ctx)
}

// ClearCheckTimestamp drops the freshness marker for one step so the next
// verification is forced to re-check.
func (s *Store) ClearCheckTimestamp(ctx context.Context, id core.StepID) error {
	s.mu.Lock()
	if info, ok := s.steps[id]; ok {
		info.LastCheckedAt = nil
		s.steps[id] = info
	}
	s.mu.Unlock()
	return s.save(ctx)
}

// ClearCheckTimestamps drops the freshness markers for all steps.
func (s *Store) ClearCheckTimestamps(ctx context.Context) error {
	s.mu.Lock()
	for id, info := range s.steps {
		info.LastCheckedAt = nil
		s.steps[id] = info
	}
	s.mu.Unlock()
	return s.save(ctx)
}

// AddOutput records one accumulated output.
func (s *Store) AddOutput(ctx context.Context, key string, value interface{}) error {
	s.mu.Lock()
	s.outputs[key] = value
	s.mu.Unlock()

	s.publish(events.NewOutputAdded(key))
	return s.save(ctx)
}

// AddOutputs merges a batch of outputs.
func (s *Store) AddOutputs(ctx context.Context, outputs map[string]interface{}) error {
	if len(outputs) == 0 {
		return nil
	}

	s.mu.Lock()
	for k, v := range outputs {
		s.outputs[k] = v
	}
	s.mu.Unlock()

	for k := range outputs {
		s.publish(events.NewOutputAdded(k))
	}
	return s.save(ctx)
}

// ClearAllData wipes in-memory and persisted state for the active domain.
func (s *Store) ClearAllData(ctx context.Context) error {
	s.mu.Lock()
	domain := s.domain
	s.steps = make(map[core.StepID]core.StepStatusInfo)
	s.outputs = make(map[string]interface{})
	s.userCompletions = make(map[core.StepID]bool)
	s.mu.Unlock()

	if s.persist != nil && domain != "" {
		if err := s.persist.Delete(ctx, domain); err != nil {
			return err
		}
	}
	s.logger.Info("cleared all progress", "domain", domain)
	return nil
}

// StepInfo returns the status of one step. The zero value has status
// pending semantics via the false second return.
func (s *Store) StepInfo(id core.StepID) (core.StepStatusInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.steps[id]
	return info.Clone(), ok
}

// Steps returns a deep copy of all step statuses.
func (s *Store) Steps() map[core.StepID]core.StepStatusInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[core.StepID]core.StepStatusInfo, len(s.steps))
	for id, info := range s.steps {
		out[id] = info.Clone()
	}
	return out
}

// Output returns one accumulated output.
func (s *Store) Output(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.outputs[key]
	return v, ok
}

// Outputs returns a copy of all accumulated outputs.
func (s *Store) Outputs() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]interface{}, len(s.outputs))
	for k, v := range s.outputs {
		out[k] = v
	}
	return out
}

// IsUserCompleted reports whether a step was completed by user attestation
// rather than server verification.
func (s *Store) IsUserCompleted(id core.StepID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userCompletions[id]
}

// Snapshot returns a deep copy of the full progress for persistence or
// export.
func (s *Store) Snapshot() *core.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() *core.Progress {
	p := &core.Progress{
		Steps:   make(map[core.StepID]core.StepStatusInfo, len(s.steps)),
		Outputs: make(map[string]interface{}, len(s.outputs)),
	}
	for id, info := range s.steps {
		p.Steps[id] = info.Clone()
	}
	for k, v := range s.outputs {
		p.Outputs[k] = v
	}
	return p
}

func (s *Store) save(ctx context.Context) error {
	s.mu.RLock()
	domain := s.domain
	var snap *core.Progress
	if s.persist != nil && domain != "" {
		snap = s.snapshotLocked()
	}
	s.mu.RUnlock()

	if snap == nil {
		return nil
	}
	if err := s.persist.Save(ctx, domain, snap); err != nil {
		s.logger.Error("persisting progress failed", "domain", domain, "error", err)
		return err
	}
	return nil
}

func (s *Store) publish(e events.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}
