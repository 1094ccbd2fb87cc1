// Package errmgr classifies arbitrary errors into the UI-facing taxonomy
// and maintains the dismissible global error slot.
package errmgr

import (
	"errors"
	"regexp"
	"sync"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/events"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/logging"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/provider"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Manager classifies errors and holds the current global error.
type Manager struct {
	mu      sync.Mutex
	current *core.ManagedError

	logger *logging.Logger
	bus    *events.Bus
}

// Option configures the manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithBus sets the bus dispatched errors are published to.
func WithBus(bus *events.Bus) Option {
	return func(m *Manager) { m.bus = bus }
}

// NewManager creates an error manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle classifies an error. Pure: no state is touched, the same error
// always yields the same classification.
func (m *Manager) Handle(err error) core.ManagedError {
	var authErr *provider.AuthenticationError
	if errors.As(err, &authErr) {
		return core.ManagedError{
			Category:    core.ErrCatAuth,
			Code:        core.CodeAuthExpired,
			Message:     authErr.Message,
			Provider:    authErr.Provider,
			Recoverable: true,
			Action:      &core.RemedialAction{Label: "Sign In"},
		}
	}

	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		me := core.ManagedError{
			Category: core.ErrCatAPI,
			Code:     apiErr.Code,
			Message:  apiErr.Message,
			Provider: apiErr.Provider,
		}
		if apiErr.Code == core.CodeAPINotEnabled {
			me.Recoverable = true
			me.Action = &core.RemedialAction{
				Label: "Enable API",
				URL:   urlPattern.FindString(apiErr.Message),
			}
		}
		return me
	}

	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		me := core.ManagedError{
			Category:    domErr.Category,
			Code:        domErr.Code,
			Message:     domErr.Message,
			Provider:    domErr.Provider,
			Recoverable: domErr.Recoverable,
		}
		if domErr.Category == core.ErrCatAuth {
			me.Action = &core.RemedialAction{Label: "Sign In"}
		}
		return me
	}

	message := "An unexpected error occurred"
	if err != nil {
		message = err.Error()
	}
	return core.ManagedError{
		Category:    core.ErrCatSystem,
		Code:        core.CodeUnknownError,
		Message:     message,
		Recoverable: false,
	}
}

// Dispatch classifies an error and writes it into the global error slot.
func (m *Manager) Dispatch(err error) core.ManagedError {
	me := m.Handle(err)

	m.mu.Lock()
	copied := me
	m.current = &copied
	m.mu.Unlock()

	m.logger.Warn("dispatched error",
		"category", string(me.Category), "code", me.Code, "message", me.Message)
	if m.bus != nil {
		m.bus.Publish(events.NewErrorRaised(me))
	}
	return me
}

// Current returns a copy of the current global error, or nil.
func (m *Manager) Current() *core.ManagedError {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	copied := *m.current
	return &copied
}

// Clear dismisses the current global error.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
}
