package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatAuth       ErrorCategory = "auth"       // Expired/missing provider credentials
	ErrCatAPI        ErrorCategory = "api"        // Upstream provider rejected the call
	ErrCatValidation ErrorCategory = "validation" // Precondition not met
	ErrCatSystem     ErrorCategory = "system"     // Anything unclassified
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category    ErrorCategory
	Code        string
	Message     string
	Provider    Provider
	Status      int // HTTP status carried from upstream, 0 if not applicable
	Recoverable bool
	Cause       error
	Details     map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrAuth creates an authentication error for the given provider.
func ErrAuth(code, message string, provider Provider) *DomainError {
	return &DomainError{
		Category:    ErrCatAuth,
		Code:        code,
		Message:     message,
		Provider:    provider,
		Status:      401,
		Recoverable: true,
	}
}

// ErrAPI creates an upstream API error.
func ErrAPI(code, message string, provider Provider, status int) *DomainError {
	return &DomainError{
		Category: ErrCatAPI,
		Code:     code,
		Message:  message,
		Provider: provider,
		Status:   status,
	}
}

// ErrValidationFailed creates a validation error.
func ErrValidationFailed(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatValidation,
		Code:     code,
		Message:  message,
	}
}

// ErrSystem creates an unclassified internal error.
func ErrSystem(message string) *DomainError {
	return &DomainError{
		Category: ErrCatSystem,
		Code:     CodeUnknownError,
		Message:  message,
	}
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatSystem
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Error codes surfaced to callers.
const (
	CodeAuthExpired       = "AUTH_EXPIRED"
	CodeUnknownError      = "UNKNOWN_ERROR"
	CodeMissingConfig     = "MISSING_CONFIG"
	CodeMissingDependency = "MISSING_DEPENDENCY"
	CodeNoExecuteFunction = "NO_EXECUTE_FUNCTION"
	CodeAPINotEnabled     = "API_NOT_ENABLED"
	CodeNoSession         = "NO_SESSION"
	CodeRefreshTokenError = "REFRESH_TOKEN_ERROR"
	CodeAuthMissing       = "AUTH_MISSING"
	CodeValidationError   = "VALIDATION_ERROR"
)

// ManagedError is the UI-facing classification of any error.
type ManagedError struct {
	Category    ErrorCategory   `json:"category"`
	Message     string          `json:"message"`
	Code        string          `json:"code,omitempty"`
	Provider    Provider        `json:"provider,omitempty"`
	Recoverable bool            `json:"recoverable"`
	Action      *RemedialAction `json:"action,omitempty"`
}

// RemedialAction describes the self-service fix for a recoverable error.
type RemedialAction struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}
