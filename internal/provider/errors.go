package provider

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

// APIError is the typed error for an upstream provider rejection. It is
// never retried: the provider answered, it just said no.
type APIError struct {
	Provider core.Provider
	Status   int
	Code     string
	Message  string
	Body     string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s API error %d (%s): %s", e.Provider, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.Status, e.Message)
}

// IsAPIError reports whether err carries a typed provider API error.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// AuthenticationError marks a 401 from a provider. It is inspected at the
// action boundary and converted to a structured failure result instead of
// surfacing as an exception to the UI layer.
type AuthenticationError struct {
	Provider core.Provider
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// IsAuthenticationError reports whether err is a provider 401, either
// already wrapped or as a raw API error.
func IsAuthenticationError(err error) bool {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// WrapAuthError produces a typed AuthenticationError carrying the provider
// tag and the original message.
func WrapAuthError(err error, provider core.Provider) *AuthenticationError {
	msg := "token expired or invalid"
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	return &AuthenticationError{
		Provider: provider,
		Message:  msg,
		Cause:    err,
	}
}

// AuthErrorProvider extracts the provider tag from an authentication
// error, defaulting to both.
func AuthErrorProvider(err error) core.Provider {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return authErr.Provider
	}
	return core.ProviderBoth
}

// enablementPattern matches the messages Google returns when a cloud API
// is disabled for the project.
var enablementPattern = regexp.MustCompile(
	`(?i)(accessNotConfigured|has not been used in project|API .* is disabled)`)

// apiNamePattern extracts the API name from an enablement message.
var apiNamePattern = regexp.MustCompile(`([a-z][a-z0-9]*\.googleapis\.com)`)

// IsAPIEnablementError reports whether err is a 403 indicating a cloud API
// is disabled for the project.
func IsAPIEnablementError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusForbidden && enablementPattern.MatchString(apiErr.Message)
}

// CreateEnablementError rewrites an enablement 403 to name the disabled
// API and append an actionable console URL. Status stays 403.
func CreateEnablementError(err error) *APIError {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return &APIError{
			Provider: core.ProviderGoogle,
			Status:   http.StatusForbidden,
			Code:     core.CodeAPINotEnabled,
			Message:  "a required Google Cloud API is disabled for this project",
		}
	}

	apiName := "the required API"
	consoleURL := "https://console.cloud.google.com/apis/library"
	if m := apiNamePattern.FindString(apiErr.Message); m != "" {
		apiName = m
		consoleURL = "https://console.cloud.google.com/apis/library/" + m
	}

	return &APIError{
		Provider: apiErr.Provider,
		Status:   http.StatusForbidden,
		Code:     core.CodeAPINotEnabled,
		Message: fmt.Sprintf("%s is not enabled for this project. Enable it at %s and retry.",
			apiName, consoleURL),
		Body: apiErr.Body,
	}
}
