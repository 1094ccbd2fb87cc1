package provider

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

func TestIsAuthenticationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"wrapped auth error", &AuthenticationError{Provider: core.ProviderGoogle, Message: "expired"}, true},
		{"401 api error", &APIError{Provider: core.ProviderGoogle, Status: 401}, true},
		{"403 api error", &APIError{Provider: core.ProviderGoogle, Status: 403}, false},
		{"plain error", errors.New("boom"), false},
		{"nested auth error", fmt.Errorf("call failed: %w", &AuthenticationError{Provider: core.ProviderMicrosoft}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthenticationError(tt.err); got != tt.want {
				t.Errorf("IsAuthenticationError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapAuthError_CarriesProviderAndMessage(t *testing.T) {
	orig := &APIError{Provider: core.ProviderGoogle, Status: 401, Message: "Invalid Credentials"}
	wrapped := WrapAuthError(orig, core.ProviderGoogle)

	if wrapped.Provider != core.ProviderGoogle {
		t.Errorf("Provider = %s, want google", wrapped.Provider)
	}
	if wrapped.Message != "Invalid Credentials" {
		t.Errorf("Message = %q, want original message", wrapped.Message)
	}
	if !errors.Is(wrapped, orig) {
		t.Error("wrapped error should unwrap to the original")
	}
}

func TestIsAPIEnablementError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			"access not configured",
			&APIError{Status: 403, Message: "Access Not Configured. accessNotConfigured"},
			true,
		},
		{
			"api not used in project",
			&APIError{Status: 403, Message: "Admin SDK API has not been used in project 12345 before or it is disabled."},
			true,
		},
		{
			"plain 403",
			&APIError{Status: 403, Message: "Not Authorized to access this resource/api"},
			false,
		},
		{
			"enablement text but wrong status",
			&APIError{Status: 400, Message: "accessNotConfigured"},
			false,
		},
		{"non-api error", errors.New("dial tcp: timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAPIEnablementError(tt.err); got != tt.want {
				t.Errorf("IsAPIEnablementError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreateEnablementError_NamesAPIAndConsoleURL(t *testing.T) {
	orig := &APIError{
		Provider: core.ProviderGoogle,
		Status:   403,
		Message:  "admin.googleapis.com has not been used in project 12345 before or it is disabled.",
	}

	got := CreateEnablementError(orig)
	if got.Status != 403 {
		t.Errorf("Status = %d, want 403 preserved", got.Status)
	}
	if got.Code != core.CodeAPINotEnabled {
		t.Errorf("Code = %s, want API_NOT_ENABLED", got.Code)
	}
	if !strings.Contains(got.Message, "admin.googleapis.com") {
		t.Errorf("Message should name the API: %q", got.Message)
	}
	if !strings.Contains(got.Message, "console.cloud.google.com/apis/library/admin.googleapis.com") {
		t.Errorf("Message should carry the console URL: %q", got.Message)
	}
}

func TestGoogleErrorHook(t *testing.T) {
	enablement := &APIError{Status: 403, Message: "accessNotConfigured admin.googleapis.com"}
	got := GoogleErrorHook(enablement)
	var apiErr *APIError
	if !errors.As(got, &apiErr) || apiErr.Code != core.CodeAPINotEnabled {
		t.Errorf("GoogleErrorHook() should rewrite enablement errors, got %v", got)
	}

	other := &APIError{Status: 400, Message: "Invalid Input"}
	if GoogleErrorHook(other) != other {
		t.Error("GoogleErrorHook() should pass through non-enablement errors")
	}
}
