package session

import (
	"context"
	"errors"
	"testing"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

func staticSource(sess *core.Session) core.SessionSource {
	return core.SessionSourceFunc(func(ctx context.Context) (*core.Session, error) {
		return sess, nil
	})
}

func fullSession() *core.Session {
	return &core.Session{
		User:              "admin@example.com",
		HasGoogleAuth:     true,
		HasMicrosoftAuth:  true,
		GoogleToken:       "g-token",
		MicrosoftToken:    "m-token",
		MicrosoftTenantID: "tenant-1",
	}
}

func TestValidate_NoSession(t *testing.T) {
	v := NewValidator(staticSource(nil), NewTokenStore())

	got := v.Validate(context.Background())
	if got.Valid {
		t.Fatal("Validate() should fail without a session")
	}
	if got.Error.Code != core.CodeNoSession {
		t.Errorf("code = %s, want NO_SESSION", got.Error.Code)
	}
	if got.Error.Provider != core.ProviderBoth {
		t.Errorf("provider = %s, want both", got.Error.Provider)
	}
}

func TestValidate_SourceError(t *testing.T) {
	src := core.SessionSourceFunc(func(ctx context.Context) (*core.Session, error) {
		return nil, errors.New("cookie jar broken")
	})
	v := NewValidator(src, NewTokenStore())

	got := v.Validate(context.Background())
	if got.Valid || got.Error.Code != core.CodeNoSession {
		t.Errorf("Validate() = %+v, want NO_SESSION failure", got)
	}
}

func TestValidate_RefreshTokenError(t *testing.T) {
	sess := fullSession()
	sess.Error = core.RefreshTokenError
	v := NewValidator(staticSource(sess), NewTokenStore())

	got := v.Validate(context.Background())
	if got.Valid {
		t.Fatal("Validate() should fail on refresh marker")
	}
	if got.Error.Code != core.CodeRefreshTokenError {
		t.Errorf("code = %s, want REFRESH_TOKEN_ERROR", got.Error.Code)
	}
}

func TestValidate_MissingProvider(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*core.Session)
		wantProvider core.Provider
	}{
		{"missing google token", func(s *core.Session) { s.GoogleToken = "" }, core.ProviderGoogle},
		{"google auth flag false", func(s *core.Session) { s.HasGoogleAuth = false }, core.ProviderGoogle},
		{"missing microsoft token", func(s *core.Session) { s.MicrosoftToken = "" }, core.ProviderMicrosoft},
		{"both missing", func(s *core.Session) {
			s.GoogleToken = ""
			s.MicrosoftToken = ""
		}, core.ProviderBoth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := fullSession()
			tt.mutate(sess)
			v := NewValidator(staticSource(sess), NewTokenStore())

			got := v.Validate(context.Background())
			if got.Valid {
				t.Fatal("Validate() should fail")
			}
			if got.Error.Code != core.CodeAuthMissing {
				t.Errorf("code = %s, want AUTH_MISSING", got.Error.Code)
			}
			if got.Error.Provider != tt.wantProvider {
				t.Errorf("provider = %s, want %s", got.Error.Provider, tt.wantProvider)
			}
		})
	}
}

func TestValidate_BothValid(t *testing.T) {
	v := NewValidator(staticSource(fullSession()), NewTokenStore())

	got := v.Validate(context.Background())
	if !got.Valid || !got.GoogleValid || !got.MicrosoftValid {
		t.Errorf("Validate() = %+v, want all valid", got)
	}
	if got.Error != nil {
		t.Errorf("Error = %+v, want nil", got.Error)
	}
}

func TestRequireBothProviders_Invalid(t *testing.T) {
	v := NewValidator(staticSource(nil), NewTokenStore())

	_, err := v.RequireBothProviders(context.Background())
	var domErr *core.DomainError
	if !errors.As(err, &domErr) {
		t.Fatalf("error = %v, want DomainError", err)
	}
	if domErr.Status != 401 {
		t.Errorf("Status = %d, want 401", domErr.Status)
	}
	if domErr.Code != core.CodeNoSession {
		t.Errorf("Code = %s, want NO_SESSION", domErr.Code)
	}
}

func TestRequireBothProviders_Valid(t *testing.T) {
	v := NewValidator(staticSource(fullSession()), NewTokenStore())

	authorized, err := v.RequireBothProviders(context.Background())
	if err != nil {
		t.Fatalf("RequireBothProviders() error = %v", err)
	}
	if authorized.GoogleToken != "g-token" || authorized.MicrosoftToken != "m-token" {
		t.Errorf("tokens not carried through: %+v", authorized)
	}
	if authorized.MicrosoftTenantID != "tenant-1" {
		t.Errorf("MicrosoftTenantID = %s, want tenant-1", authorized.MicrosoftTenantID)
	}
}

func TestRefreshIfNeeded_WithUpdater(t *testing.T) {
	v := NewValidator(staticSource(nil), NewTokenStore())

	ok, err := v.RefreshIfNeeded(context.Background(), func(ctx context.Context) (*core.Session, error) {
		return fullSession(), nil
	})
	if err != nil || !ok {
		t.Errorf("RefreshIfNeeded() = %v, %v, want true, nil", ok, err)
	}

	ok, err = v.RefreshIfNeeded(context.Background(), func(ctx context.Context) (*core.Session, error) {
		s := fullSession()
		s.Error = core.RefreshTokenError
		return s, nil
	})
	if err != nil || ok {
		t.Errorf("RefreshIfNeeded() = %v, %v, want false, nil", ok, err)
	}
}

func TestRefreshIfNeeded_CleansUpOnRefreshError(t *testing.T) {
	sess := fullSession()
	sess.Error = core.RefreshTokenError

	tokens := NewTokenStore()
	tokens.Set(core.ProviderGoogle, "g-token")
	tokens.Set(core.ProviderMicrosoft, "m-token")

	v := NewValidator(staticSource(sess), tokens)

	ok, err := v.RefreshIfNeeded(context.Background(), nil)
	if err != nil {
		t.Fatalf("RefreshIfNeeded() error = %v", err)
	}
	if ok {
		t.Error("RefreshIfNeeded() should report failure")
	}
	if _, found := tokens.Get(core.ProviderGoogle); found {
		t.Error("google token should be deleted on refresh failure")
	}
	if _, found := tokens.Get(core.ProviderMicrosoft); found {
		t.Error("microsoft token should be deleted on refresh failure")
	}
}

func TestTokenStore_Reset(t *testing.T) {
	s := NewTokenStore()
	s.Set(core.ProviderGoogle, "tok")
	s.Reset()
	if _, ok := s.Get(core.ProviderGoogle); ok {
		t.Error("Reset() should clear all tokens")
	}
}
