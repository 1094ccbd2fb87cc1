// Package session validates the dual-provider authenticated session that
// every automated setup step depends on.
package session

import (
	"context"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/logging"
)

// UpdateFunc refreshes the session out of band and returns the result.
type UpdateFunc func(ctx context.Context) (*core.Session, error)

// Validator checks presence and validity of both provider credentials.
type Validator struct {
	source core.SessionSource
	tokens *TokenStore
	logger *logging.Logger
}

// ValidatorOption configures the validator.
type ValidatorOption func(*Validator)

// WithLogger sets the validator logger.
func WithLogger(logger *logging.Logger) ValidatorOption {
	return func(v *Validator) {
		v.logger = logger
	}
}

// NewValidator creates a validator over the given session source.
func NewValidator(source core.SessionSource, tokens *TokenStore, opts ...ValidatorOption) *Validator {
	v := &Validator{
		source: source,
		tokens: tokens,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate classifies the current session. Failure modes, in priority
// order: no session, refresh failure marker, missing provider credential.
func (v *Validator) Validate(ctx context.Context) core.SessionValidation {
	sess, err := v.source.Session(ctx)
	if err != nil || sess == nil {
		return core.SessionValidation{
			Error: &core.SessionError{
				Provider: core.ProviderBoth,
				Message:  "no authenticated session",
				Code:     core.CodeNoSession,
			},
		}
	}

	if sess.Error == core.RefreshTokenError {
		return core.SessionValidation{
			Error: &core.SessionError{
				Provider: core.ProviderBoth,
				Message:  "session token refresh failed, sign in again",
				Code:     core.CodeRefreshTokenError,
			},
		}
	}

	googleOK := sess.GoogleValid()
	microsoftOK := sess.MicrosoftValid()

	if !googleOK || !microsoftOK {
		provider := core.ProviderBoth
		message := "missing Google and Microsoft credentials"
		switch {
		case googleOK:
			provider = core.ProviderMicrosoft
			message = "missing Microsoft credential"
		case microsoftOK:
			provider = core.ProviderGoogle
			message = "missing Google credential"
		}
		return core.SessionValidation{
			GoogleValid:    googleOK,
			MicrosoftValid: microsoftOK,
			Error: &core.SessionError{
				Provider: provider,
				Message:  message,
				Code:     core.CodeAuthMissing,
			},
		}
	}

	return core.SessionValidation{
		Valid:          true,
		GoogleValid:    true,
		MicrosoftValid: true,
	}
}

// RequireBothProviders validates the session and returns it with
// guaranteed-present tokens, or a typed 401 error carrying the
// classification code.
func (v *Validator) RequireBothProviders(ctx context.Context) (*core.AuthorizedSession, error) {
	validation := v.Validate(ctx)
	if !validation.Valid {
		return nil, core.ErrAuth(validation.Error.Code, validation.Error.Message, validation.Error.Provider)
	}

	sess, err := v.source.Session(ctx)
	if err != nil {
		return nil, core.ErrAuth(core.CodeNoSession, "no authenticated session", core.ProviderBoth)
	}

	return &core.AuthorizedSession{
		User:              sess.User,
		GoogleToken:       sess.GoogleToken,
		MicrosoftToken:    sess.MicrosoftToken,
		MicrosoftTenantID: sess.MicrosoftTenantID,
	}, nil
}

// RefreshIfNeeded re-validates the session after a refresh. When update is
// supplied it is invoked and success is judged by absence of the refresh
// failure marker. Otherwise the session is re-fetched; a session still
// carrying the marker triggers token cleanup and reports failure.
func (v *Validator) RefreshIfNeeded(ctx context.Context, update UpdateFunc) (bool, error) {
	if update != nil {
		sess, err := update(ctx)
		if err != nil {
			return false, err
		}
		return sess != nil && sess.Error != core.RefreshTokenError, nil
	}

	sess, err := v.source.Session(ctx)
	if err != nil || sess == nil {
		return false, err
	}

	if sess.Error == core.RefreshTokenError {
		v.logger.Warn("session refresh failed, clearing stored tokens")
		v.tokens.Delete(core.ProviderGoogle)
		v.tokens.Delete(core.ProviderMicrosoft)
		return false, nil
	}

	return true, nil
}
