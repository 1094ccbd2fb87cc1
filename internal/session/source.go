package session

import (
	"context"
	"os"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

// Env variable names for provider access tokens. An external OAuth
// broker (or the operator) mints these; fedbridge never performs the
// interactive flows itself.
const (
	EnvGoogleToken       = "FEDBRIDGE_GOOGLE_TOKEN"
	EnvMicrosoftToken    = "FEDBRIDGE_MICROSOFT_TOKEN"
	EnvMicrosoftTenantID = "FEDBRIDGE_MICROSOFT_TENANT_ID"
)

// EnvSource resolves the current session from the token store, falling
// back to environment variables. Tokens set at runtime (for example via
// the API) win over the process environment.
type EnvSource struct {
	tokens *TokenStore
}

// NewEnvSource creates a source backed by the given token store. A nil
// store reads only the environment.
func NewEnvSource(tokens *TokenStore) *EnvSource {
	return &EnvSource{tokens: tokens}
}

// Session builds the current session snapshot. It never errors: absent
// tokens yield a session that fails validation downstream.
func (s *EnvSource) Session(ctx context.Context) (*core.Session, error) {
	googleToken := s.token(core.ProviderGoogle, EnvGoogleToken)
	microsoftToken := s.token(core.ProviderMicrosoft, EnvMicrosoftToken)

	return &core.Session{
		HasGoogleAuth:     googleToken != "",
		HasMicrosoftAuth:  microsoftToken != "",
		GoogleToken:       googleToken,
		MicrosoftToken:    microsoftToken,
		MicrosoftTenantID: os.Getenv(EnvMicrosoftTenantID),
	}, nil
}

func (s *EnvSource) token(provider core.Provider, envKey string) string {
	if s.tokens != nil {
		if tok, ok := s.tokens.Get(provider); ok && tok != "" {
			return tok
		}
	}
	return os.Getenv(envKey)
}
