package core

// RefreshTokenError is the marker the auth collaborator places on a
// session whose token refresh failed.
const RefreshTokenError = "RefreshTokenError"

// Session is the shape supplied by the external auth collaborator.
type Session struct {
	User              string `json:"user"`
	Error             string `json:"error,omitempty"`
	HasGoogleAuth     bool   `json:"hasGoogleAuth"`
	HasMicrosoftAuth  bool   `json:"hasMicrosoftAuth"`
	GoogleToken       string `json:"googleToken,omitempty"`
	MicrosoftToken    string `json:"microsoftToken,omitempty"`
	MicrosoftTenantID string `json:"microsoftTenantId,omitempty"`
}

// GoogleValid reports whether the session carries a usable Google credential.
func (s *Session) GoogleValid() bool {
	return s != nil && s.HasGoogleAuth && s.GoogleToken != ""
}

// MicrosoftValid reports whether the session carries a usable Microsoft credential.
func (s *Session) MicrosoftValid() bool {
	return s != nil && s.HasMicrosoftAuth && s.MicrosoftToken != ""
}

// SessionError classifies a session validation failure.
type SessionError struct {
	Provider Provider `json:"provider"`
	Message  string   `json:"message"`
	Code     string   `json:"code"`
}

// SessionValidation is the transient result of validating both provider
// credentials.
type SessionValidation struct {
	Valid          bool          `json:"valid"`
	GoogleValid    bool          `json:"googleValid"`
	MicrosoftValid bool          `json:"microsoftValid"`
	Error          *SessionError `json:"error,omitempty"`
}

// AuthorizedSession is a Session whose token fields are guaranteed present.
// Produced only by a successful RequireBothProviders.
type AuthorizedSession struct {
	User              string
	GoogleToken       string
	MicrosoftToken    string
	MicrosoftTenantID string
}
