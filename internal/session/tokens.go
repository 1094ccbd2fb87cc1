package session

import (
	"sync"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

// TokenStore holds provider bearer tokens for the lifetime of the process.
// It is passed explicitly to the components that need it; Reset exists for
// test isolation and logout.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[core.Provider]string
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[core.Provider]string),
	}
}

// Set stores a token for a provider.
func (s *TokenStore) Set(provider core.Provider, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[provider] = token
}

// Get returns the stored token for a provider.
func (s *TokenStore) Get(provider core.Provider) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[provider]
	return tok, ok && tok != ""
}

// Delete removes the token for a provider.
func (s *TokenStore) Delete(provider core.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, provider)
}

// Reset clears all stored tokens.
func (s *TokenStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[core.Provider]string)
}
