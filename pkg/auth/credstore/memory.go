package credstore

import "sync"

// Memory is an in-process credential store.
//
// It is used as the default backend when no persistent store is configured,
// and by tests. Tokens do not survive process exit.
type Memory struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// NewMemory creates a new in-process credential store.
func NewMemory() *Memory {
	return &Memory{}
}

// AccessToken returns the stored access token.
func (m *Memory) AccessToken() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.access == "" {
		return "", ErrNotFound
	}
	return m.access, nil
}

// RefreshToken returns the stored refresh token.
func (m *Memory) RefreshToken() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.refresh == "" {
		return "", ErrNotFound
	}
	return m.refresh, nil
}

// SetTokens stores the access token and, when non-empty, the refresh token.
func (m *Memory) SetTokens(accessToken, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = accessToken
	if refreshToken != "" {
		m.refresh = refreshToken
	}
	return nil
}

// Clear removes both tokens.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = ""
	m.refresh = ""
	return nil
}

// Close is a no-op for the in-process backend.
func (m *Memory) Close() error {
	return nil
}
