package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrovista/farmsight-go/pkg/auth/credstore"
	"github.com/agrovista/farmsight-go/pkg/logger"
)

// refreshCall is one in-flight refresh shared by every concurrent caller.
type refreshCall struct {
	// done is closed once the refresh outcome is known.
	done chan struct{}

	// ok is the refresh outcome, valid only after done is closed.
	ok bool
}

// Manager owns the current access token and serializes refresh attempts.
//
// At most one refresh is in flight per Manager instance; concurrent callers
// of Refresh or EnsureValid share the outcome of that single network call.
// The Manager is safe for concurrent use.
//
// Example:
//
//	creds := credstore.NewMemory()
//	mgr := auth.NewManager(&auth.Config{
//	    RefreshURL: "https://api.example.com/api/auth/refresh",
//	    Creds:      creds,
//	})
//	if !mgr.EnsureValid(ctx) {
//	    // force re-login
//	}
type Config struct {
	// RefreshURL is the full URL of the token refresh endpoint.
	RefreshURL string

	// Creds is the persistent credential store. Defaults to an in-process
	// store when nil.
	Creds credstore.Store

	// HTTPClient is the HTTP client used for the refresh call.
	// Defaults to a client with a 30-second timeout.
	HTTPClient *http.Client

	// Logger is the logger for refresh diagnostics (optional).
	Logger *zerolog.Logger
}

// Manager tracks the current access token and coordinates refresh.
type Manager struct {
	// mu protects token and pending.
	mu sync.Mutex

	// token is the current access token ("" when unauthenticated).
	token string

	// pending is the in-flight refresh, nil when none is running.
	pending *refreshCall

	creds      credstore.Store
	refreshURL string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewManager creates a new token manager.
func NewManager(cfg *Config) *Manager {
	creds := cfg.Creds
	if creds == nil {
		creds = credstore.NewMemory()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	log := logger.With("auth")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &Manager{
		creds:      creds,
		refreshURL: cfg.RefreshURL,
		httpClient: httpClient,
		log:        log,
	}
}

// SetToken replaces the current access token. No validation is performed.
func (m *Manager) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// ClearToken drops the current access token.
func (m *Manager) ClearToken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
}

// Token returns the current access token ("" when unauthenticated).
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// EnsureValid reports whether the current token is usable, refreshing it
// first when it is expired.
//
// An unauthenticated manager (no token set) is trivially valid: requests
// simply go out without an Authorization header.
func (m *Manager) EnsureValid(ctx context.Context) bool {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()

	if token == "" {
		return true
	}
	if !IsExpired(token) {
		return true
	}
	return m.Refresh(ctx)
}

// Refresh obtains a new access token using the stored refresh credential.
//
// If a refresh is already in flight, the caller waits for and shares its
// outcome instead of issuing a second network call. On success the new
// token is stored in the manager and the credential store; on any failure
// both tokens are cleared and false is returned.
func (m *Manager) Refresh(ctx context.Context) bool {
	m.mu.Lock()
	if m.pending != nil {
		call := m.pending
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.ok
		case <-ctx.Done():
			return false
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	m.pending = call
	m.mu.Unlock()

	// The in-flight marker is cleared whatever doRefresh does.
	defer func() {
		m.mu.Lock()
		m.pending = nil
		m.mu.Unlock()
		close(call.done)
	}()

	call.ok = m.doRefresh(ctx)
	return call.ok
}

// refreshResponse covers both the bare and enveloped refresh payloads.
type refreshResponse struct {
	AccessToken string `json:"access_token"`
	Data        struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

// doRefresh performs the actual refresh network call.
func (m *Manager) doRefresh(ctx context.Context) bool {
	refreshToken, err := m.creds.RefreshToken()
	if err != nil || refreshToken == "" {
		// No credential: fail without a network call.
		m.log.Debug().Msg("refresh skipped: no refresh token stored")
		return false
	}

	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		m.clearAll()
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.refreshURL, bytes.NewReader(body))
	if err != nil {
		m.clearAll()
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.log.Warn().Err(err).Msg("token refresh failed")
		m.clearAll()
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.log.Warn().Int("status", resp.StatusCode).Msg("token refresh rejected")
		m.clearAll()
		return false
	}

	var parsed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		m.log.Warn().Err(err).Msg("token refresh returned malformed body")
		m.clearAll()
		return false
	}

	newToken := parsed.AccessToken
	if newToken == "" {
		newToken = parsed.Data.AccessToken
	}
	if newToken == "" {
		m.clearAll()
		return false
	}

	m.mu.Lock()
	m.token = newToken
	m.mu.Unlock()
	if err := m.creds.SetTokens(newToken, ""); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist refreshed token")
	}
	m.log.Debug().Msg("access token refreshed")
	return true
}

// clearAll drops the in-memory token and the persisted credentials.
func (m *Manager) clearAll() {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	if err := m.creds.Clear(); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear stored credentials")
	}
}
