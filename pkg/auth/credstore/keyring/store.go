// Package keyring provides a credential store backed by the OS keychain.
//
// Tokens are held by the platform secret service (Keychain on macOS,
// Credential Manager on Windows, Secret Service on Linux), so they survive
// process restarts without ever touching the filesystem in plain text.
package keyring

import (
	"errors"
	"os"

	zkr "github.com/zalando/go-keyring"

	"github.com/agrovista/farmsight-go/pkg/auth/credstore"
)

const (
	defaultService = "farmsight"

	accessAccount  = "access-token"
	refreshAccount = "refresh-token"
)

// Store implements credstore.Store using the OS keychain.
type Store struct {
	// service is the keychain service name entries are filed under.
	service string
}

// Config contains configuration for creating a keyring Store.
type Config struct {
	// Service is the keychain service name. Defaults to "farmsight".
	Service string
}

// NewStore creates a new keyring-backed credential store.
func NewStore(cfg *Config) (*Store, error) {
	service := defaultService
	if cfg != nil && cfg.Service != "" {
		service = cfg.Service
	}
	return &Store{service: service}, nil
}

// Available returns true if the OS keychain is functional.
// Returns false if FARMSIGHT_KEYRING_DISABLED=1 is set (for headless/CI).
// Otherwise probes the keychain with a test write/delete cycle.
func Available() bool {
	if os.Getenv("FARMSIGHT_KEYRING_DISABLED") == "1" {
		return false
	}
	testService := "farmsight-keyring-probe"
	if err := zkr.Set(testService, "probe", "ok"); err != nil {
		return false
	}
	_ = zkr.Delete(testService, "probe")
	return true
}

// AccessToken returns the stored access token.
func (s *Store) AccessToken() (string, error) {
	return s.get(accessAccount)
}

// RefreshToken returns the stored refresh token.
func (s *Store) RefreshToken() (string, error) {
	return s.get(refreshAccount)
}

// SetTokens stores the access token and, when non-empty, the refresh token.
func (s *Store) SetTokens(accessToken, refreshToken string) error {
	if err := zkr.Set(s.service, accessAccount, accessToken); err != nil {
		return err
	}
	if refreshToken != "" {
		return zkr.Set(s.service, refreshAccount, refreshToken)
	}
	return nil
}

// Clear removes both tokens from the keychain.
func (s *Store) Clear() error {
	if err := s.delete(accessAccount); err != nil {
		return err
	}
	return s.delete(refreshAccount)
}

// Close is a no-op for the keychain backend.
func (s *Store) Close() error {
	return nil
}

func (s *Store) get(account string) (string, error) {
	value, err := zkr.Get(s.service, account)
	if errors.Is(err, zkr.ErrNotFound) {
		return "", credstore.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) delete(account string) error {
	err := zkr.Delete(s.service, account)
	if err != nil && !errors.Is(err, zkr.ErrNotFound) {
		return err
	}
	return nil
}
