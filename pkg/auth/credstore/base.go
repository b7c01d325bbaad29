// Package credstore defines the persistent credential storage interface
// used by the token manager, with keyring and SQLite backends.
package credstore

import "errors"

// ErrNotFound indicates that a requested credential is not stored.
var ErrNotFound = errors.New("credential not found")

// Store is the interface all credential store backends must implement.
//
// A Store holds at most one access token and one refresh token for the
// current session. Implementations must be safe for concurrent use.
type Store interface {
	// AccessToken returns the stored access token.
	// Returns ErrNotFound if no access token is stored.
	AccessToken() (string, error)

	// RefreshToken returns the stored refresh token.
	// Returns ErrNotFound if no refresh token is stored.
	RefreshToken() (string, error)

	// SetTokens stores the access token and, when non-empty, the refresh
	// token. An empty refresh token leaves any stored refresh token intact.
	SetTokens(accessToken, refreshToken string) error

	// Clear removes both tokens. Clearing an empty store is not an error.
	Clear() error

	// Close releases any resources held by the store.
	Close() error
}
