// Package sqlite provides a credential store backed by a local SQLite file.
//
// This backend serves headless and containerized environments where the OS
// keychain is unavailable. Tokens are stored in a single-row table keyed by
// credential name.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agrovista/farmsight-go/pkg/auth/credstore"
)

const (
	accessKey  = "access_token"
	refreshKey = "refresh_token"
)

// Store implements credstore.Store using SQLite as the backend.
type Store struct {
	// db is the SQLite database connection.
	db *sql.DB
}

// Config contains configuration for creating a SQLite credential store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// NewStore creates a new SQLite-backed credential store.
//
// Parameters:
//   - cfg: Configuration containing the database file path
//
// Returns:
//   - *Store: The store instance
//   - error: Error if database connection or table creation fails
func NewStore(cfg *Config) (*Store, error) {
	// Create parent directory if it doesn't exist
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0700); err != nil {
			return nil, fmt.Errorf("NewCredStore: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewCredStore: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewCredStore: %w", err)
	}

	store := &Store{db: db}
	if err := store.initTables(context.Background()); err != nil {
		return nil, err
	}

	return store, nil
}

// initTables initializes the credentials table.
func (s *Store) initTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS credentials (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}
	return nil
}

// AccessToken returns the stored access token.
func (s *Store) AccessToken() (string, error) {
	return s.get(accessKey)
}

// RefreshToken returns the stored refresh token.
func (s *Store) RefreshToken() (string, error) {
	return s.get(refreshKey)
}

// SetTokens stores the access token and, when non-empty, the refresh token.
func (s *Store) SetTokens(accessToken, refreshToken string) error {
	if err := s.set(accessKey, accessToken); err != nil {
		return err
	}
	if refreshToken != "" {
		return s.set(refreshKey, refreshToken)
	}
	return nil
}

// Clear removes both tokens.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM credentials WHERE name IN (?, ?)`, accessKey, refreshKey)
	if err != nil {
		return fmt.Errorf("Clear: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(name string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM credentials WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", credstore.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", name, err)
	}
	return value, nil
}

func (s *Store) set(name, value string) error {
	query := `
		INSERT INTO credentials (name, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.Exec(query, name, value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}
