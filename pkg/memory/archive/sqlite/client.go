// Package sqlite provides the SQLite implementation of the snapshot
// archive.
//
// SQLite is a lightweight, file-based database suitable for keeping memory
// snapshots on the local machine between dashboard sessions.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agrovista/farmsight-go/pkg/memory/archive"
)

// Client implements archive.Store using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// tableName is the name of the table storing snapshots.
	tableName string
}

// Config contains configuration for creating a SQLite archive.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TableName is the name of the table to use. Defaults to "memory_snapshots".
	TableName string
}

// NewClient creates a new SQLite archive client.
//
// Parameters:
//   - cfg: Configuration containing database path and table name
//
// Returns:
//   - *Client: The SQLite client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	// Create parent directory if it doesn't exist
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteArchive: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteArchive: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteArchive: %w", err)
	}

	tableName := cfg.TableName
	if tableName == "" {
		tableName = "memory_snapshots"
	}

	client := &Client{
		db:        db,
		tableName: tableName,
	}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the snapshot table structure.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			taken_at DATETIME NOT NULL,
			entry_count INTEGER NOT NULL,
			payload TEXT NOT NULL
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_tenant ON %s(tenant_id, taken_at)
	`, c.tableName, c.tableName)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Save persists a snapshot.
func (c *Client) Save(ctx context.Context, snapshot *archive.Snapshot) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, tenant_id, taken_at, entry_count, payload)
		VALUES (?, ?, ?, ?, ?)
	`, c.tableName)

	_, err := c.db.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.TenantID,
		snapshot.TakenAt,
		snapshot.EntryCount,
		string(snapshot.Payload),
	)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

// Load retrieves a snapshot by ID.
func (c *Client) Load(ctx context.Context, id int64) (*archive.Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, tenant_id, taken_at, entry_count, payload
		FROM %s WHERE id = ?
	`, c.tableName)

	var snapshot archive.Snapshot
	var payload string
	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&snapshot.ID,
		&snapshot.TenantID,
		&snapshot.TakenAt,
		&snapshot.EntryCount,
		&payload,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, archive.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	snapshot.Payload = []byte(payload)
	return &snapshot, nil
}

// List returns snapshot metadata for a tenant, newest first.
func (c *Client) List(ctx context.Context, tenantID string) ([]*archive.Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, tenant_id, taken_at, entry_count
		FROM %s WHERE tenant_id = ?
		ORDER BY taken_at DESC
	`, c.tableName)

	rows, err := c.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var snapshots []*archive.Snapshot
	for rows.Next() {
		var snapshot archive.Snapshot
		if err := rows.Scan(&snapshot.ID, &snapshot.TenantID, &snapshot.TakenAt, &snapshot.EntryCount); err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		snapshots = append(snapshots, &snapshot)
	}
	return snapshots, rows.Err()
}

// Delete removes a snapshot by ID.
func (c *Client) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, c.tableName)
	if _, err := c.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}
