// Package postgres provides the PostgreSQL implementation of the snapshot
// archive, for teams that share memory snapshots through a central
// database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/agrovista/farmsight-go/pkg/memory/archive"
)

// Client implements archive.Store using PostgreSQL as the backend.
type Client struct {
	// db is the PostgreSQL database connection.
	db *sql.DB

	// tableName is the name of the table storing snapshots.
	tableName string
}

// Config contains configuration for creating a PostgreSQL archive.
type Config struct {
	// Host is the database server host.
	Host string

	// Port is the database server port.
	Port int

	// User is the database user.
	User string

	// Password is the database password.
	Password string

	// DBName is the database name.
	DBName string

	// SSLMode is the PostgreSQL sslmode setting (e.g. "disable", "require").
	SSLMode string

	// TableName is the name of the table to use. Defaults to "memory_snapshots".
	TableName string
}

// NewClient creates a new PostgreSQL archive client.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresArchive: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresArchive: %w", err)
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
			id BIGINT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			taken_at TIMESTAMPTZ NOT NULL,
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
		VALUES ($1, $2, $3, $4, $5)
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
		FROM %s WHERE id = $1
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
		FROM %s WHERE tenant_id = $1
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
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, c.tableName)
	if _, err := c.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}
