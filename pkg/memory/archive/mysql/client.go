// Package mysql provides the MySQL implementation of the snapshot archive,
// for deployments whose shared infrastructure runs on MySQL-compatible
// databases.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/agrovista/farmsight-go/pkg/memory/archive"
)

// Client implements archive.Store using MySQL as the backend.
type Client struct {
	// db is the MySQL database connection.
	db *sql.DB

	// tableName is the name of the table storing snapshots.
	tableName string
}

// Config contains configuration for creating a MySQL archive.
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

	// TableName is the name of the table to use. Defaults to "memory_snapshots".
	TableName string
}

// NewClient creates a new MySQL archive client.
func NewClient(cfg *Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLArchive: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewMySQLArchive: %w", err)
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
			tenant_id VARCHAR(64) NOT NULL,
			taken_at DATETIME NOT NULL,
			entry_count INT NOT NULL,
			payload LONGTEXT NOT NULL,
			INDEX idx_tenant (tenant_id, taken_at)
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
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
