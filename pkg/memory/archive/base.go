// Package archive defines persistent snapshot storage for exported farm
// memory, with SQLite, PostgreSQL, and MySQL backends.
package archive

import (
	"context"
	"errors"
	"time"
)

// ErrSnapshotNotFound indicates that a requested snapshot does not exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is one archived export of the in-memory store.
type Snapshot struct {
	// ID is the unique identifier of the snapshot.
	ID int64 `json:"id"`

	// TenantID is the farm organization the snapshot belongs to.
	TenantID string `json:"tenant_id"`

	// TakenAt is when the snapshot was taken.
	TakenAt time.Time `json:"taken_at"`

	// EntryCount is the number of entries in the payload.
	EntryCount int `json:"entry_count"`

	// Payload is the JSON export produced by memory.Store.Export.
	Payload []byte `json:"payload"`
}

// Store is the interface all snapshot archive backends must implement.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists a snapshot.
	Save(ctx context.Context, snapshot *Snapshot) error

	// Load retrieves a snapshot by ID.
	// Returns ErrSnapshotNotFound if no snapshot has that ID.
	Load(ctx context.Context, id int64) (*Snapshot, error)

	// List returns snapshot metadata (payload omitted) for a tenant,
	// newest first.
	List(ctx context.Context, tenantID string) ([]*Snapshot, error)

	// Delete removes a snapshot by ID.
	Delete(ctx context.Context, id int64) error

	// Close closes the backend connection.
	Close() error
}
