package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovista/farmsight-go/pkg/memory/archive"
	sqliteArchive "github.com/agrovista/farmsight-go/pkg/memory/archive/sqlite"
)

func setupArchive(t *testing.T) *sqliteArchive.Client {
	t.Helper()
	client, err := sqliteArchive.NewClient(&sqliteArchive.Config{
		DBPath: filepath.Join(t.TempDir(), "archive.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testSnapshot(id int64, tenantID string) *archive.Snapshot {
	return &archive.Snapshot{
		ID:         id,
		TenantID:   tenantID,
		TakenAt:    time.Now().UTC().Truncate(time.Second),
		EntryCount: 2,
		Payload:    []byte(`[{"id":"1"},{"id":"2"}]`),
	}
}

func TestArchive_SaveAndLoad(t *testing.T) {
	client := setupArchive(t)
	ctx := context.Background()

	snapshot := testSnapshot(100, "tenant-a")
	require.NoError(t, client.Save(ctx, snapshot))

	loaded, err := client.Load(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ID, loaded.ID)
	assert.Equal(t, "tenant-a", loaded.TenantID)
	assert.Equal(t, 2, loaded.EntryCount)
	assert.JSONEq(t, string(snapshot.Payload), string(loaded.Payload))
}

func TestArchive_LoadMissing(t *testing.T) {
	client := setupArchive(t)
	_, err := client.Load(context.Background(), 404)
	assert.ErrorIs(t, err, archive.ErrSnapshotNotFound)
}

func TestArchive_List(t *testing.T) {
	client := setupArchive(t)
	ctx := context.Background()

	older := testSnapshot(1, "tenant-a")
	older.TakenAt = older.TakenAt.Add(-time.Hour)
	require.NoError(t, client.Save(ctx, older))
	require.NoError(t, client.Save(ctx, testSnapshot(2, "tenant-a")))
	require.NoError(t, client.Save(ctx, testSnapshot(3, "tenant-b")))

	snapshots, err := client.List(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	// Newest first, metadata only.
	assert.Equal(t, int64(2), snapshots[0].ID)
	assert.Equal(t, int64(1), snapshots[1].ID)
	assert.Empty(t, snapshots[0].Payload)

	empty, err := client.List(ctx, "tenant-c")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestArchive_Delete(t *testing.T) {
	client := setupArchive(t)
	ctx := context.Background()

	require.NoError(t, client.Save(ctx, testSnapshot(7, "tenant-a")))
	require.NoError(t, client.Delete(ctx, 7))

	_, err := client.Load(ctx, 7)
	assert.ErrorIs(t, err, archive.ErrSnapshotNotFound)

	// Deleting a missing snapshot is not an error.
	assert.NoError(t, client.Delete(ctx, 7))
}
