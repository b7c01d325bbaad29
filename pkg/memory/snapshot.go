package memory

import (
	"time"

	"github.com/agrovista/farmsight-go/pkg/memory/archive"
)

// Snapshot produces an archivable snapshot of the current store contents.
//
// The snapshot payload is the same JSON document Export produces, so a
// restored snapshot goes back through Import's validation.
func (s *Store) Snapshot(tenantID string) (*archive.Snapshot, error) {
	payload, err := s.Export()
	if err != nil {
		return nil, err
	}
	return &archive.Snapshot{
		ID:         s.node.Generate().Int64(),
		TenantID:   tenantID,
		TakenAt:    time.Now(),
		EntryCount: s.Len(),
		Payload:    payload,
	}, nil
}

// RestoreSnapshot replaces the store contents from an archived snapshot.
// Returns false (leaving the store untouched) when the payload is not a
// valid export.
func (s *Store) RestoreSnapshot(snapshot *archive.Snapshot) bool {
	return s.Import(snapshot.Payload)
}
