// Package memory provides the bounded in-memory farm knowledge store:
// a capacity-limited, insertion-ordered collection of observations and
// recommendations with query, search, retention, and export support.
package memory

import "time"

// EntryType classifies a memory entry.
type EntryType string

const (
	// TypeObservation records something noticed in the field.
	TypeObservation EntryType = "observation"

	// TypeRecommendation records advice produced by the assistant.
	TypeRecommendation EntryType = "recommendation"

	// TypeAction records an action taken.
	TypeAction EntryType = "action"

	// TypeOutcome records the result of an action.
	TypeOutcome EntryType = "outcome"

	// TypeNote is a free-form note.
	TypeNote EntryType = "note"
)

// Entry is a single piece of farm memory.
type Entry struct {
	// ID is the unique identifier of the entry. Never overwritten.
	ID string `json:"id"`

	// Type classifies the entry.
	Type EntryType `json:"type"`

	// Timestamp is when the entry was created.
	Timestamp time.Time `json:"timestamp"`

	// FieldID is the field the entry relates to (optional).
	FieldID string `json:"field_id,omitempty"`

	// TenantID is the farm organization that owns the entry (optional).
	TenantID string `json:"tenant_id,omitempty"`

	// Title is a short summary.
	Title string `json:"title"`

	// Content is the entry body.
	Content string `json:"content"`

	// Confidence is how certain the source was (0.0-1.0).
	Confidence float64 `json:"confidence"`

	// Tags are free-form labels for filtering.
	Tags []string `json:"tags,omitempty"`
}

// EntryPatch is a partial update for an entry. Nil fields are left
// unchanged; the entry ID can never be patched.
type EntryPatch struct {
	// Type replaces the entry type when non-nil.
	Type *EntryType

	// Title replaces the title when non-nil.
	Title *string

	// Content replaces the content when non-nil.
	Content *string

	// FieldID replaces the field ID when non-nil.
	FieldID *string

	// Confidence replaces the confidence when non-nil.
	Confidence *float64

	// Tags replaces the tag list when non-nil.
	Tags *[]string
}

// ClearPolicy selects which entries Clear removes. Predicates are
// evaluated in order: All, OlderThan, Type, FieldID; the first one set
// decides.
type ClearPolicy struct {
	// All removes every entry.
	All bool

	// OlderThan removes entries whose timestamp precedes it.
	OlderThan *time.Time

	// Type removes entries of the given type.
	Type EntryType

	// FieldID removes entries owned by the given field.
	FieldID string
}

// Statistics summarizes the current store contents.
type Statistics struct {
	// TotalEntries is the number of stored entries.
	TotalEntries int `json:"total_entries"`

	// CountsByType maps entry type to count.
	CountsByType map[EntryType]int `json:"counts_by_type"`

	// AverageConfidence is the mean confidence over all entries
	// (0 when the store is empty).
	AverageConfidence float64 `json:"average_confidence"`

	// OldestTimestamp and NewestTimestamp bound the stored entries
	// (zero when the store is empty).
	OldestTimestamp time.Time `json:"oldest_timestamp"`
	NewestTimestamp time.Time `json:"newest_timestamp"`

	// ApproximateBytes is the serialized size of the store contents.
	ApproximateBytes int `json:"approximate_bytes"`
}
