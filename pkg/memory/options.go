package memory

import "time"

// AddOption is a function type for configuring AddEntry operations.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type AddOption func(*AddOptions)

// AddOptions contains configuration options for AddEntry operations.
type AddOptions struct {
	// FieldID is the field the entry relates to.
	FieldID string

	// TenantID is the farm organization that owns the entry.
	TenantID string

	// Confidence is how certain the source was (0.0-1.0). Defaults to 1.0.
	Confidence float64

	// Tags are free-form labels for filtering.
	Tags []string
}

// WithFieldID sets the field ID for AddEntry operations.
//
// Example:
//
//	entry := store.AddEntry(memory.TypeObservation, "Low moisture",
//	    "Field 3 below 20%", memory.WithFieldID("f3"))
func WithFieldID(fieldID string) AddOption {
	return func(opts *AddOptions) {
		opts.FieldID = fieldID
	}
}

// WithTenantID sets the tenant ID for AddEntry operations.
func WithTenantID(tenantID string) AddOption {
	return func(opts *AddOptions) {
		opts.TenantID = tenantID
	}
}

// WithConfidence sets the confidence for AddEntry operations.
// Values are clamped to [0, 1].
func WithConfidence(confidence float64) AddOption {
	return func(opts *AddOptions) {
		opts.Confidence = confidence
	}
}

// WithTags sets the tags for AddEntry operations.
func WithTags(tags ...string) AddOption {
	return func(opts *AddOptions) {
		opts.Tags = tags
	}
}

// applyAddOptions applies AddOptions with defaults.
func applyAddOptions(opts []AddOption) *AddOptions {
	options := &AddOptions{Confidence: 1.0}
	for _, opt := range opts {
		opt(options)
	}
	if options.Confidence < 0 {
		options.Confidence = 0
	}
	if options.Confidence > 1 {
		options.Confidence = 1
	}
	return options
}

// QueryOption is a function type for configuring QueryEntries and
// SearchEntries operations.
type QueryOption func(*QueryOptions)

// QueryOptions contains the conjunctive filter set for queries.
// All set predicates must match (AND semantics).
type QueryOptions struct {
	// TenantID filters by owning tenant.
	TenantID string

	// FieldID filters by owning field.
	FieldID string

	// Type filters by entry type.
	Type EntryType

	// Tag filters by tag membership.
	Tag string

	// Since keeps entries with Timestamp >= Since.
	Since *time.Time

	// Until keeps entries with Timestamp <= Until.
	Until *time.Time

	// Limit caps the number of results (0 = unlimited).
	Limit int
}

// WithTenantIDForQuery filters query results by tenant.
func WithTenantIDForQuery(tenantID string) QueryOption {
	return func(opts *QueryOptions) {
		opts.TenantID = tenantID
	}
}

// WithFieldIDForQuery filters query results by field.
//
// Example:
//
//	entries := store.QueryEntries(memory.WithFieldIDForQuery("f3"))
func WithFieldIDForQuery(fieldID string) QueryOption {
	return func(opts *QueryOptions) {
		opts.FieldID = fieldID
	}
}

// WithTypeForQuery filters query results by entry type.
func WithTypeForQuery(entryType EntryType) QueryOption {
	return func(opts *QueryOptions) {
		opts.Type = entryType
	}
}

// WithTagForQuery filters query results by tag membership.
func WithTagForQuery(tag string) QueryOption {
	return func(opts *QueryOptions) {
		opts.Tag = tag
	}
}

// WithSince keeps entries created at or after t.
func WithSince(t time.Time) QueryOption {
	return func(opts *QueryOptions) {
		opts.Since = &t
	}
}

// WithUntil keeps entries created at or before t.
func WithUntil(t time.Time) QueryOption {
	return func(opts *QueryOptions) {
		opts.Until = &t
	}
}

// WithLimit caps the number of query results.
func WithLimit(limit int) QueryOption {
	return func(opts *QueryOptions) {
		opts.Limit = limit
	}
}

// applyQueryOptions applies QueryOptions with defaults.
func applyQueryOptions(opts []QueryOption) *QueryOptions {
	options := &QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
