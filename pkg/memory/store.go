package memory

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// defaultMaxEntries bounds the store when no capacity is configured.
const defaultMaxEntries = 1000

// Config contains configuration for creating a Store.
type Config struct {
	// MaxEntries is the store capacity. Once exceeded, the oldest-inserted
	// entries are evicted. Defaults to 1000.
	MaxEntries int
}

// Store is a capacity-bounded, insertion-ordered farm memory store.
//
// Entries are kept most-recent-first. When an insert pushes the store past
// its capacity, the oldest-inserted entries are silently dropped (FIFO
// eviction, most-recent-N retained). All state is in-process; nothing
// survives a restart unless exported or archived.
//
// The Store is safe for concurrent use.
//
// Example:
//
//	store, _ := memory.NewStore(&memory.Config{MaxEntries: 500})
//	entry := store.AddEntry(memory.TypeObservation, "Low moisture",
//	    "Field 3 below 20%",
//	    memory.WithFieldID("f3"),
//	    memory.WithConfidence(0.9),
//	)
//	matches := store.QueryEntries(memory.WithFieldIDForQuery("f3"))
type Store struct {
	// mu protects entries.
	mu sync.RWMutex

	// entries is the ordered collection, most recent first.
	entries []*Entry

	// maxEntries is the capacity bound.
	maxEntries int

	// node generates unique entry IDs.
	node *snowflake.Node
}

// NewStore creates a new bounded memory store.
func NewStore(cfg *Config) (*Store, error) {
	maxEntries := defaultMaxEntries
	if cfg != nil && cfg.MaxEntries > 0 {
		maxEntries = cfg.MaxEntries
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	return &Store{
		maxEntries: maxEntries,
		node:       node,
	}, nil
}

// AddEntry creates a new entry and prepends it to the store.
//
// If the insert exceeds the store capacity, the oldest-inserted entries
// are dropped so that only the most recent MaxEntries remain.
//
// Parameters:
//   - entryType: Classification of the entry
//   - title: Short summary
//   - content: Entry body
//   - opts: Optional parameters (FieldID, TenantID, Confidence, Tags)
//
// Returns the created entry.
func (s *Store) AddEntry(entryType EntryType, title, content string, opts ...AddOption) *Entry {
	options := applyAddOptions(opts)

	entry := &Entry{
		ID:         s.node.Generate().String(),
		Type:       entryType,
		Timestamp:  time.Now(),
		FieldID:    options.FieldID,
		TenantID:   options.TenantID,
		Title:      title,
		Content:    content,
		Confidence: options.Confidence,
		Tags:       options.Tags,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]*Entry{entry}, s.entries...)
	if len(s.entries) > s.maxEntries {
		s.entries = s.entries[:s.maxEntries]
	}
	return entry
}

// UpdateEntry merges a patch into the entry with the given ID.
// The entry ID itself is never overwritten.
//
// Returns the updated entry, or nil if no entry has that ID.
func (s *Store) UpdateEntry(id string, patch *EntryPatch) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.entries {
		if entry.ID != id {
			continue
		}
		if patch.Type != nil {
			entry.Type = *patch.Type
		}
		if patch.Title != nil {
			entry.Title = *patch.Title
		}
		if patch.Content != nil {
			entry.Content = *patch.Content
		}
		if patch.FieldID != nil {
			entry.FieldID = *patch.FieldID
		}
		if patch.Confidence != nil {
			entry.Confidence = *patch.Confidence
		}
		if patch.Tags != nil {
			entry.Tags = *patch.Tags
		}
		return entry
	}
	return nil
}

// DeleteEntry removes the entry with the given ID.
// Returns true if an entry was removed.
func (s *Store) DeleteEntry(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.entries {
		if entry.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// QueryEntries returns entries matching every set filter (AND semantics),
// most recent first, optionally capped by WithLimit.
func (s *Store) QueryEntries(opts ...QueryOption) []*Entry {
	options := applyQueryOptions(opts)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Entry
	for _, entry := range s.entries {
		if !matches(entry, options) {
			continue
		}
		results = append(results, entry)
		if options.Limit > 0 && len(results) == options.Limit {
			break
		}
	}
	return results
}

// SearchEntries returns entries whose title, content, or tags contain the
// given text (case-insensitive substring), after applying the same filter
// set as QueryEntries.
func (s *Store) SearchEntries(text string, opts ...QueryOption) []*Entry {
	options := applyQueryOptions(opts)
	needle := strings.ToLower(text)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Entry
	for _, entry := range s.entries {
		if !matches(entry, options) {
			continue
		}
		if !textMatches(entry, needle) {
			continue
		}
		results = append(results, entry)
		if options.Limit > 0 && len(results) == options.Limit {
			break
		}
	}
	return results
}

// GetStatistics summarizes the current store contents.
func (s *Store) GetStatistics() *Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Statistics{
		TotalEntries: len(s.entries),
		CountsByType: make(map[EntryType]int),
	}
	if len(s.entries) == 0 {
		return stats
	}

	var confidenceSum float64
	oldest := s.entries[0].Timestamp
	newest := s.entries[0].Timestamp
	for _, entry := range s.entries {
		stats.CountsByType[entry.Type]++
		confidenceSum += entry.Confidence
		if entry.Timestamp.Before(oldest) {
			oldest = entry.Timestamp
		}
		if entry.Timestamp.After(newest) {
			newest = entry.Timestamp
		}
	}
	stats.AverageConfidence = confidenceSum / float64(len(s.entries))
	stats.OldestTimestamp = oldest
	stats.NewestTimestamp = newest

	if data, err := json.Marshal(s.entries); err == nil {
		stats.ApproximateBytes = len(data)
	}
	return stats
}

// Clear removes entries selected by the policy and returns how many were
// removed. Policy predicates are evaluated in order: All, OlderThan, Type,
// FieldID; the first one set decides which entries go.
func (s *Store) Clear(policy ClearPolicy) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if policy.All {
		removed := len(s.entries)
		s.entries = nil
		return removed
	}

	keep := func(entry *Entry) bool { return true }
	switch {
	case policy.OlderThan != nil:
		keep = func(entry *Entry) bool { return !entry.Timestamp.Before(*policy.OlderThan) }
	case policy.Type != "":
		keep = func(entry *Entry) bool { return entry.Type != policy.Type }
	case policy.FieldID != "":
		keep = func(entry *Entry) bool { return entry.FieldID != policy.FieldID }
	default:
		return 0
	}

	kept := s.entries[:0]
	for _, entry := range s.entries {
		if keep(entry) {
			kept = append(kept, entry)
		}
	}
	removed := len(s.entries) - len(kept)
	s.entries = kept
	return removed
}

// Export serializes the full store contents to JSON.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entries == nil {
		return json.Marshal([]*Entry{})
	}
	return json.Marshal(s.entries)
}

// Import replaces the store contents from a JSON export.
//
// The payload must be a top-level JSON array of entry objects; anything
// else, including null elements, is rejected and the existing contents are
// left untouched. Returns true on success.
func (s *Store) Import(data []byte) bool {
	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return false
	}
	for _, entry := range entries {
		if entry == nil {
			return false
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(entries) > s.maxEntries {
		entries = entries[:s.maxEntries]
	}
	s.entries = entries
	return true
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// matches applies the conjunctive filter set to one entry.
func matches(entry *Entry, options *QueryOptions) bool {
	if options.TenantID != "" && entry.TenantID != options.TenantID {
		return false
	}
	if options.FieldID != "" && entry.FieldID != options.FieldID {
		return false
	}
	if options.Type != "" && entry.Type != options.Type {
		return false
	}
	if options.Tag != "" && !hasTag(entry, options.Tag) {
		return false
	}
	if options.Since != nil && entry.Timestamp.Before(*options.Since) {
		return false
	}
	if options.Until != nil && entry.Timestamp.After(*options.Until) {
		return false
	}
	return true
}

// hasTag reports whether the entry carries the given tag.
func hasTag(entry *Entry, tag string) bool {
	for _, t := range entry.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// textMatches reports whether the lowercased needle appears in the entry
// title, content, or any tag.
func textMatches(entry *Entry, needle string) bool {
	if strings.Contains(strings.ToLower(entry.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(entry.Content), needle) {
		return true
	}
	for _, tag := range entry.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
