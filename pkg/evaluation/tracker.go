// Package evaluation tracks how assistant recommendations performed:
// each recommendation gets a record that moves through a small lifecycle
// as users apply it and score the outcome.
package evaluation

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the lifecycle state of an evaluation record.
type Status string

const (
	// StatusPending means the recommendation has not been acted on.
	StatusPending Status = "pending"

	// StatusInProgress means the recommendation was applied but not yet
	// re-evaluated.
	StatusInProgress Status = "in_progress"

	// StatusCompleted means scores have been submitted.
	StatusCompleted Status = "completed"

	// StatusFailed means the recommendation could not be evaluated.
	StatusFailed Status = "failed"
)

// Feedback is the user's qualitative verdict on a recommendation.
type Feedback string

const (
	FeedbackHelpful          Feedback = "helpful"
	FeedbackPartiallyHelpful Feedback = "partially_helpful"
	FeedbackNotHelpful       Feedback = "not_helpful"
	FeedbackHarmful          Feedback = "harmful"
)

// Scores holds the quantitative evaluation of a recommendation.
// Every score is in [0, 1].
type Scores struct {
	// Accuracy is how factually correct the recommendation was.
	Accuracy float64 `json:"accuracy"`

	// Timeliness is whether it arrived in time to act on.
	Timeliness float64 `json:"timeliness"`

	// Impact is how much acting on it improved the outcome.
	Impact float64 `json:"impact"`

	// Relevance is how well it matched the situation.
	Relevance float64 `json:"relevance"`

	// Overall is the aggregate score.
	Overall float64 `json:"overall"`
}

// Record is one recommendation's evaluation lifecycle.
type Record struct {
	// ID is the unique identifier of the record.
	ID string `json:"id"`

	// RecommendationID links back to the recommendation being evaluated.
	RecommendationID string `json:"recommendation_id"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// Feedback is the qualitative verdict (empty until submitted).
	Feedback Feedback `json:"feedback,omitempty"`

	// Scores are the quantitative scores (nil until submitted).
	Scores *Scores `json:"scores,omitempty"`

	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the record was last changed.
	UpdatedAt time.Time `json:"updated_at"`

	// AppliedAt is when the recommendation was applied (nil if never).
	AppliedAt *time.Time `json:"applied_at,omitempty"`

	// CompletedAt is when scores were submitted (nil until completed).
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Statistics summarizes the tracked records.
type Statistics struct {
	// TotalRecords is the number of records.
	TotalRecords int `json:"total_records"`

	// CountsByStatus maps status to count.
	CountsByStatus map[Status]int `json:"counts_by_status"`

	// MeanOverallScore is the mean Overall score across completed records
	// (0 when none are completed).
	MeanOverallScore float64 `json:"mean_overall_score"`
}

// Tracker holds evaluation records, insertion-ordered, newest first.
//
// The Tracker is safe for concurrent use.
type Tracker struct {
	// mu protects records.
	mu sync.RWMutex

	// records is the ordered collection, most recent first.
	records []*Record

	// node generates unique record IDs.
	node *snowflake.Node
}

// NewTracker creates a new evaluation tracker.
func NewTracker() (*Tracker, error) {
	node, err := snowflake.NewNode(2)
	if err != nil {
		return nil, err
	}
	return &Tracker{node: node}, nil
}

// Create registers a new pending record for a recommendation.
func (t *Tracker) Create(recommendationID string) *Record {
	now := time.Now()
	record := &Record{
		ID:               t.node.Generate().String(),
		RecommendationID: recommendationID,
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append([]*Record{record}, t.records...)
	return record
}

// SubmitFeedback attaches feedback and scores to a record. When scores are
// present the record transitions to completed.
//
// Returns the updated record, or nil if no record has that ID.
func (t *Tracker) SubmitFeedback(id string, feedback Feedback, scores *Scores) *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	record := t.findLocked(id)
	if record == nil {
		return nil
	}

	record.Feedback = feedback
	record.UpdatedAt = time.Now()
	if scores != nil {
		record.Scores = scores
		record.Status = StatusCompleted
		completedAt := record.UpdatedAt
		record.CompletedAt = &completedAt
	}
	return record
}

// MarkApplied stamps a record as applied and moves it to in_progress.
//
// Note that this also moves an already completed record back to
// in_progress: an applied recommendation is treated as awaiting
// re-evaluation, even when it was scored before. Product has been asked
// whether the downgrade is intended; the observed behavior is kept as is.
func (t *Tracker) MarkApplied(id string) *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	record := t.findLocked(id)
	if record == nil {
		return nil
	}
	if record.Status != StatusPending && record.Status != StatusCompleted {
		return record
	}

	now := time.Now()
	record.Status = StatusInProgress
	record.AppliedAt = &now
	record.UpdatedAt = now
	return record
}

// MarkFailed moves a record to failed.
//
// Returns the updated record, or nil if no record has that ID.
func (t *Tracker) MarkFailed(id string) *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	record := t.findLocked(id)
	if record == nil {
		return nil
	}
	record.Status = StatusFailed
	record.UpdatedAt = time.Now()
	return record
}

// Get returns the record with the given ID, or nil.
func (t *Tracker) Get(id string) *Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.findLocked(id)
}

// List returns records, newest first, optionally filtered by status
// ("" matches all).
func (t *Tracker) List(status Status) []*Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var results []*Record
	for _, record := range t.records {
		if status != "" && record.Status != status {
			continue
		}
		results = append(results, record)
	}
	return results
}

// GetStatistics summarizes the tracked records.
func (t *Tracker) GetStatistics() *Statistics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := &Statistics{
		TotalRecords:   len(t.records),
		CountsByStatus: make(map[Status]int),
	}

	var overallSum float64
	var completed int
	for _, record := range t.records {
		stats.CountsByStatus[record.Status]++
		if record.Status == StatusCompleted && record.Scores != nil {
			overallSum += record.Scores.Overall
			completed++
		}
	}
	if completed > 0 {
		stats.MeanOverallScore = overallSum / float64(completed)
	}
	return stats
}

// findLocked returns the record with the given ID. Caller must hold mu.
func (t *Tracker) findLocked(id string) *Record {
	for _, record := range t.records {
		if record.ID == id {
			return record
		}
	}
	return nil
}
