// Package assistant provides the AI helper behind the dashboard's
// recommendation panel: it grounds a question in compressed farm memory,
// asks an OpenAI-compatible model, and tracks the answer for evaluation.
package assistant

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agrovista/farmsight-go/pkg/compress"
	"github.com/agrovista/farmsight-go/pkg/evaluation"
	"github.com/agrovista/farmsight-go/pkg/memory"
)

// defaultContextEntries caps how many memory entries ground one question.
const defaultContextEntries = 20

// Config contains configuration for creating an Assistant.
type Config struct {
	// APIKey is the API key for the model provider (required).
	APIKey string

	// Model is the model name to use. Defaults to "gpt-4o-mini".
	Model string

	// BaseURL overrides the API base URL, which makes any
	// OpenAI-compatible endpoint usable.
	BaseURL string
}

// Recommendation is one assistant answer, linked to the memory entry and
// evaluation record it produced.
type Recommendation struct {
	// EntryID is the memory entry storing the answer.
	EntryID string `json:"entry_id"`

	// EvaluationID is the evaluation record tracking the answer.
	EvaluationID string `json:"evaluation_id"`

	// Text is the answer itself.
	Text string `json:"text"`

	// Context describes the compression of the grounding context.
	Context *compress.Result `json:"context,omitempty"`
}

// Assistant answers grower questions from compressed farm memory.
type Assistant struct {
	client     *openai.Client
	model      string
	store      *memory.Store
	compressor *compress.Compressor
	evals      *evaluation.Tracker
}

// NewAssistant creates a new assistant.
//
// Parameters:
//   - cfg: Model provider configuration
//   - store: The farm memory store used for grounding context
//   - compressor: The context compressor
//   - evals: The evaluation tracker answers are registered with
//
// Returns an error if the configuration is invalid.
func NewAssistant(cfg *Config, store *memory.Store, compressor *compress.Compressor, evals *evaluation.Tracker) (*Assistant, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("assistant: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Assistant{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		store:      store,
		compressor: compressor,
		evals:      evals,
	}, nil
}

// RecommendOption configures a Recommend call.
type RecommendOption func(*recommendOptions)

type recommendOptions struct {
	fieldID    string
	maxEntries int
}

// WithField grounds the question in entries for one field only.
func WithField(fieldID string) RecommendOption {
	return func(opts *recommendOptions) {
		opts.fieldID = fieldID
	}
}

// WithMaxContextEntries caps how many memory entries are included.
func WithMaxContextEntries(n int) RecommendOption {
	return func(opts *recommendOptions) {
		opts.maxEntries = n
	}
}

// Recommend answers one question.
//
// The flow: query recent memory entries, compress them at the high level,
// build the prompt, call the model, store the answer as a recommendation
// memory entry, and open an evaluation record for it.
func (a *Assistant) Recommend(ctx context.Context, question string, opts ...RecommendOption) (*Recommendation, error) {
	options := &recommendOptions{maxEntries: defaultContextEntries}
	for _, opt := range opts {
		opt(options)
	}

	queryOpts := []memory.QueryOption{memory.WithLimit(options.maxEntries)}
	if options.fieldID != "" {
		queryOpts = append(queryOpts, memory.WithFieldIDForQuery(options.fieldID))
	}
	entries := a.store.QueryEntries(queryOpts...)

	contextDoc := buildContextDocument(entries)
	compressed, err := a.compressor.Compress(contextDoc, compress.LevelHigh)
	if err != nil {
		return nil, fmt.Errorf("assistant: compress context: %w", err)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(question, compressed.Compressed)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("assistant: no choices returned from model")
	}
	answer := resp.Choices[0].Message.Content

	addOpts := []memory.AddOption{memory.WithTags("assistant")}
	if options.fieldID != "" {
		addOpts = append(addOpts, memory.WithFieldID(options.fieldID))
	}
	entry := a.store.AddEntry(memory.TypeRecommendation, recommendationTitle(question), answer, addOpts...)
	record := a.evals.Create(entry.ID)

	return &Recommendation{
		EntryID:      entry.ID,
		EvaluationID: record.ID,
		Text:         answer,
		Context:      compressed,
	}, nil
}
