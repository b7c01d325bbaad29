package assistant_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovista/farmsight-go/pkg/assistant"
	"github.com/agrovista/farmsight-go/pkg/compress"
	"github.com/agrovista/farmsight-go/pkg/evaluation"
	"github.com/agrovista/farmsight-go/pkg/memory"
)

// newModelServer fakes an OpenAI-compatible chat completion endpoint and
// captures the last request body.
func newModelServer(t *testing.T, answer string, lastBody *atomic.Value) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		lastBody.Store(body.Messages[len(body.Messages)-1].Content)

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  body.Model,
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": answer,
					},
				},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)
	return server
}

func newAssistant(t *testing.T, baseURL string) (*assistant.Assistant, *memory.Store, *evaluation.Tracker) {
	t.Helper()
	store, err := memory.NewStore(&memory.Config{})
	require.NoError(t, err)
	evals, err := evaluation.NewTracker()
	require.NoError(t, err)

	a, err := assistant.NewAssistant(&assistant.Config{
		APIKey:  "test-key",
		BaseURL: baseURL + "/v1",
	}, store, compress.NewCompressor(), evals)
	require.NoError(t, err)
	return a, store, evals
}

func TestNewAssistant_RequiresAPIKey(t *testing.T) {
	store, err := memory.NewStore(&memory.Config{})
	require.NoError(t, err)
	evals, err := evaluation.NewTracker()
	require.NoError(t, err)

	_, err = assistant.NewAssistant(&assistant.Config{}, store, compress.NewCompressor(), evals)
	assert.ErrorContains(t, err, "api key")
}

func TestRecommend(t *testing.T) {
	var lastPrompt atomic.Value
	server := newModelServer(t, "Increase irrigation on field 3 by 15%.", &lastPrompt)
	a, store, evals := newAssistant(t, server.URL)

	store.AddEntry(memory.TypeObservation, "Low moisture", "Field 3 soil moisture below 20%",
		memory.WithFieldID("f3"))
	store.AddEntry(memory.TypeObservation, "Other field", "Field 7 looks fine",
		memory.WithFieldID("f7"))

	rec, err := a.Recommend(context.Background(), "Should I irrigate field 3?",
		assistant.WithField("f3"))
	require.NoError(t, err)
	assert.Equal(t, "Increase irrigation on field 3 by 15%.", rec.Text)

	// The grounding prompt carries the matching entry but not the other field's.
	prompt := lastPrompt.Load().(string)
	assert.Contains(t, prompt, "Should I irrigate field 3?")
	assert.Contains(t, prompt, "Low moisture")
	assert.NotContains(t, prompt, "Field 7")

	// Context compression stats are reported on the recommendation.
	require.NotNil(t, rec.Context)
	assert.Greater(t, rec.Context.OriginalSize, 0)

	// The answer lands in memory as a recommendation entry.
	require.NotEmpty(t, rec.EntryID)
	entries := store.QueryEntries(memory.WithTypeForQuery(memory.TypeRecommendation))
	require.Len(t, entries, 1)
	assert.Equal(t, rec.EntryID, entries[0].ID)
	assert.Equal(t, "Increase irrigation on field 3 by 15%.", entries[0].Content)
	assert.Equal(t, "f3", entries[0].FieldID)

	// An evaluation record is opened for the answer.
	record := evals.Get(rec.EvaluationID)
	require.NotNil(t, record)
	assert.Equal(t, rec.EntryID, record.RecommendationID)
	assert.Equal(t, evaluation.StatusPending, record.Status)
}

func TestRecommend_ModelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	a, _, _ := newAssistant(t, server.URL)
	_, err := a.Recommend(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assistant")
}
