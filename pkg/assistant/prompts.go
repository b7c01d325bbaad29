package assistant

import (
	"fmt"
	"strings"

	"github.com/agrovista/farmsight-go/pkg/memory"
)

// systemPrompt frames the model as an agronomy advisor working from
// compressed farm memory.
const systemPrompt = `You are an agronomy advisor for a farm-management dashboard.
You are given compressed farm memory: recent observations, actions, and outcomes.
Answer the grower's question with specific, actionable advice grounded in that memory.
If the memory does not support a confident answer, say so and state what data is missing.
Keep the answer under 200 words.`

// buildContextDocument assembles the memory entries that ground one
// recommendation request.
func buildContextDocument(entries []*memory.Entry) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		items = append(items, map[string]interface{}{
			"type":       string(entry.Type),
			"timestamp":  entry.Timestamp,
			"field_id":   entry.FieldID,
			"title":      entry.Title,
			"content":    entry.Content,
			"confidence": entry.Confidence,
			"tags":       entry.Tags,
		})
	}
	return map[string]interface{}{
		"entry_count": len(entries),
		"entries":     items,
	}
}

// buildUserPrompt combines the question and compressed context into the
// user message.
func buildUserPrompt(question, compressedContext string) string {
	var b strings.Builder
	b.WriteString("Farm memory (compressed JSON):\n")
	b.WriteString(compressedContext)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

// recommendationTitle derives a short memory-entry title from the question.
func recommendationTitle(question string) string {
	const maxLen = 60
	title := strings.TrimSpace(question)
	if len(title) > maxLen {
		title = title[:maxLen-3] + "..."
	}
	return fmt.Sprintf("Recommendation: %s", title)
}
