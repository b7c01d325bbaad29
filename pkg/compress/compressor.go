// Package compress provides the AI-context compressor: a pure JSON
// transformation at three levels plus cumulative statistics tracking.
package compress

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Level selects how aggressively context is compressed.
type Level string

const (
	// LevelLow is a plain JSON encoding with no transformation.
	LevelLow Level = "low"

	// LevelMedium recursively strips null and empty-string fields from
	// objects and arrays before encoding.
	LevelMedium Level = "medium"

	// LevelHigh additionally trims string whitespace and applies a
	// run-length pass over the encoded text.
	LevelHigh Level = "high"
)

// Result describes one compression operation.
type Result struct {
	// Compressed is the compressed text.
	Compressed string `json:"compressed"`

	// OriginalSize is the UTF-8 byte length of the plain encoding.
	OriginalSize int `json:"original_size"`

	// CompressedSize is the UTF-8 byte length of the compressed text.
	CompressedSize int `json:"compressed_size"`

	// Ratio is OriginalSize / CompressedSize.
	Ratio float64 `json:"ratio"`

	// Level is the level the operation ran at.
	Level Level `json:"level"`
}

// Stats are the cumulative counters across operations.
type Stats struct {
	// Operations is the number of compress calls.
	Operations int `json:"operations"`

	// TotalOriginalBytes sums the original sizes.
	TotalOriginalBytes int `json:"total_original_bytes"`

	// TotalCompressedBytes sums the compressed sizes.
	TotalCompressedBytes int `json:"total_compressed_bytes"`

	// AverageRatio is the running mean of per-operation ratios.
	AverageRatio float64 `json:"average_ratio"`

	// LastRun is when the most recent operation completed.
	LastRun time.Time `json:"last_run"`
}

// Compressor compresses JSON-serializable values and accumulates
// statistics. The zero value is not usable; use NewCompressor.
//
// The Compressor is safe for concurrent use.
type Compressor struct {
	// mu protects stats.
	mu    sync.Mutex
	stats Stats
}

// NewCompressor creates a new compressor with zeroed statistics.
func NewCompressor() *Compressor {
	return &Compressor{}
}

// Compress encodes data at the given level and updates the cumulative
// statistics.
func (c *Compressor) Compress(data interface{}, level Level) (*Result, error) {
	plain, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	var compressed string
	switch level {
	case LevelMedium, LevelHigh:
		stripped, err := stripValue(plain, level == LevelHigh)
		if err != nil {
			return nil, fmt.Errorf("compress: %w", err)
		}
		if level == LevelHigh {
			compressed = runLengthEncode(stripped)
		} else {
			compressed = stripped
		}
	default:
		compressed = string(plain)
	}

	result := &Result{
		Compressed:     compressed,
		OriginalSize:   len(plain),
		CompressedSize: len(compressed),
		Level:          level,
	}
	if result.CompressedSize > 0 {
		result.Ratio = float64(result.OriginalSize) / float64(result.CompressedSize)
	}

	c.mu.Lock()
	c.stats.Operations++
	c.stats.TotalOriginalBytes += result.OriginalSize
	c.stats.TotalCompressedBytes += result.CompressedSize
	n := float64(c.stats.Operations)
	c.stats.AverageRatio = (c.stats.AverageRatio*(n-1) + result.Ratio) / n
	c.stats.LastRun = time.Now()
	c.mu.Unlock()

	return result, nil
}

// Decompress decodes text produced at the given level back into v. Only
// high-level output carries run-length tokens, so low and medium text is
// unmarshalled as-is and field values that happen to look like a token are
// never rewritten. Parse failures are returned as descriptive errors,
// never swallowed.
func (c *Compressor) Decompress(text string, level Level, v interface{}) error {
	if level == LevelHigh {
		text = runLengthDecode(text)
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("decompress: invalid payload: %w", err)
	}
	return nil
}

// GetStats returns a copy of the cumulative statistics.
func (c *Compressor) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// ResetStats zeroes the cumulative statistics.
func (c *Compressor) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = Stats{}
}

// stripValue re-encodes a JSON document with null and empty-string fields
// removed recursively. When trim is true, string values are
// whitespace-trimmed first.
func stripValue(doc []byte, trim bool) (string, error) {
	var value interface{}
	if err := json.Unmarshal(doc, &value); err != nil {
		return "", err
	}
	stripped, keep := strip(value, trim)
	if !keep {
		stripped = map[string]interface{}{}
	}
	out, err := json.Marshal(stripped)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// strip walks one decoded JSON value. The second return value reports
// whether the value survives (nulls and empty strings do not).
func strip(value interface{}, trim bool) (interface{}, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		if trim {
			v = strings.TrimSpace(v)
		}
		if v == "" {
			return nil, false
		}
		return v, true
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			if stripped, keep := strip(item, trim); keep {
				out[key] = stripped
			}
		}
		return out, true
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, item := range v {
			if stripped, keep := strip(item, trim); keep {
				out = append(out, stripped)
			}
		}
		return out, true
	default:
		return v, true
	}
}

// Run-length token format: a run of 3 or more identical characters is
// rewritten as "~<count>~<char>". Literal '~' is always emitted as a
// count-prefixed token so the decoder never misreads it.
//
// The pass runs over the encoded JSON text, not individual field values,
// so runs spanning structural characters (e.g. "]]]" ) are collapsed too.
func runLengthEncode(text string) string {
	runes := []rune(text)
	var b strings.Builder
	for i := 0; i < len(runes); {
		ch := runes[i]
		run := 1
		for i+run < len(runes) && runes[i+run] == ch {
			run++
		}
		if run >= 3 || ch == '~' {
			b.WriteString(fmt.Sprintf("~%d~%c", run, ch))
		} else {
			for j := 0; j < run; j++ {
				b.WriteRune(ch)
			}
		}
		i += run
	}
	return b.String()
}

// runLengthDecode expands "~<count>~<char>" tokens. A '~' that does not
// start a well-formed token is copied through literally, so text that was
// never run-length encoded survives decoding unchanged.
func runLengthDecode(text string) string {
	runes := []rune(text)
	var b strings.Builder
	for i := 0; i < len(runes); {
		if runes[i] != '~' {
			b.WriteRune(runes[i])
			i++
			continue
		}

		j := i + 1
		count := 0
		digits := 0
		for j < len(runes) && runes[j] >= '0' && runes[j] <= '9' {
			count = count*10 + int(runes[j]-'0')
			digits++
			j++
		}
		if digits == 0 || j >= len(runes) || runes[j] != '~' || j+1 >= len(runes) {
			// Not a token; copy the tilde through.
			b.WriteRune(runes[i])
			i++
			continue
		}
		ch := runes[j+1]
		for k := 0; k < count; k++ {
			b.WriteRune(ch)
		}
		i = j + 2
	}
	return b.String()
}
