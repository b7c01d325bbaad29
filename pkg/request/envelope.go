package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Result is the uniform envelope every request resolves to.
//
// Request-level failures never surface as Go errors from the executor;
// callers check Success before trusting Data.
type Result struct {
	// Success indicates whether the request succeeded.
	Success bool `json:"success"`

	// Data is the raw JSON payload (nil on failure).
	Data json.RawMessage `json:"data,omitempty"`

	// Error is the error description when Success is false.
	Error string `json:"error,omitempty"`

	// Message is an optional human-readable server message.
	Message string `json:"message,omitempty"`

	// Status is the HTTP status code of the final attempt (0 when the
	// request never reached the server).
	Status int `json:"-"`
}

// Decode unmarshals the payload into v.
func (r *Result) Decode(v interface{}) error {
	if !r.Success {
		if r.Error != "" {
			return fmt.Errorf("request failed: %s", r.Error)
		}
		return fmt.Errorf("request failed with status %d", r.Status)
	}
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// envelopeProbe detects whether a payload is already envelope-shaped.
// A payload counts as an envelope only when it carries a boolean "success".
type envelopeProbe struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// normalize converts one HTTP response body into the uniform envelope.
// This is the single place response shapes are interpreted; nothing else
// in the SDK guesses at payload structure.
func normalize(body []byte, contentType string, status int) *Result {
	ok := status >= 200 && status < 300
	trimmed := bytes.TrimSpace(body)

	if len(trimmed) == 0 {
		return &Result{Success: ok, Status: status}
	}

	if !isJSONContent(contentType) {
		// Text bodies are carried through as a JSON string.
		quoted, _ := json.Marshal(string(body))
		return &Result{Success: ok, Data: quoted, Status: status}
	}

	var probe envelopeProbe
	if err := json.Unmarshal(trimmed, &probe); err == nil && probe.Success != nil {
		// Already enveloped: pass through unchanged.
		return &Result{
			Success: *probe.Success,
			Data:    probe.Data,
			Error:   probe.Error,
			Message: probe.Message,
			Status:  status,
		}
	}

	if ok {
		return &Result{Success: true, Data: json.RawMessage(trimmed), Status: status}
	}

	return &Result{
		Success: false,
		Error:   serverErrorMessage(trimmed, status),
		Status:  status,
	}
}

// serverErrorMessage extracts the server-provided error text from a failed
// response body, falling back to a generic message.
func serverErrorMessage(body []byte, status int) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	if status >= 500 {
		return "server error, please try again later"
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// isJSONContent reports whether a Content-Type header indicates JSON.
func isJSONContent(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}
