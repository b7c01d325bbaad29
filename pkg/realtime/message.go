// Package realtime maintains the live WebSocket channel to the backend:
// a single connection with automatic reconnect, inbound message
// validation, and subscriber fan-out.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidMessage indicates a malformed or unrecognized inbound message.
var ErrInvalidMessage = errors.New("invalid message")

// Message is one validated inbound realtime message.
type Message struct {
	// Type is one of the recognized Type* constants.
	Type string `json:"type"`

	// Payload is the opaque message payload.
	Payload json.RawMessage `json:"payload"`

	// Timestamp is when the backend emitted the message.
	Timestamp time.Time `json:"timestamp"`
}

// Recognized message types.
const (
	TypeKPIUpdate       = "kpi_update"
	TypeAlertNew        = "alert_new"
	TypeAlertUpdate     = "alert_update"
	TypeFieldUpdate     = "field_update"
	TypeNDVIUpdate      = "ndvi_update"
	TypeWeatherUpdate   = "weather_update"
	TypeSensorReading   = "sensor_reading"
	TypeTaskUpdate      = "task_update"
	TypeEquipmentUpdate = "equipment_update"
)

// knownTypes is the closed set of message types subscribers can receive.
var knownTypes = map[string]struct{}{
	TypeKPIUpdate:       {},
	TypeAlertNew:        {},
	TypeAlertUpdate:     {},
	TypeFieldUpdate:     {},
	TypeNDVIUpdate:      {},
	TypeWeatherUpdate:   {},
	TypeSensorReading:   {},
	TypeTaskUpdate:      {},
	TypeEquipmentUpdate: {},
}

// ParseMessage parses and validates one inbound frame.
//
// Messages that are not JSON, lack a type, or carry an unrecognized type
// are rejected with ErrInvalidMessage. Rejected messages never reach
// subscribers.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	}
	if _, ok := knownTypes[msg.Type]; !ok {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, msg.Type)
	}
	return &msg, nil
}
