// Package events contains the websocket event contract between the dashboard server and
// its browser clients.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Pipeline run messages
	MessageTypeOperationProgress MessageType = "operation:progress"
	MessageTypeOperationComplete MessageType = "operation:complete"

	// Dataset messages
	MessageTypeDatasetReloaded MessageType = "dataset:reloaded"

	// Connection messages
	MessageTypeConnection MessageType = "connection"
	MessageTypeError      MessageType = "error"
)

// WebSocketMessage is the envelope of every event sent to clients
type WebSocketMessage struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// StepSnapshot represents the state of a single pipeline step
type StepSnapshot struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Status   string                 `json:"status"`
	Progress int                    `json:"progress"`
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// OperationSnapshot is sent on every pipeline progress change
type OperationSnapshot struct {
	RunID       string         `json:"run_id"`
	Status      string         `json:"status"`
	Progress    int            `json:"progress"`
	CurrentStep string         `json:"current_step"`
	Steps       []StepSnapshot `json:"steps"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// DatasetReloaded tells clients to re-request their figures
type DatasetReloaded struct {
	Rows      int       `json:"rows"`
	Countries []string  `json:"countries"`
	MinYear   int       `json:"min_year"`
	MaxYear   int       `json:"max_year"`
	LoadedAt  time.Time `json:"loaded_at"`
	Source    string    `json:"source"`
}

// NewMessage builds a message stamped with the current time
func NewMessage(msgType MessageType, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now(),
	}
}
