package models

import "time"

// AgentLogEvent is one line emitted by a stage agent during a run.
// Events are append-only and immutable once created; their JSON shape is
// also the payload pushed to live subscribers.
type AgentLogEvent struct {
	ID        string    `json:"id" db:"id"`                 // Event ID (UUID)
	TaskID    string    `json:"task_id" db:"task_id"`       // Task being logged
	AgentName string    `json:"agent_name" db:"agent_name"` // Display name of the emitting agent
	Message   string    `json:"message" db:"message"`       // Human text, may embed a status glyph
	Timestamp time.Time `json:"timestamp" db:"timestamp"`   // Emission time; delivery order contract
}
