package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type TaskStatus string

const (
	QueuedTaskStatus    TaskStatus = "QUEUED"
	PlanningTaskStatus  TaskStatus = "PLANNING"
	BuildingTaskStatus  TaskStatus = "BUILDING"
	TestingTaskStatus   TaskStatus = "TESTING"
	ReviewingTaskStatus TaskStatus = "REVIEWING"
	DeployingTaskStatus TaskStatus = "DEPLOYING"
	SucceededTaskStatus TaskStatus = "SUCCEEDED"
	FailedTaskStatus    TaskStatus = "FAILED"
	CancelledTaskStatus TaskStatus = "CANCELLED"
)

// Terminal reports whether a task in this status can never transition again.
func (s TaskStatus) Terminal() bool {
	return s == SucceededTaskStatus || s == FailedTaskStatus || s == CancelledTaskStatus
}

// PipelineState carries the artifacts produced by each stage of a run.
// It is owned exclusively by the orchestrator while the run is active and
// persisted as a single JSONB column.
type PipelineState struct {
	Plan        string `json:"plan,omitempty"`         // Planner output (plan JSON)
	Code        string `json:"code,omitempty"`         // Coder output
	TestResults string `json:"test_results,omitempty"` // Tester output
	Review      string `json:"review,omitempty"`       // Reviewer verdict
	Deployment  string `json:"deployment,omitempty"`   // Deployer output

	// Failure record, populated only when a stage errors out.
	FailedStage string `json:"failed_stage,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Value implements driver.Valuer so PipelineState round-trips through JSONB.
func (s PipelineState) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for reading the JSONB column back.
func (s *PipelineState) Scan(src interface{}) error {
	if src == nil {
		*s = PipelineState{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan pipeline state from %T", src)
	}
}

// Task represents one pipeline run request
type Task struct {
	ID           string        `json:"id" db:"id"`                       // Unique identifier (UUID)
	ProjectID    string        `json:"project_id" db:"project_id"`       // Owning project (reference, not owned)
	Prompt       string        `json:"prompt" db:"prompt"`               // The build request, immutable
	Status       TaskStatus    `json:"status" db:"status"`               // Current pipeline status
	CurrentStage int           `json:"current_stage" db:"current_stage"` // Index into the fixed stage sequence
	State        PipelineState `json:"pipeline_state" db:"pipeline_state"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}
