package storage

import (
	"github.com/pkg/errors"

	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
)

// ErrNotFound is returned when a requested task does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence operations for Catalyst.
type Store interface {
	// Transaction control
	Begin() (Store, error)
	Commit() error
	Rollback() error
	Close() error

	// Task operations
	SaveTask(t models.Task) error
	GetTask(id string) (models.Task, error)
	ListTasks() ([]models.Task, error)
	ListTasksByProject(projectID string) ([]models.Task, error)
	UpdateTaskStatus(id string, status models.TaskStatus, currentStage int) error
	UpdateTaskState(id string, state models.PipelineState) error

	// Agent log operations (append-only)
	AppendLog(e models.AgentLogEvent) error
	ListLogs(taskID string) ([]models.AgentLogEvent, error)
}
