package storage

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/storage"
)

type DBInterface interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	QueryRowx(query string, args ...interface{}) *sqlx.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

type PostgresStore struct {
	db DBInterface
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Begin() (storage.Store, error) {
	if db, ok := s.db.(*sqlx.DB); ok {
		tx, err := db.Beginx()
		if err != nil {
			return nil, err
		}
		return &PostgresStore{db: tx}, nil
	}
	return nil, fmt.Errorf("cannot begin transaction on unknown type")
}

func (s *PostgresStore) Commit() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return fmt.Errorf("cannot commit: not a transaction")
}

func (s *PostgresStore) Rollback() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return fmt.Errorf("cannot rollback: not a transaction")
}

func (s *PostgresStore) Close() error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil // No-op for *sqlx.Tx
}

// SaveTask creates a new task in status QUEUED with an empty pipeline state
func (s *PostgresStore) SaveTask(t models.Task) error {
	_, err := s.db.Exec(
		"INSERT INTO tasks (id, project_id, prompt, status, current_stage, pipeline_state, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		t.ID, t.ProjectID, t.Prompt, t.Status, t.CurrentStage, t.State, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID
func (s *PostgresStore) GetTask(id string) (models.Task, error) {
	var t models.Task
	err := s.db.Get(&t, "SELECT * FROM tasks WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Task{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

func (s *PostgresStore) ListTasks() ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.db.Select(&tasks, "SELECT * FROM tasks ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *PostgresStore) ListTasksByProject(projectID string) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.db.Select(&tasks, "SELECT * FROM tasks WHERE project_id = $1 ORDER BY created_at DESC", projectID)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateTaskStatus updates the status and stage index of a task
func (s *PostgresStore) UpdateTaskStatus(id string, status models.TaskStatus, currentStage int) error {
	_, err := s.db.Exec("UPDATE tasks SET status = $1, current_stage = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3", status, currentStage, id)
	return err
}

// UpdateTaskState replaces the pipeline state blob of a task
func (s *PostgresStore) UpdateTaskState(id string, state models.PipelineState) error {
	_, err := s.db.Exec("UPDATE tasks SET pipeline_state = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2", state, id)
	return err
}

// AppendLog persists one agent log event
func (s *PostgresStore) AppendLog(e models.AgentLogEvent) error {
	_, err := s.db.Exec(
		"INSERT INTO agent_logs (id, task_id, agent_name, message, timestamp) VALUES ($1, $2, $3, $4, $5)",
		e.ID, e.TaskID, e.AgentName, e.Message, e.Timestamp)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// ListLogs retrieves all log events for a task ordered by emission time
func (s *PostgresStore) ListLogs(taskID string) ([]models.AgentLogEvent, error) {
	logs := []models.AgentLogEvent{}
	err := s.db.Select(&logs, `SELECT * FROM agent_logs WHERE task_id = $1 ORDER BY "timestamp", id`, taskID)
	if err != nil {
		return nil, err
	}
	return logs, nil
}
