package storage

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
)

// mockStore implements Store with in-memory storage
type mockStore struct {
	mu        sync.Mutex
	tasks     []models.Task
	logs      []models.AgentLogEvent
	committed bool // Transaction state
}

func NewMockStore() Store {
	return &mockStore{}
}

func (m *mockStore) Begin() (Store, error) {
	return m, nil
}

func (m *mockStore) Commit() error {
	return nil
}

func (m *mockStore) Rollback() error {
	return nil
}

func (m *mockStore) Close() error {
	return nil
}

func (m *mockStore) SaveTask(t models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Check for duplicate task ID
	for _, existing := range m.tasks {
		if existing.ID == t.ID {
			return errors.New("task already exists")
		}
	}
	m.tasks = append(m.tasks, t)
	return nil
}

func (m *mockStore) GetTask(id string) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, ErrNotFound
}

func (m *mockStore) ListTasks() ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Task, len(m.tasks))
	copy(out, m.tasks)
	return out, nil
}

func (m *mockStore) ListTasksByProject(projectID string) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Task
	for _, t := range m.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateTaskStatus(id string, status models.TaskStatus, currentStage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tasks {
		if t.ID == id {
			m.tasks[i].Status = status
			m.tasks[i].CurrentStage = currentStage
			m.tasks[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockStore) UpdateTaskState(id string, state models.PipelineState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tasks {
		if t.ID == id {
			m.tasks[i].State = state
			m.tasks[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockStore) AppendLog(e models.AgentLogEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, e)
	return nil
}

func (m *mockStore) ListLogs(taskID string) ([]models.AgentLogEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AgentLogEvent
	for _, e := range m.logs {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}
