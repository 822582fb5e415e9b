package storage_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_storage "github.com/shubendhum/Catalyst-project-langgraph-sub004/internal/storage"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/internal/testutil"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/storage"
)

func newStore(t *testing.T) (storage.Store, *testutil.TestDB) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	testDB := testutil.SetupTestDB(t)
	store, err := internal_storage.NewPostgresStore(testDB.ConnStr)
	require.NoError(t, err)
	return store, testDB
}

func newTask(projectID string) models.Task {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return models.Task{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Prompt:    "build a todo app",
		Status:    models.QueuedTaskStatus,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestTaskLifecycle(t *testing.T) {
	store, testDB := newStore(t)
	defer testDB.Teardown(t)
	defer store.Close()

	task := newTask("p1")
	require.NoError(t, store.SaveTask(task))

	got, err := store.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "p1", got.ProjectID)
	assert.Equal(t, models.QueuedTaskStatus, got.Status)
	assert.Equal(t, 0, got.CurrentStage)
	assert.Empty(t, got.State.Plan)

	require.NoError(t, store.UpdateTaskStatus(task.ID, models.PlanningTaskStatus, 0))
	got, err = store.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanningTaskStatus, got.Status)

	state := models.PipelineState{Plan: `{"phases":[]}`, Code: "package main"}
	require.NoError(t, store.UpdateTaskState(task.ID, state))
	got, err = store.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"phases":[]}`, got.State.Plan)
	assert.Equal(t, "package main", got.State.Code)

	require.NoError(t, store.UpdateTaskStatus(task.ID, models.FailedTaskStatus, 2))
	got, err = store.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FailedTaskStatus, got.Status)
	assert.Equal(t, 2, got.CurrentStage)
}

func TestGetTaskNotFound(t *testing.T) {
	store, testDB := newStore(t)
	defer testDB.Teardown(t)
	defer store.Close()

	_, err := store.GetTask(uuid.NewString())
	assert.Equal(t, storage.ErrNotFound, err)
}

func TestListTasksByProject(t *testing.T) {
	store, testDB := newStore(t)
	defer testDB.Teardown(t)
	defer store.Close()

	require.NoError(t, store.SaveTask(newTask("p1")))
	require.NoError(t, store.SaveTask(newTask("p1")))
	require.NoError(t, store.SaveTask(newTask("p2")))

	all, err := store.ListTasks()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	p1, err := store.ListTasksByProject("p1")
	require.NoError(t, err)
	assert.Len(t, p1, 2)

	none, err := store.ListTasksByProject("p3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAppendAndListLogs(t *testing.T) {
	store, testDB := newStore(t)
	defer testDB.Teardown(t)
	defer store.Close()

	task := newTask("p1")
	require.NoError(t, store.SaveTask(task))

	base := time.Now().UTC().Truncate(time.Microsecond)
	messages := []string{"▶ Planner started", "✓ Planner succeeded", "▶ Coder started"}
	for i, msg := range messages {
		require.NoError(t, store.AppendLog(models.AgentLogEvent{
			ID:        uuid.NewString(),
			TaskID:    task.ID,
			AgentName: "Planner",
			Message:   msg,
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	logs, err := store.ListLogs(task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	for i, msg := range messages {
		assert.Equal(t, msg, logs[i].Message)
	}

	other, err := store.ListLogs(uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestTransactionRollback(t *testing.T) {
	store, testDB := newStore(t)
	defer testDB.Teardown(t)
	defer store.Close()

	tx, err := store.Begin()
	require.NoError(t, err)

	task := newTask("p1")
	require.NoError(t, tx.SaveTask(task))
	require.NoError(t, tx.Rollback())

	_, err = store.GetTask(task.ID)
	assert.Equal(t, storage.ErrNotFound, err)
}

func TestTransactionCommit(t *testing.T) {
	store, testDB := newStore(t)
	defer testDB.Teardown(t)
	defer store.Close()

	tx, err := store.Begin()
	require.NoError(t, err)

	task := newTask("p1")
	require.NoError(t, tx.SaveTask(task))
	require.NoError(t, tx.Commit())

	got, err := store.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
}
