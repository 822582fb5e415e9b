package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	internal_http "github.com/shubendhum/Catalyst-project-langgraph-sub004/internal/http"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/internal/log"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/broadcast"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/pipeline"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/storage"
)

const validPlanJSON = `{
  "phases": [
    {"name": "setup", "tasks": [
      {"id": "t1", "title": "Scaffold project", "description": "create skeleton", "dependencies": [], "complexity": "low"}
    ]}
  ],
  "tech_stack": {"frontend": "react", "backend": "go", "database": "postgres"},
  "requirements": ["todo CRUD"]
}`

// roleGateway answers by agent role so every stage gets a usable reply
type roleGateway struct{}

func (roleGateway) Send(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	switch {
	case strings.Contains(systemPrompt, "planning agent"):
		return validPlanJSON, nil
	case strings.Contains(systemPrompt, "coding agent"):
		return "code", nil
	case strings.Contains(systemPrompt, "testing agent"):
		return "tests pass", nil
	case strings.Contains(systemPrompt, "review agent"):
		return "approved", nil
	default:
		return "deployed", nil
	}
}

type testEnv struct {
	store storage.Store
	orch  *pipeline.Orchestrator
	bc    *broadcast.Broadcaster
	srv   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	logger := log.GetLogger()
	store := storage.NewMockStore()
	bc := broadcast.NewBroadcaster(logger)
	deps := pipeline.AgentDeps(roleGateway{}, store, bc, logger)
	orch := pipeline.NewOrchestrator(store, pipeline.Stages(deps), logger, pipeline.Config{})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", internal_http.HealthHandler)
	mux.HandleFunc("/tasks", internal_http.TasksHandler(store, orch))
	mux.HandleFunc("/tasks/", internal_http.TaskByIDHandler(store, orch, bc))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &testEnv{store: store, orch: orch, bc: bc, srv: srv}
}

func (e *testEnv) createTask(t *testing.T, prompt string) models.Task {
	body, _ := json.Marshal(map[string]string{"project_id": "p1", "prompt": prompt})
	resp, err := e.srv.Client().Post(e.srv.URL+"/tasks", "application/json", bytes.NewReader(body))
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var task models.Task
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&task))
	return task
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.srv.Client().Get(env.srv.URL + "/health")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateTaskRunsPipeline(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "build a todo app")
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, models.QueuedTaskStatus, task.Status)

	env.orch.Wait(task.ID)

	resp, err := env.srv.Client().Get(env.srv.URL + "/tasks/" + task.ID)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var final models.Task
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&final))
	assert.Equal(t, models.SucceededTaskStatus, final.Status)
	assert.Equal(t, "deployed", final.State.Deployment)
}

func TestCreateTaskRequiresPrompt(t *testing.T) {
	env := newTestEnv(t)
	body, _ := json.Marshal(map[string]string{"project_id": "p1"})
	resp, err := env.srv.Client().Post(env.srv.URL+"/tasks", "application/json", bytes.NewReader(body))
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListTasksFiltersByProject(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	for i, project := range []string{"p1", "p1", "p2"} {
		task := models.Task{
			ID:        fmt.Sprintf("task-%d", i),
			ProjectID: project,
			Prompt:    "x",
			Status:    models.QueuedTaskStatus,
			CreatedAt: now,
			UpdatedAt: now,
		}
		assert.NoError(t, env.store.SaveTask(task))
	}

	resp, err := env.srv.Client().Get(env.srv.URL + "/tasks?project_id=p1")
	assert.NoError(t, err)
	defer resp.Body.Close()

	var tasks []models.Task
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&tasks))
	assert.Len(t, tasks, 2)
}

func TestGetTaskNotFound(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.srv.Client().Get(env.srv.URL + "/tasks/missing")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelQueuedTask(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	task := models.Task{
		ID:        "queued-task",
		ProjectID: "p1",
		Prompt:    "x",
		Status:    models.QueuedTaskStatus,
		CreatedAt: now,
		UpdatedAt: now,
	}
	assert.NoError(t, env.store.SaveTask(task))

	resp, err := env.srv.Client().Post(env.srv.URL+"/tasks/queued-task/cancel", "application/json", nil)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	final, err := env.store.GetTask("queued-task")
	assert.NoError(t, err)
	assert.Equal(t, models.CancelledTaskStatus, final.Status)
}

func TestListLogsAfterRun(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "build a todo app")
	env.orch.Wait(task.ID)

	resp, err := env.srv.Client().Get(env.srv.URL + "/tasks/" + task.ID + "/logs")
	assert.NoError(t, err)
	defer resp.Body.Close()

	var logs []models.AgentLogEvent
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&logs))
	assert.Len(t, logs, 10)
	assert.Equal(t, "Planner", logs[0].AgentName)
	assert.Equal(t, "Deployer", logs[len(logs)-1].AgentName)
}

func TestLiveFeedDeliversRunEvents(t *testing.T) {
	env := newTestEnv(t)

	// Create the task directly so the subscriber is installed before the
	// run starts; the feed has no backlog.
	now := time.Now().UTC()
	task := models.Task{
		ID:        "live-task",
		ProjectID: "p1",
		Prompt:    "build a todo app",
		Status:    models.QueuedTaskStatus,
		CreatedAt: now,
		UpdatedAt: now,
	}
	assert.NoError(t, env.store.SaveTask(task))

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/tasks/live-task/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	defer conn.Close()

	assert.NoError(t, env.orch.StartRun(task))

	var events []models.AgentLogEvent
	for i := 0; i < 10; i++ {
		assert.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var e models.AgentLogEvent
		assert.NoError(t, conn.ReadJSON(&e))
		events = append(events, e)
	}

	assert.Equal(t, "live-task", events[0].TaskID)
	assert.Contains(t, events[0].Message, "Planner started")
	assert.Contains(t, events[9].Message, "Deployer succeeded")

	env.orch.Wait(task.ID)
}
