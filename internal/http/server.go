package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shubendhum/Catalyst-project-langgraph-sub004/internal/log"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/broadcast"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/pipeline"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/storage"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The live feed is consumed by the project's own clients; no origin policy here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func StartServer(port string, store storage.Store, orch *pipeline.Orchestrator, bc *broadcast.Broadcaster) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/tasks", TasksHandler(store, orch))
	mux.HandleFunc("/tasks/", TaskByIDHandler(store, orch, bc))

	log.GetLogger().Infof("Starting Catalyst server on :%s", port)
	return http.ListenAndServe(":"+port, mux)
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Catalyst server is running")
}

// TasksHandler serves GET /tasks (list, optionally ?project_id=) and
// POST /tasks (create a task and start its pipeline run).
func TasksHandler(store storage.Store, orch *pipeline.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			listTasksHTTP(w, r, store)
		case http.MethodPost:
			createTaskHTTP(w, r, store, orch)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// TaskByIDHandler serves /tasks/{id} plus the sub-resources
// /tasks/{id}/cancel, /tasks/{id}/logs and /tasks/{id}/live.
func TaskByIDHandler(store storage.Store, orch *pipeline.Orchestrator, bc *broadcast.Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/tasks/"), "/"), "/")
		if len(parts) == 0 || parts[0] == "" {
			http.Error(w, "Missing task id", http.StatusBadRequest)
			return
		}
		id := parts[0]

		if len(parts) == 1 {
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			getTaskHTTP(w, store, id)
			return
		}

		switch parts[1] {
		case "cancel":
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			cancelTaskHTTP(w, store, orch, id)
		case "logs":
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			listLogsHTTP(w, store, id)
		case "live":
			liveHTTP(w, r, bc, id)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	}
}

type createTaskRequest struct {
	ProjectID string `json:"project_id"`
	Prompt    string `json:"prompt"`
}

func createTaskHTTP(w http.ResponseWriter, r *http.Request, store storage.Store, orch *pipeline.Orchestrator) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		log.GetLogger().Error("Missing 'prompt' in POST /tasks")
		http.Error(w, "Missing 'prompt'", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	task := models.Task{
		ID:        uuid.NewString(),
		ProjectID: req.ProjectID,
		Prompt:    req.Prompt,
		Status:    models.QueuedTaskStatus,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.SaveTask(task); err != nil {
		log.GetLogger().Errorf("Failed to create task: %v", err)
		http.Error(w, fmt.Sprintf("Failed to create task: %v", err), http.StatusInternalServerError)
		return
	}
	if err := orch.StartRun(task); err != nil {
		log.GetLogger().Errorf("Failed to start run for task %s: %v", task.ID, err)
		http.Error(w, fmt.Sprintf("Failed to start run: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func listTasksHTTP(w http.ResponseWriter, r *http.Request, store storage.Store) {
	var (
		tasks []models.Task
		err   error
	)
	if projectID := r.URL.Query().Get("project_id"); projectID != "" {
		tasks, err = store.ListTasksByProject(projectID)
	} else {
		tasks, err = store.ListTasks()
	}
	if err != nil {
		log.GetLogger().Errorf("Failed to list tasks: %v", err)
		http.Error(w, fmt.Sprintf("Failed to list tasks: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func getTaskHTTP(w http.ResponseWriter, store storage.Store, id string) {
	task, err := store.GetTask(id)
	if err == storage.ErrNotFound {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.GetLogger().Errorf("Failed to get task %s: %v", id, err)
		http.Error(w, fmt.Sprintf("Failed to get task: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func cancelTaskHTTP(w http.ResponseWriter, store storage.Store, orch *pipeline.Orchestrator, id string) {
	active := orch.Cancel(id)
	if !active {
		// No live run: a queued task can still be cancelled directly.
		task, err := store.GetTask(id)
		if err == storage.ErrNotFound {
			http.Error(w, "Task not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.GetLogger().Errorf("Failed to get task %s: %v", id, err)
			http.Error(w, fmt.Sprintf("Failed to get task: %v", err), http.StatusInternalServerError)
			return
		}
		if !task.Status.Terminal() {
			if err := store.UpdateTaskStatus(id, models.CancelledTaskStatus, task.CurrentStage); err != nil {
				log.GetLogger().Errorf("Failed to cancel task %s: %v", id, err)
				http.Error(w, fmt.Sprintf("Failed to cancel task: %v", err), http.StatusInternalServerError)
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true, "was_active": active})
}

func listLogsHTTP(w http.ResponseWriter, store storage.Store, id string) {
	logs, err := store.ListLogs(id)
	if err != nil {
		log.GetLogger().Errorf("Failed to list logs for task %s: %v", id, err)
		http.Error(w, fmt.Sprintf("Failed to list logs: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// wsChannel adapts a websocket connection to broadcast.LiveChannel.
type wsChannel struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsChannel) Send(e models.AgentLogEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(e)
}

// liveHTTP upgrades the request and installs the connection as the live
// subscriber for the task. This is a live-only feed: no backlog is pushed.
// Inbound frames are discarded (liveness pings); a read error unregisters.
func liveHTTP(w http.ResponseWriter, r *http.Request, bc *broadcast.Broadcaster, id string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.GetLogger().Errorf("Failed to upgrade live connection for task %s: %v", id, err)
		return
	}
	ch := &wsChannel{conn: conn}
	bc.Register(id, ch)

	go func() {
		defer func() {
			bc.UnregisterChannel(id, ch)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.GetLogger().Errorf("Failed to encode response: %v", err)
	}
}
