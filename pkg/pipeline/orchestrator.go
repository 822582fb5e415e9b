// Package pipeline drives one task through the fixed five-stage build
// sequence: plan, build, test, review, deploy.
package pipeline

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/agent"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/llm"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
)

// Logger defines the logging interface for the orchestrator
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// TaskStore is the slice of persistence the orchestrator needs.
type TaskStore interface {
	UpdateTaskStatus(id string, status models.TaskStatus, currentStage int) error
	UpdateTaskState(id string, state models.PipelineState) error
}

// Stage binds a pipeline position to the agent executing it and the task
// status a run enters when the stage begins.
type Stage struct {
	Name   string
	Status models.TaskStatus
	Agent  agent.Agent
}

// AgentDeps bundles the capabilities shared by all stage agents.
func AgentDeps(gateway llm.Gateway, sink agent.LogSink, publisher agent.EventPublisher, logger agent.Logger) agent.Deps {
	return agent.Deps{Gateway: gateway, Sink: sink, Publisher: publisher, Logger: logger}
}

// Stages returns the fixed pipeline sequence wired to deps.
func Stages(deps agent.Deps) []Stage {
	return []Stage{
		{Name: "Planner", Status: models.PlanningTaskStatus, Agent: agent.NewPlanner(deps)},
		{Name: "Coder", Status: models.BuildingTaskStatus, Agent: agent.NewCoder(deps)},
		{Name: "Tester", Status: models.TestingTaskStatus, Agent: agent.NewTester(deps)},
		{Name: "Reviewer", Status: models.ReviewingTaskStatus, Agent: agent.NewReviewer(deps)},
		{Name: "Deployer", Status: models.DeployingTaskStatus, Agent: agent.NewDeployer(deps)},
	}
}

// Config tunes run behavior.
type Config struct {
	// StageRetries is the number of additional attempts after a failed
	// stage invocation. Zero means fail-fast.
	StageRetries int
}

// run tracks one active pipeline execution.
type run struct {
	cancelled  chan struct{} // closed on Cancel; checked at stage boundaries
	done       chan struct{} // closed when the run goroutine exits
	cancelOnce sync.Once
}

// Orchestrator executes pipeline runs. Runs for different tasks execute
// fully in parallel; within one run, stages are strictly sequential. The
// runs registry is the only shared state and is guarded by a single mutex.
type Orchestrator struct {
	store  TaskStore
	stages []Stage
	logger Logger
	cfg    Config
	mu     sync.Mutex
	runs   map[string]*run
}

func NewOrchestrator(store TaskStore, stages []Stage, logger Logger, cfg Config) *Orchestrator {
	return &Orchestrator{
		store:  store,
		stages: stages,
		logger: logger,
		cfg:    cfg,
		runs:   make(map[string]*run),
	}
}

// StartRun begins asynchronous execution of the pipeline for task. It
// returns immediately; the caller is never blocked on stage work. Starting
// a second run while one is active for the same task ID is rejected.
func (o *Orchestrator) StartRun(task models.Task) error {
	if task.Status.Terminal() {
		return errors.Errorf("task %s is already %s", task.ID, task.Status)
	}
	o.mu.Lock()
	if _, active := o.runs[task.ID]; active {
		o.mu.Unlock()
		return errors.Errorf("a run is already active for task %s", task.ID)
	}
	r := &run{
		cancelled: make(chan struct{}),
		done:      make(chan struct{}),
	}
	o.runs[task.ID] = r
	o.mu.Unlock()

	o.logger.Infof("Starting pipeline run for task %s", task.ID)
	go o.execute(task, r)
	return nil
}

// Cancel requests cooperative cancellation of the active run for taskID and
// reports whether one was active. Cancellation takes effect at the next
// stage boundary; an in-flight gateway call is not aborted, but its result
// is discarded.
func (o *Orchestrator) Cancel(taskID string) bool {
	o.mu.Lock()
	r, ok := o.runs[taskID]
	o.mu.Unlock()
	if !ok {
		return false
	}
	r.cancelOnce.Do(func() { close(r.cancelled) })
	o.logger.Infof("Cancellation requested for task %s", taskID)
	return true
}

// Active reports whether a run is currently executing for taskID.
func (o *Orchestrator) Active(taskID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.runs[taskID]
	return ok
}

// Wait blocks until the run for taskID finished. Returns immediately when
// no run is active.
func (o *Orchestrator) Wait(taskID string) {
	o.mu.Lock()
	r, ok := o.runs[taskID]
	o.mu.Unlock()
	if !ok {
		return
	}
	<-r.done
}

// execute runs the stage sequence for one task. The task value is this
// goroutine's private copy; nothing else mutates its pipeline state while
// the run is active.
func (o *Orchestrator) execute(task models.Task, r *run) {
	defer func() {
		o.mu.Lock()
		delete(o.runs, task.ID)
		o.mu.Unlock()
		close(r.done)
	}()

	for i, stage := range o.stages {
		if r.isCancelled() {
			o.finish(&task, models.CancelledTaskStatus)
			return
		}

		task.Status = stage.Status
		task.CurrentStage = i
		o.setStatus(&task, stage.Status)

		err := o.invoke(stage, &task)

		// A cancel that arrived while the agent was in flight wins: the
		// stage result is discarded, the persisted log history stands.
		if r.isCancelled() {
			o.finish(&task, models.CancelledTaskStatus)
			return
		}

		if err != nil {
			task.State.FailedStage = stage.Agent.Name()
			task.State.ErrorKind = string(llm.KindOf(err))
			task.State.Error = err.Error()
			o.saveState(&task)
			o.finish(&task, models.FailedTaskStatus)
			o.logger.Errorf("Pipeline run for task %s failed at %s: %v", task.ID, stage.Name, err)
			return
		}
		o.saveState(&task)
	}

	o.finish(&task, models.SucceededTaskStatus)
	o.logger.Infof("Pipeline run for task %s succeeded", task.ID)
}

// invoke executes one stage, retrying up to cfg.StageRetries extra times.
func (o *Orchestrator) invoke(stage Stage, task *models.Task) error {
	var err error
	for attempt := 0; attempt <= o.cfg.StageRetries; attempt++ {
		if attempt > 0 {
			o.logger.Infof("Retrying stage %s for task %s (attempt %d/%d)", stage.Name, task.ID, attempt+1, o.cfg.StageRetries+1)
		}
		err = stage.Agent.Execute(context.Background(), task)
		if err == nil {
			return nil
		}
	}
	return err
}

func (o *Orchestrator) finish(task *models.Task, status models.TaskStatus) {
	task.Status = status
	o.setStatus(task, status)
}

// setStatus persists a status transition. Persistence failures are logged
// and tolerated; the run itself stays authoritative.
func (o *Orchestrator) setStatus(task *models.Task, status models.TaskStatus) {
	if err := o.store.UpdateTaskStatus(task.ID, status, task.CurrentStage); err != nil {
		o.logger.Errorf("Failed to persist status %s for task %s: %v", status, task.ID, err)
	}
}

func (o *Orchestrator) saveState(task *models.Task) {
	if err := o.store.UpdateTaskState(task.ID, task.State); err != nil {
		o.logger.Errorf("Failed to persist pipeline state for task %s: %v", task.ID, err)
	}
}

func (r *run) isCancelled() bool {
	select {
	case <-r.cancelled:
		return true
	default:
		return false
	}
}
