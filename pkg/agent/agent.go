// Package agent implements the five pipeline stage agents. Each agent wraps
// exactly one LLM gateway call plus its stage-specific pre/post-processing,
// and emits log events through injected capabilities rather than concrete
// collaborators.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/llm"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
)

// LogSink persists agent log events, keyed by task ID.
type LogSink interface {
	AppendLog(e models.AgentLogEvent) error
}

// EventPublisher pushes an event to the task's live subscriber, best-effort.
type EventPublisher interface {
	Publish(taskID string, e models.AgentLogEvent)
}

// Logger defines the logging interface for agents
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Agent is one stage of the pipeline. Execute reads the task's prompt and
// pipeline state, performs its single gateway call, and merges its artifact
// back into the state. Failures are returned as *llm.Error.
type Agent interface {
	Name() string
	Execute(ctx context.Context, task *models.Task) error
}

// Deps are the capabilities every stage agent is constructed with.
type Deps struct {
	Gateway   llm.Gateway
	Sink      LogSink
	Publisher EventPublisher
	Logger    Logger
}

type base struct {
	name   string
	system string
	deps   Deps
}

func (b *base) Name() string {
	return b.name
}

// emit writes one log event to the sink and then to the live publisher.
// Both are independently best-effort: a sink failure is logged and
// tolerated, never propagated into the run.
func (b *base) emit(taskID, format string, args ...interface{}) {
	e := models.AgentLogEvent{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		AgentName: b.name,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now().UTC(),
	}
	if err := b.deps.Sink.AppendLog(e); err != nil {
		b.deps.Logger.Errorf("Failed to persist log event for task %s: %v", taskID, err)
	}
	b.deps.Publisher.Publish(taskID, e)
}

// send performs the stage's single gateway call, normalizing untyped
// transport errors into the gateway error taxonomy.
func (b *base) send(ctx context.Context, userPrompt string) (string, error) {
	text, err := b.deps.Gateway.Send(ctx, b.system, userPrompt)
	if err != nil {
		if _, ok := err.(*llm.Error); ok {
			return "", err
		}
		return "", llm.NewError(llm.GatewayUnavailable, "%v", err)
	}
	return text, nil
}

// run is the shared execution skeleton: started line, gateway call,
// stage-specific apply step, succeeded/failed line.
func (b *base) run(ctx context.Context, task *models.Task, userPrompt string, apply func(text string) error) error {
	b.emit(task.ID, "▶ %s started", b.name)
	text, err := b.send(ctx, userPrompt)
	if err == nil {
		err = apply(text)
	}
	if err != nil {
		b.emit(task.ID, "✗ %s failed: %v", b.name, err)
		return err
	}
	b.emit(task.ID, "✓ %s succeeded", b.name)
	return nil
}

// truncate hard-caps s at max characters. Truncation is silent: bounding the
// prompt size is never an error.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
