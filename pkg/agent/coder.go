package agent

import (
	"context"
	"fmt"

	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
)

const coderSystemPrompt = `You are the coding agent of an application build pipeline.
You receive a build request and a structured development plan. Implement the
application described by the plan. Respond with the complete source code,
one file per section, each section preceded by a line naming the file path.`

// Coder generates the application code from the plan.
type Coder struct {
	base
}

func NewCoder(deps Deps) *Coder {
	return &Coder{base{name: "Coder", system: coderSystemPrompt, deps: deps}}
}

func (c *Coder) Execute(ctx context.Context, task *models.Task) error {
	userPrompt := fmt.Sprintf("Build request:\n%s\n\nDevelopment plan:\n%s", task.Prompt, task.State.Plan)
	return c.run(ctx, task, userPrompt, func(text string) error {
		task.State.Code = text
		return nil
	})
}
