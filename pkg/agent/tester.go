package agent

import (
	"context"
	"fmt"

	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
)

const testerSystemPrompt = `You are the testing agent of an application build pipeline.
You receive generated application code. Write and mentally execute a test
suite against it. Report the results: which checks pass, which fail, and a
one-line summary verdict on the first line.`

// Tester exercises the generated code and reports results.
type Tester struct {
	base
}

func NewTester(deps Deps) *Tester {
	return &Tester{base{name: "Tester", system: testerSystemPrompt, deps: deps}}
}

func (t *Tester) Execute(ctx context.Context, task *models.Task) error {
	userPrompt := fmt.Sprintf("Application code:\n%s", task.State.Code)
	return t.run(ctx, task, userPrompt, func(text string) error {
		task.State.TestResults = text
		return nil
	})
}
