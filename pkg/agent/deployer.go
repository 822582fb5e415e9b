package agent

import (
	"context"
	"fmt"

	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
)

const deployerSystemPrompt = `You are the deployment agent of an application build pipeline.
You receive reviewed application code. Produce the deployment artifacts and
steps (container definition, environment configuration, start command) and
report the resulting deployment, including where the application is served.`

// Deployer turns the reviewed code into a deployment result.
type Deployer struct {
	base
}

func NewDeployer(deps Deps) *Deployer {
	return &Deployer{base{name: "Deployer", system: deployerSystemPrompt, deps: deps}}
}

func (d *Deployer) Execute(ctx context.Context, task *models.Task) error {
	userPrompt := fmt.Sprintf("Application code:\n%s\n\nReview verdict:\n%s", task.State.Code, task.State.Review)
	return d.run(ctx, task, userPrompt, func(text string) error {
		task.State.Deployment = text
		return nil
	})
}
