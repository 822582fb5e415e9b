package agent

import (
	"context"
	"fmt"

	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
)

const reviewerSystemPrompt = `You are the review agent of an application build pipeline.
You receive generated code and the latest test results. Review the work for
correctness and completeness relative to the original request. Respond with
a verdict line ("APPROVED" or "CHANGES REQUESTED") followed by your findings.`

// Request size bounds for the review prompt. Oversized inputs are cut, not
// rejected; the reviewer works from the leading excerpt.
const (
	maxReviewCodeChars = 2000
	maxReviewTestChars = 500
)

// Reviewer judges the generated code against the request and test results.
type Reviewer struct {
	base
}

func NewReviewer(deps Deps) *Reviewer {
	return &Reviewer{base{name: "Reviewer", system: reviewerSystemPrompt, deps: deps}}
}

func (r *Reviewer) Execute(ctx context.Context, task *models.Task) error {
	userPrompt := fmt.Sprintf(
		"Build request:\n%s\n\nGenerated code:\n%s\n\nTest results:\n%s",
		task.Prompt,
		truncate(task.State.Code, maxReviewCodeChars),
		truncate(task.State.TestResults, maxReviewTestChars),
	)
	return r.run(ctx, task, userPrompt, func(text string) error {
		task.State.Review = text
		return nil
	})
}
