package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/llm"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
)

const plannerSystemPrompt = `You are the planning agent of an application build pipeline.
Given a natural-language build request, produce a development plan as a single JSON object with this exact shape:
{
  "phases": [
    {
      "name": "phase name",
      "tasks": [
        {
          "id": "t1",
          "title": "short title",
          "description": "what to build",
          "dependencies": ["ids of prerequisite tasks"],
          "complexity": "low|medium|high"
        }
      ]
    }
  ],
  "tech_stack": {"frontend": "...", "backend": "...", "database": "..."},
  "requirements": ["requirement 1", "requirement 2"]
}
Respond with JSON only. No prose, no markdown fences.`

// Plan is the schema the Planner demands from the model.
type Plan struct {
	Phases       []PlanPhase `json:"phases"`
	TechStack    TechStack   `json:"tech_stack"`
	Requirements []string    `json:"requirements"`
}

type PlanPhase struct {
	Name  string     `json:"name"`
	Tasks []PlanTask `json:"tasks"`
}

type PlanTask struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
	Complexity   string   `json:"complexity"`
}

type TechStack struct {
	Frontend string `json:"frontend"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
}

// Planner turns the build request into a structured development plan.
type Planner struct {
	base
}

func NewPlanner(deps Deps) *Planner {
	return &Planner{base{name: "Planner", system: plannerSystemPrompt, deps: deps}}
}

func (p *Planner) Execute(ctx context.Context, task *models.Task) error {
	return p.run(ctx, task, task.Prompt, func(text string) error {
		plan, err := ParsePlan(text)
		if err != nil {
			return err
		}
		// Store the normalized plan so downstream stages see valid JSON
		// regardless of how the model framed its answer.
		normalized, merr := json.Marshal(plan)
		if merr != nil {
			return llm.NewError(llm.MalformedResponse, "failed to re-encode plan: %v", merr)
		}
		task.State.Plan = string(normalized)
		return nil
	})
}

// ParsePlan decodes and validates the model's plan JSON. Markdown fences
// around the payload are tolerated; anything that fails to decode or misses
// required fields is a MalformedResponse.
func ParsePlan(text string) (*Plan, error) {
	payload := stripFences(text)
	var plan Plan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return nil, llm.NewError(llm.MalformedResponse, "plan is not valid JSON: %v", err)
	}
	if len(plan.Phases) == 0 {
		return nil, llm.NewError(llm.MalformedResponse, "plan has no phases")
	}
	for _, phase := range plan.Phases {
		if len(phase.Tasks) == 0 {
			return nil, llm.NewError(llm.MalformedResponse, "phase %q has no tasks", phase.Name)
		}
		for _, t := range phase.Tasks {
			if t.ID == "" || t.Title == "" {
				return nil, llm.NewError(llm.MalformedResponse, "phase %q contains a task without id or title", phase.Name)
			}
		}
	}
	return &plan, nil
}

// stripFences removes a wrapping markdown code fence if the model added one.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
