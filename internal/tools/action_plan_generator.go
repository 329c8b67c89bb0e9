package tools

import (
	"strings"

	"github.com/dileep-u-k/pmo-assistant/internal/schema"
)

// ActionPlanGeneratorID is the registry id of the WBS and action plan tool.
const ActionPlanGeneratorID = "action-plan-generator"

const actionPlanGeneratorPersona = "You are a specialist in work breakdown structures and project planning, " +
	"fluent in PMBOK-style WBS and in turning plans into executable action items."

// PlannedMilestone is a milestone the action plan is built around.
type PlannedMilestone struct {
	Name     string `json:"name"`
	Deadline string `json:"deadline"`
}

// ActionPlanGeneratorInput is the input of the action-plan-generator tool.
type ActionPlanGeneratorInput struct {
	ProjectGoal   string             `json:"project_goal"`
	Milestones    []PlannedMilestone `json:"milestones"`
	TeamMembers   []string           `json:"team_members,omitempty"`
	PriorityAreas []string           `json:"priority_areas,omitempty"`
}

func actionPlanGeneratorDefinition() Definition {
	input := schema.Object(map[string]*schema.JSONSchema{
		"project_goal": schema.String("Project goal"),
		"milestones": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"name":     schema.String("Milestone name"),
			"deadline": schema.String("Deadline"),
		}, "name", "deadline"), "Milestones"),
		"team_members":   schema.Strings("Team members"),
		"priority_areas": schema.Strings("Areas to prioritize"),
	}, "project_goal", "milestones")

	output := schema.Object(map[string]*schema.JSONSchema{
		"wbs_structure": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"wbs_code":        schema.String("WBS code such as 1.1.1"),
			"level":           schema.Number("Level"),
			"task_name":       schema.String("Task name"),
			"description":     schema.String("Description"),
			"deliverables":    schema.Strings("Deliverables"),
			"estimated_hours": schema.Number("Estimated hours"),
			"dependencies":    schema.Strings("WBS codes this task depends on"),
			"milestone":       schema.String("Related milestone"),
		}), "Work breakdown structure"),
		"action_items": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"id":                  schema.String("Action id"),
			"action":              schema.String("Action"),
			"owner":               schema.String("Owner"),
			"start_date":          schema.String("Start date"),
			"due_date":            schema.String("Due date"),
			"priority":            schema.Enum("", "critical", "high", "medium", "low"),
			"status":              schema.Enum("", "not_started", "in_progress", "completed", "blocked"),
			"required_resources":  schema.Strings("Required resources"),
			"acceptance_criteria": schema.String("Acceptance criteria"),
			"wbs_reference":       schema.String("WBS code"),
		}), "Action items"),
		"critical_path": schema.Strings("WBS codes on the critical path"),
		"resource_allocation": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"resource":              schema.String("Member or role"),
			"allocation_percentage": schema.Number("Allocation in percent"),
			"tasks":                 schema.Strings("Assigned WBS codes"),
		}), "Resource allocation"),
	})

	return Definition{
		ID: ActionPlanGeneratorID,
		Description: "Builds a detailed WBS from the goal and milestones and generates concrete action items, " +
			"the critical path and a resource allocation.",
		InputSchema:  input,
		OutputSchema: output,
	}
}

// NewActionPlanGenerator creates the action-plan-generator tool.
func NewActionPlanGenerator(b Backend) *LLMTool[ActionPlanGeneratorInput] {
	def := actionPlanGeneratorDefinition()
	return newLLMTool(def, actionPlanGeneratorPersona, temperature(0.3),
		func() ActionPlanGeneratorInput { return ActionPlanGeneratorInput{} },
		func(in ActionPlanGeneratorInput) string { return buildActionPlanGeneratorPrompt(in, def.OutputSchema) },
		b)
}

func buildActionPlanGeneratorPrompt(in ActionPlanGeneratorInput, output *schema.JSONSchema) string {
	var b promptBuilder
	b.line("You are an experienced PMO expert. Based on the information below, create a detailed WBS " +
		"(work breakdown structure) and an action plan.")

	b.heading("## Project information")
	b.line("### Goal")
	b.text(in.ProjectGoal)
	b.line("### Milestones")
	for i, m := range in.Milestones {
		b.line("%d. %s - deadline: %s", i+1, m.Name, m.Deadline)
	}
	if len(in.TeamMembers) > 0 {
		b.line("### Team members")
		b.text(strings.Join(in.TeamMembers, ", "))
	}
	if len(in.PriorityAreas) > 0 {
		b.line("### Priority areas")
		b.text(strings.Join(in.PriorityAreas, ", "))
	}

	b.heading("## Tasks")
	b.line("1. **WBS (wbs_structure)**: decompose the project hierarchically (at most 3-4 levels), give every task " +
		"a WBS code such as 1.1.1, a description, deliverables and estimated hours, and state dependencies and the related milestone.")
	b.line("2. **Action items (action_items)**: derive concrete actions from the lowest WBS level with owner, dates, " +
		"priority, acceptance criteria and required resources. The initial status is \"not_started\".")
	b.line("3. **Critical path (critical_path)**: the WBS codes of tasks that directly drive the project duration.")
	b.line("4. **Resource allocation (resource_allocation)**: tasks per member or role with the load as a percentage.")

	b.heading("## Notes")
	b.line("- Keep tasks specific and measurable.")
	b.line("- Set dependencies so the flow of the project is clear.")
	b.line("- Avoid overloading anyone: no allocation above one hundred percent.")
	if len(in.PriorityAreas) > 0 {
		b.line("- Give tasks related to the priority areas a high priority.")
	}

	return b.finish(output)
}
