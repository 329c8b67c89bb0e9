package tools

import (
	"strings"

	"github.com/dileep-u-k/pmo-assistant/internal/schema"
)

// GoalSettingID is the registry id of the SMART goal tool.
const GoalSettingID = "goal-setting"

const goalSettingPersona = "You are an experienced PMO expert who knows the SMART principles well " +
	"and specializes in the goal setting and planning a project needs to succeed."

// GoalSettingInput is the input of the goal-setting tool.
type GoalSettingInput struct {
	DiscussionPoints []string `json:"discussion_points"`
	ProjectContext   string   `json:"project_context,omitempty"`
	Timeline         string   `json:"timeline,omitempty"`
}

func goalSettingDefinition() Definition {
	input := schema.Object(map[string]*schema.JSONSchema{
		"discussion_points": schema.Strings("Main points discussed so far"),
		"project_context":   schema.String("Project background and context"),
		"timeline":          schema.String("Expected project duration or deadline"),
	}, "discussion_points")

	output := schema.Object(map[string]*schema.JSONSchema{
		"missing_points": schema.Strings("Launch topics that were not discussed"),
		"project_goal": schema.Object(map[string]*schema.JSONSchema{
			"specific":   schema.String("Specific goal"),
			"measurable": schema.String("Measurable indicator"),
			"achievable": schema.String("Why it is achievable"),
			"relevant":   schema.String("Relevance and importance"),
			"time_bound": schema.String("Deadline"),
		}),
		"milestones": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"phase":            schema.String("Phase name"),
			"goal":             schema.String("Phase goal"),
			"deadline":         schema.String("Deadline"),
			"success_criteria": schema.String("Success criteria"),
		}), "Milestones"),
		"success_metrics": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"metric":             schema.String("Metric name"),
			"target":             schema.String("Target value"),
			"measurement_method": schema.String("How it is measured"),
		}), "Success metrics"),
	})

	return Definition{
		ID: GoalSettingID,
		Description: "Points out missing launch topics from the discussion and sets a SMART project goal " +
			"with milestones and success metrics.",
		InputSchema:  input,
		OutputSchema: output,
	}
}

// NewGoalSetting creates the goal-setting tool.
func NewGoalSetting(b Backend) *LLMTool[GoalSettingInput] {
	def := goalSettingDefinition()
	return newLLMTool(def, goalSettingPersona, temperature(0.3),
		func() GoalSettingInput { return GoalSettingInput{} },
		func(in GoalSettingInput) string { return buildGoalSettingPrompt(in, def.OutputSchema) },
		b)
}

func buildGoalSettingPrompt(in GoalSettingInput, output *schema.JSONSchema) string {
	var b promptBuilder
	b.line("You are an experienced PMO expert. Based on the information below, set a project goal " +
		"following the SMART principles, together with milestones.")

	b.heading("## Main points discussed")
	b.numbered(in.DiscussionPoints)

	if strings.TrimSpace(in.ProjectContext) != "" {
		b.heading("## Project context")
		b.text(in.ProjectContext)
	}
	if strings.TrimSpace(in.Timeline) != "" {
		b.heading("## Timeline")
		b.text(in.Timeline)
	}

	b.heading("## Analysis tasks")
	b.line("1. **Missing points (missing_points)**: check whether these usual launch topics were discussed and list the gaps:")
	for _, topic := range []string{
		"Stakeholder expectations and engagement", "Risk management plan", "Quality standards and verification",
		"Communication plan", "Change management process", "Budget and resource plan",
		"Definition of deliverables", "Decision-making process",
	} {
		b.line("   - %s", topic)
	}
	b.line("2. **SMART goal (project_goal)**: specific, measurable, achievable, relevant and time-bound.")
	b.line("3. **Milestones (milestones)**: split the project into phases, each with a goal, deadline and success criteria.")
	b.line("4. **Success metrics (success_metrics)**: KPIs with a target value and a measurement method.")

	return b.finish(output)
}
