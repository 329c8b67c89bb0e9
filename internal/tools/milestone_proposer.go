package tools

import (
	"strings"

	"github.com/dileep-u-k/pmo-assistant/internal/schema"
)

// MilestoneProposerID is the registry id of the milestone pattern tool.
const MilestoneProposerID = "milestone-proposer"

const milestoneProposerPersona = "You are a project management expert with broad experience designing " +
	"milestones for many industries and project types."

// MilestoneProposerInput is the input of the milestone-proposer tool.
type MilestoneProposerInput struct {
	ProjectDuration string `json:"project_duration"`
	ProjectType     string `json:"project_type"`
	ProjectGoal     string `json:"project_goal"`
	Constraints     string `json:"constraints,omitempty"`
}

func milestonePatternProperties() map[string]*schema.JSONSchema {
	return map[string]*schema.JSONSchema{
		"name":        schema.String("Pattern name"),
		"description": schema.String("Pattern description"),
		"milestones": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"name":         schema.String("Milestone name"),
			"timing":       schema.String("When it happens"),
			"deliverables": schema.Strings("Deliverables"),
			"criteria":     schema.String("Success criteria"),
		}), "Milestones"),
		"advantages":    schema.Strings("Advantages"),
		"disadvantages": schema.Strings("Disadvantages"),
	}
}

func milestoneProposerDefinition() Definition {
	input := schema.Object(map[string]*schema.JSONSchema{
		"project_duration": schema.String("Project duration, e.g. 3 months or 1 year"),
		"project_type":     schema.String("Project type, e.g. system development or organizational change"),
		"project_goal":     schema.String("Project goal"),
		"constraints":      schema.String("Constraints such as budget or resources"),
	}, "project_duration", "project_type", "project_goal")

	alternative := milestonePatternProperties()
	alternative["when_to_use"] = schema.String("When to choose this pattern")

	output := schema.Object(map[string]*schema.JSONSchema{
		"recommended_pattern":  schema.Object(milestonePatternProperties()),
		"alternative_patterns": schema.Array(schema.Object(alternative), "Alternative patterns"),
		"selection_rationale":  schema.String("Why the recommended pattern fits"),
	})

	return Definition{
		ID: MilestoneProposerID,
		Description: "Proposes the milestone pattern best suited to the project's characteristics, " +
			"with alternative patterns and a selection rationale.",
		InputSchema:  input,
		OutputSchema: output,
	}
}

// NewMilestoneProposer creates the milestone-proposer tool. It sends no
// temperature and leaves sampling to the model default.
func NewMilestoneProposer(b Backend) *LLMTool[MilestoneProposerInput] {
	def := milestoneProposerDefinition()
	return newLLMTool(def, milestoneProposerPersona, nil,
		func() MilestoneProposerInput { return MilestoneProposerInput{} },
		func(in MilestoneProposerInput) string { return buildMilestoneProposerPrompt(in, def.OutputSchema) },
		b)
}

func buildMilestoneProposerPrompt(in MilestoneProposerInput, output *schema.JSONSchema) string {
	var b promptBuilder
	b.line("You are an experienced PMO expert. Based on the project information below, propose the most suitable milestone pattern.")

	b.heading("## Project information")
	b.line("- Duration: %s", in.ProjectDuration)
	b.line("- Type: %s", in.ProjectType)
	b.line("- Goal: %s", in.ProjectGoal)
	if strings.TrimSpace(in.Constraints) != "" {
		b.line("- Constraints: %s", in.Constraints)
	}

	b.heading("## Analysis tasks")
	b.line("1. **Recommended pattern (recommended_pattern)**: the one pattern that fits best, with a description, " +
		"each milestone's name, timing, deliverables and criteria, and its advantages and disadvantages.")
	b.line("2. **Alternative patterns (alternative_patterns)**: two or three different approaches with their " +
		"milestones, advantages, disadvantages and when to choose them.")
	b.line("3. **Selection rationale (selection_rationale)**: why the recommended pattern matches this project.")

	b.heading("## Example patterns")
	b.line("- Waterfall: sequential phases")
	b.line("- Agile: iterative development cycles")
	b.line("- Hybrid: a planning phase followed by iterations")
	b.line("- Stage-gate: an approval gate at the end of every phase")
	b.line("- Incremental: features released in stages")

	return b.finish(output)
}
