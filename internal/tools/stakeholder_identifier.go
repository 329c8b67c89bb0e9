package tools

import (
	"strings"

	"github.com/dileep-u-k/pmo-assistant/internal/schema"
)

// StakeholderIdentifierID is the registry id of the stakeholder analysis tool.
const StakeholderIdentifierID = "stakeholder-identifier"

const stakeholderIdentifierPersona = "You are a project management specialist skilled at stakeholder management " +
	"and building RACI matrices. You understand Japanese corporate culture and identify the right stakeholders."

// StakeholderIdentifierInput is the input of the stakeholder-identifier tool.
type StakeholderIdentifierInput struct {
	ProjectGoal         string   `json:"project_goal"`
	ProjectScope        string   `json:"project_scope,omitempty"`
	KeyActivities       []string `json:"key_activities"`
	OrganizationContext string   `json:"organization_context,omitempty"`
}

var highMediumLow = []string{"high", "medium", "low"}

func stakeholderIdentifierDefinition() Definition {
	input := schema.Object(map[string]*schema.JSONSchema{
		"project_goal":         schema.String("Project goal"),
		"project_scope":        schema.String("Project scope"),
		"key_activities":       schema.Strings("Main project activities"),
		"organization_context": schema.String("Organization structure and culture"),
	}, "project_goal", "key_activities")

	output := schema.Object(map[string]*schema.JSONSchema{
		"stakeholder_map": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"name":                     schema.String("Name or title"),
			"category":                 schema.Enum("", "sponsor", "customer", "team", "vendor", "regulator", "other"),
			"role":                     schema.String("Role in the project"),
			"interest":                 schema.Enum("", highMediumLow...),
			"influence":                schema.Enum("", highMediumLow...),
			"expectations":             schema.Strings("Expectations"),
			"communication_preference": schema.String("Preferred communication"),
		}), "Stakeholder map"),
		"engagement_strategy": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"stakeholder_group": schema.String("Stakeholder group"),
			"strategy":          schema.String("Engagement strategy"),
			"frequency":         schema.String("Frequency"),
			"method":            schema.String("Method"),
		}), "Engagement strategy"),
		"raci_matrix": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"activity":    schema.String("Activity"),
			"responsible": schema.Strings("Responsible"),
			"accountable": schema.String("Accountable"),
			"consulted":   schema.Strings("Consulted"),
			"informed":    schema.Strings("Informed"),
		}), "RACI matrix"),
	})

	return Definition{
		ID: StakeholderIdentifierID,
		Description: "Identifies project stakeholders, analyzes their interest and influence, and builds " +
			"an engagement strategy and a RACI matrix.",
		InputSchema:  input,
		OutputSchema: output,
	}
}

// NewStakeholderIdentifier creates the stakeholder-identifier tool.
func NewStakeholderIdentifier(b Backend) *LLMTool[StakeholderIdentifierInput] {
	def := stakeholderIdentifierDefinition()
	return newLLMTool(def, stakeholderIdentifierPersona, temperature(0.3),
		func() StakeholderIdentifierInput { return StakeholderIdentifierInput{} },
		func(in StakeholderIdentifierInput) string { return buildStakeholderIdentifierPrompt(in, def.OutputSchema) },
		b)
}

func buildStakeholderIdentifierPrompt(in StakeholderIdentifierInput, output *schema.JSONSchema) string {
	var b promptBuilder
	b.line("You are an experienced PMO expert. Based on the project information below, identify the stakeholders " +
		"and build an engagement strategy and a RACI matrix.")

	b.heading("## Project information")
	b.line("### Goal")
	b.text(in.ProjectGoal)
	if strings.TrimSpace(in.ProjectScope) != "" {
		b.line("### Scope")
		b.text(in.ProjectScope)
	}
	b.line("### Key activities")
	b.numbered(in.KeyActivities)
	if strings.TrimSpace(in.OrganizationContext) != "" {
		b.line("### Organization context")
		b.text(in.OrganizationContext)
	}

	b.heading("## Analysis tasks")
	b.line("1. **Stakeholder map (stakeholder_map)**: internal and external stakeholders with name, category " +
		"(sponsor/customer/team/vendor/regulator/other), role, interest and influence (high/medium/low), " +
		"expectations and preferred communication.")
	b.line("2. **Engagement strategy (engagement_strategy)**: per stakeholder group, based on the interest and " +
		"influence grid, the strategy, frequency and method of communication.")
	b.line("3. **RACI matrix (raci_matrix)**: for each key activity who is responsible, accountable, consulted and informed.")

	return b.finish(output)
}
