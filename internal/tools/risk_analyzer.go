package tools

import (
	"strings"

	"github.com/dileep-u-k/pmo-assistant/internal/schema"
)

// RiskAnalyzerID is the registry id of the risk analysis tool.
const RiskAnalyzerID = "risk-analyzer"

const riskAnalyzerPersona = "You are a risk management specialist with deep experience in project management. " +
	"You identify risks systematically, evaluate them quantitatively and propose practical responses."

// RiskConstraints are the optional constraints a risk analysis considers.
type RiskConstraints struct {
	Budget    string `json:"budget,omitempty"`
	Timeline  string `json:"timeline,omitempty"`
	Resources string `json:"resources,omitempty"`
	Technical string `json:"technical,omitempty"`
}

// RiskAnalyzerInput is the input of the risk-analyzer tool.
type RiskAnalyzerInput struct {
	ProjectContext   string           `json:"project_context"`
	ProjectType      string           `json:"project_type"`
	ProjectPhase     string           `json:"project_phase"`
	IdentifiedIssues []string         `json:"identified_issues,omitempty"`
	Constraints      *RiskConstraints `json:"constraints,omitempty"`
}

var likelihoodLevels = []string{"very_low", "low", "medium", "high", "very_high"}

func riskAnalyzerDefinition() Definition {
	input := schema.Object(map[string]*schema.JSONSchema{
		"project_context":   schema.String("Project background and overview"),
		"project_type":      schema.String("Project type, e.g. system development or business process improvement"),
		"project_phase":     schema.String("Current project phase"),
		"identified_issues": schema.Strings("Issues already identified"),
		"constraints": schema.Object(map[string]*schema.JSONSchema{
			"budget":    schema.String("Budget constraint"),
			"timeline":  schema.String("Schedule constraint"),
			"resources": schema.String("Resource constraint"),
			"technical": schema.String("Technical constraint"),
		}),
	}, "project_context", "project_type", "project_phase")

	output := schema.Object(map[string]*schema.JSONSchema{
		"risk_register": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"risk_id":           schema.String("Risk identifier such as R001"),
			"category":          schema.Enum("", "technical", "management", "commercial", "external", "organizational"),
			"risk_description":  schema.String("What could happen"),
			"trigger_events":    schema.Strings("Events that would trigger the risk"),
			"probability":       schema.Enum("", likelihoodLevels...),
			"impact":            schema.Enum("", likelihoodLevels...),
			"risk_score":        schema.Number("probability x impact on a 1-25 scale"),
			"affected_areas":    schema.Strings("Affected areas"),
			"response_strategy": schema.Enum("", "avoid", "transfer", "mitigate", "accept"),
			"mitigation_actions": schema.Array(schema.Object(map[string]*schema.JSONSchema{
				"action":        schema.String("Mitigation action"),
				"owner":         schema.String("Owner"),
				"deadline":      schema.String("Deadline"),
				"cost_estimate": schema.String("Estimated cost"),
			}, "action", "owner", "deadline"), "Mitigation actions"),
			"contingency_plan":      schema.String("What to do if the risk occurs"),
			"residual_risk":         schema.String("Risk remaining after mitigation"),
			"monitoring_indicators": schema.Strings("Indicators to watch"),
		}), "Risk register"),
		"risk_matrix": schema.Object(map[string]*schema.JSONSchema{
			"critical_risks": schema.Strings("Risk ids scored 20-25"),
			"high_risks":     schema.Strings("Risk ids scored 15-19"),
			"medium_risks":   schema.Strings("Risk ids scored 8-14"),
			"low_risks":      schema.Strings("Risk ids scored 1-7"),
		}),
		"risk_trends": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"trend":              schema.String("Expected trend"),
			"implication":        schema.String("What it means for the project"),
			"recommended_action": schema.String("Recommended action"),
		}), "Risk trends"),
		"overall_risk_assessment": schema.Object(map[string]*schema.JSONSchema{
			"project_risk_level":  schema.Enum("", "low", "medium", "high", "critical").WithDefault("medium"),
			"key_concerns":        schema.Strings("Key concerns"),
			"success_probability": schema.Number("Estimated success probability in percent").WithDefault(70),
			"recommendations":     schema.Strings("Recommendations"),
		}),
	})

	return Definition{
		ID: RiskAnalyzerID,
		Description: "Identifies and evaluates project risks comprehensively and proposes mitigation " +
			"and contingency plans, a risk matrix and an overall risk assessment.",
		InputSchema:  input,
		OutputSchema: output,
	}
}

// NewRiskAnalyzer creates the risk-analyzer tool.
func NewRiskAnalyzer(b Backend) *LLMTool[RiskAnalyzerInput] {
	def := riskAnalyzerDefinition()
	return newLLMTool(def, riskAnalyzerPersona, temperature(0.3),
		func() RiskAnalyzerInput { return RiskAnalyzerInput{} },
		func(in RiskAnalyzerInput) string { return buildRiskAnalyzerPrompt(in, def.OutputSchema) },
		b)
}

func buildRiskAnalyzerPrompt(in RiskAnalyzerInput, output *schema.JSONSchema) string {
	var b promptBuilder
	b.line("You are an experienced risk management expert. Run a comprehensive risk analysis based on the project information below.")

	b.heading("## Project information")
	b.line("### Context")
	b.text(in.ProjectContext)
	b.line("### Project type")
	b.text(in.ProjectType)
	b.line("### Current phase")
	b.text(in.ProjectPhase)

	if len(in.IdentifiedIssues) > 0 {
		b.heading("### Known issues")
		b.numbered(in.IdentifiedIssues)
	}

	if c := in.Constraints; c != nil {
		b.heading("### Constraints")
		for _, item := range []struct{ label, value string }{
			{"Budget", c.Budget},
			{"Timeline", c.Timeline},
			{"Resources", c.Resources},
			{"Technical", c.Technical},
		} {
			if strings.TrimSpace(item.value) != "" {
				b.line("- %s: %s", item.label, item.value)
			}
		}
	}

	b.heading("## Analysis tasks")
	b.line("1. **Risk register (risk_register)**: identify potential risks per category " +
		"(technical, management, commercial, external, organizational). For each risk rate probability and impact " +
		"(very_low/low/medium/high/very_high), compute a risk score (probability x impact, 1-25), choose a response " +
		"strategy (avoid/transfer/mitigate/accept) and give mitigation actions, a contingency plan and monitoring indicators.")
	b.line("2. **Risk matrix (risk_matrix)**: classify risk ids by score. Critical 20-25 needs immediate action, " +
		"high 15-19 needs countermeasures, medium 8-14 needs monitoring, low 1-7 is acceptable.")
	b.line("3. **Risk trends (risk_trends)**: predict how the risks will change as the project progresses.")
	b.line("4. **Overall assessment (overall_risk_assessment)**: overall risk level, key concerns, " +
		"estimated probability of success and recommendations.")

	b.heading("## Common risk areas to consider")
	for _, area := range []string{
		"Scope creep", "Resource shortage", "Technical complexity", "Stakeholder expectation management",
		"Change management", "Quality problems", "Insufficient communication", "External dependencies",
		"Compliance and regulatory requirements", "Cybersecurity",
	} {
		b.line("- %s", area)
	}

	return b.finish(output)
}
