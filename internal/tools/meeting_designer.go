package tools

import (
	"strings"

	"github.com/dileep-u-k/pmo-assistant/internal/schema"
)

// MeetingDesignerID is the registry id of the meeting structure tool.
const MeetingDesignerID = "meeting-designer"

const meetingDesignerPersona = "You are a specialist in effective meeting design and communication planning. " +
	"You design the minimum set of meetings that gives a project the maximum effect."

const defaultMaxMeetingMinutes = 60

// MeetingPreferences are the optional constraints on meeting design.
type MeetingPreferences struct {
	MaxDuration    float64  `json:"max_duration,omitempty"`
	PreferredDays  []string `json:"preferred_days,omitempty"`
	RemoteFriendly bool     `json:"remote_friendly,omitempty"`
}

// MeetingDesignerInput is the input of the meeting-designer tool.
type MeetingDesignerInput struct {
	ProjectPhase            string              `json:"project_phase"`
	ProjectDuration         string              `json:"project_duration"`
	TeamSize                float64             `json:"team_size"`
	Stakeholders            []string            `json:"stakeholders,omitempty"`
	CommunicationChallenges []string            `json:"communication_challenges,omitempty"`
	MeetingPreferences      *MeetingPreferences `json:"meeting_preferences,omitempty"`
}

func meetingDesignerDefinition() Definition {
	input := schema.Object(map[string]*schema.JSONSchema{
		"project_phase":            schema.String("Project phase, e.g. launch, planning, execution, closing"),
		"project_duration":         schema.String("Project duration"),
		"team_size":                schema.Number("Number of team members"),
		"stakeholders":             schema.Strings("Key stakeholders"),
		"communication_challenges": schema.Strings("Known communication problems"),
		"meeting_preferences": schema.Object(map[string]*schema.JSONSchema{
			"max_duration":    schema.Number("Maximum meeting length in minutes"),
			"preferred_days":  schema.Strings("Preferred weekdays"),
			"remote_friendly": schema.Boolean("Whether remote participation must be supported"),
		}),
	}, "project_phase", "project_duration", "team_size")

	output := schema.Object(map[string]*schema.JSONSchema{
		"meeting_structure": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"meeting_type": schema.String("Meeting type"),
			"purpose":      schema.String("Purpose"),
			"frequency":    schema.String("Frequency"),
			"duration":     schema.Number("Length in minutes"),
			"participants": schema.Object(map[string]*schema.JSONSchema{
				"required":    schema.Strings("Required participants"),
				"optional":    schema.Strings("Optional participants"),
				"facilitator": schema.String("Facilitator"),
			}),
			"agenda_template": schema.Array(schema.Object(map[string]*schema.JSONSchema{
				"topic":           schema.String("Topic"),
				"time_allocation": schema.String("Time allocation"),
				"owner":           schema.String("Owner"),
			}), "Agenda template"),
			"deliverables":    schema.Strings("Meeting outputs"),
			"success_metrics": schema.Strings("How the meeting's effect is measured"),
			"tools_required":  schema.Strings("Tools and equipment"),
		}), "Meeting structure"),
		"communication_plan": schema.Object(map[string]*schema.JSONSchema{
			"channels": schema.Array(schema.Object(map[string]*schema.JSONSchema{
				"channel":   schema.String("Channel"),
				"purpose":   schema.String("Purpose"),
				"frequency": schema.String("Frequency"),
			}), "Channels"),
			"escalation_path":     schema.Strings("Escalation path"),
			"reporting_structure": schema.String("Reporting structure"),
		}),
		"meeting_calendar": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"week": schema.Number("Week number"),
			"meetings": schema.Array(schema.Object(map[string]*schema.JSONSchema{
				"type": schema.String("Meeting type"),
				"day":  schema.String("Day"),
				"time": schema.String("Time"),
			}), "Meetings that week"),
		}), "Calendar for the first four weeks"),
		"efficiency_tips": schema.Strings("Tips for running the meetings efficiently"),
	})

	return Definition{
		ID: MeetingDesignerID,
		Description: "Designs the meeting structure and communication plan suited to the project phase, " +
			"with a meeting calendar and efficiency tips.",
		InputSchema:  input,
		OutputSchema: output,
	}
}

// NewMeetingDesigner creates the meeting-designer tool. Like the milestone
// proposer it sends no temperature.
func NewMeetingDesigner(b Backend) *LLMTool[MeetingDesignerInput] {
	def := meetingDesignerDefinition()
	return newLLMTool(def, meetingDesignerPersona, nil,
		func() MeetingDesignerInput { return MeetingDesignerInput{} },
		func(in MeetingDesignerInput) string { return buildMeetingDesignerPrompt(in, def.OutputSchema) },
		b)
}

func buildMeetingDesignerPrompt(in MeetingDesignerInput, output *schema.JSONSchema) string {
	var b promptBuilder
	b.line("You are an experienced PMO expert. Based on the information below, design an efficient meeting " +
		"structure and communication plan.")

	b.heading("## Project information")
	b.line("- Phase: %s", in.ProjectPhase)
	b.line("- Duration: %s", in.ProjectDuration)
	b.line("- Team size: %g people", in.TeamSize)
	if len(in.Stakeholders) > 0 {
		b.line("- Key stakeholders: %s", strings.Join(in.Stakeholders, ", "))
	}
	if len(in.CommunicationChallenges) > 0 {
		b.line("- Communication challenges: %s", strings.Join(in.CommunicationChallenges, ", "))
	}

	if p := in.MeetingPreferences; p != nil {
		maxDuration := p.MaxDuration
		if maxDuration <= 0 {
			maxDuration = defaultMaxMeetingMinutes
		}
		days := "not specified"
		if len(p.PreferredDays) > 0 {
			days = strings.Join(p.PreferredDays, ", ")
		}
		remote := "not required"
		if p.RemoteFriendly {
			remote = "required"
		}
		b.heading("## Meeting preferences")
		b.line("- Maximum length: %g minutes", maxDuration)
		b.line("- Preferred days: %s", days)
		b.line("- Remote participation: %s", remote)
	}

	b.heading("## Design tasks")
	b.line("1. **Meeting structure (meeting_structure)**: meetings suited to the phase, each with type, purpose, " +
		"frequency, recommended length, required and optional participants, facilitator, a standard agenda, " +
		"outputs, success metrics and the tools needed. Consider: kickoff, regular progress meeting, " +
		"steering committee, technical review, risk review, retrospective, stakeholder report.")
	b.line("2. **Communication plan (communication_plan)**: channels, escalation path and reporting structure.")
	b.line("3. **Meeting calendar (meeting_calendar)**: a concrete schedule for the first four weeks.")
	b.line("4. **Efficiency tips (efficiency_tips)**: concrete advice for running the meetings efficiently.")

	b.heading("## Notes")
	b.line("- Set meeting frequency according to the project phase.")
	b.line("- Make the best use of participants' time.")
	if p := in.MeetingPreferences; p != nil && p.RemoteFriendly {
		b.line("- Take care of remote participants.")
	}
	if len(in.CommunicationChallenges) > 0 {
		b.line("- Include countermeasures for the communication challenges.")
	}

	return b.finish(output)
}
