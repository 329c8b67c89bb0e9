package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptsAreDeterministic(t *testing.T) {
	t.Parallel()

	risk := NewRiskAnalyzer(Backend{})
	in := RiskAnalyzerInput{
		ProjectContext:   "ERP migration",
		ProjectType:      "system development",
		ProjectPhase:     "planning",
		IdentifiedIssues: []string{"legacy data quality", "vendor lock-in"},
		Constraints:      &RiskConstraints{Budget: "10M JPY", Technical: "on-prem only"},
	}
	first := risk.Prompt(in)
	for i := 0; i < 50; i++ {
		require.Equal(t, first, risk.Prompt(in))
	}
}

func TestRiskAnalyzerPromptSections(t *testing.T) {
	t.Parallel()

	risk := NewRiskAnalyzer(Backend{})

	bare := risk.Prompt(RiskAnalyzerInput{ProjectContext: "ctx", ProjectType: "type", ProjectPhase: "phase"})
	assert.Contains(t, bare, "ctx")
	assert.NotContains(t, bare, "### Known issues")
	assert.NotContains(t, bare, "### Constraints")
	assert.Contains(t, bare, `"success_probability": 70`)

	full := risk.Prompt(RiskAnalyzerInput{
		ProjectContext: "ctx", ProjectType: "type", ProjectPhase: "phase",
		IdentifiedIssues: []string{"first", "second"},
		Constraints:      &RiskConstraints{Timeline: "Q3"},
	})
	assert.Contains(t, full, "1. first\n2. second")
	assert.Contains(t, full, "- Timeline: Q3")
	assert.NotContains(t, full, "- Budget:")
}

func TestDocumentParserPerspective(t *testing.T) {
	t.Parallel()

	parser := NewDocumentParser(Backend{})

	in := NewDocumentParserInput()
	in.Content = "minutes"
	with := parser.Prompt(in)
	assert.Contains(t, with, "(wbs_structure)")
	assert.Contains(t, with, "(missing_information)")

	in.PMOPerspective = false
	without := parser.Prompt(in)
	assert.NotContains(t, without, "5. **WBS")
	assert.NotContains(t, without, "7. **Missing information")
	assert.Contains(t, without, "4. **Stakeholders")
}

func TestDocumentParserInputDefaults(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{body: chatBody(t, `{}`)}
	r := newTestRegistry(t, stub)

	_, err := r.Execute(context.Background(), DocumentParserID, json.RawMessage(`{"content":"notes"}`))
	require.NoError(t, err)
	prompt := stub.last().Prompt
	assert.Contains(t, prompt, "(format: text)")
	assert.Contains(t, prompt, "(wbs_structure)")

	_, err = r.Execute(context.Background(), DocumentParserID, json.RawMessage(`{"content":"notes","format":"markdown","pmo_perspective":false}`))
	require.NoError(t, err)
	prompt = stub.last().Prompt
	assert.Contains(t, prompt, "(format: markdown)")
	assert.NotContains(t, prompt, "5. **WBS")
}

func TestMeetingDesignerPreferences(t *testing.T) {
	t.Parallel()

	designer := NewMeetingDesigner(Backend{})
	base := MeetingDesignerInput{ProjectPhase: "launch", ProjectDuration: "6 months", TeamSize: 8}

	assert.NotContains(t, designer.Prompt(base), "## Meeting preferences")

	base.MeetingPreferences = &MeetingPreferences{}
	prompt := designer.Prompt(base)
	assert.Contains(t, prompt, "- Maximum length: 60 minutes")
	assert.Contains(t, prompt, "- Preferred days: not specified")
	assert.Contains(t, prompt, "- Remote participation: not required")
	assert.Contains(t, prompt, "- Team size: 8 people")

	base.MeetingPreferences = &MeetingPreferences{MaxDuration: 30, PreferredDays: []string{"Tue", "Thu"}, RemoteFriendly: true}
	prompt = designer.Prompt(base)
	assert.Contains(t, prompt, "- Maximum length: 30 minutes")
	assert.Contains(t, prompt, "- Preferred days: Tue, Thu")
	assert.Contains(t, prompt, "- Take care of remote participants.")
}

func TestOptionalFieldsOmitted(t *testing.T) {
	t.Parallel()

	goal := NewGoalSetting(Backend{}).Prompt(GoalSettingInput{DiscussionPoints: []string{"scope"}})
	assert.NotContains(t, goal, "## Project context")
	assert.NotContains(t, goal, "## Timeline")

	milestone := NewMilestoneProposer(Backend{}).Prompt(MilestoneProposerInput{ProjectDuration: "1y", ProjectType: "t", ProjectGoal: "g"})
	assert.NotContains(t, milestone, "- Constraints:")

	plan := NewActionPlanGenerator(Backend{}).Prompt(ActionPlanGeneratorInput{
		ProjectGoal: "g",
		Milestones:  []PlannedMilestone{{Name: "design", Deadline: "2026-01-31"}},
	})
	assert.Contains(t, plan, "1. design - deadline: 2026-01-31")
	assert.NotContains(t, plan, "### Team members")
	assert.NotContains(t, plan, "priority areas a high priority")

	stake := NewStakeholderIdentifier(Backend{}).Prompt(StakeholderIdentifierInput{ProjectGoal: "g", KeyActivities: []string{"a"}})
	assert.NotContains(t, stake, "### Scope")
	assert.NotContains(t, stake, "### Organization context")
}

func TestUserTextIsNotAFormatString(t *testing.T) {
	t.Parallel()

	prompt := NewRiskAnalyzer(Backend{}).Prompt(RiskAnalyzerInput{ProjectContext: "100%s done", ProjectType: "t", ProjectPhase: "p"})
	assert.Contains(t, prompt, "100%s done")
	assert.False(t, strings.Contains(prompt, "%!"))
}

func TestPromptEndsWithOutputShape(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t, &stubCompleter{})
	prompts := map[string]string{
		DocumentParserID:        NewDocumentParser(Backend{}).Prompt(DocumentParserInput{Content: "c"}),
		GoalSettingID:           NewGoalSetting(Backend{}).Prompt(GoalSettingInput{}),
		StakeholderIdentifierID: NewStakeholderIdentifier(Backend{}).Prompt(StakeholderIdentifierInput{}),
		MilestoneProposerID:     NewMilestoneProposer(Backend{}).Prompt(MilestoneProposerInput{}),
		ActionPlanGeneratorID:   NewActionPlanGenerator(Backend{}).Prompt(ActionPlanGeneratorInput{}),
		MeetingDesignerID:       NewMeetingDesigner(Backend{}).Prompt(MeetingDesignerInput{}),
		RiskAnalyzerID:          NewRiskAnalyzer(Backend{}).Prompt(RiskAnalyzerInput{}),
	}
	for id, prompt := range prompts {
		def, ok := r.Lookup(id)
		require.True(t, ok, id)
		assert.True(t, strings.HasSuffix(prompt, def.OutputSchema.Skeleton()+"\n"), id)
	}
}
