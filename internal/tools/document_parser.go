package tools

import (
	"github.com/dileep-u-k/pmo-assistant/internal/schema"
)

// DocumentParserID is the registry id of the document parsing tool.
const DocumentParserID = "document-parser"

const documentParserPersona = "You are an experienced PMO expert. Use your project management knowledge " +
	"to extract the important information from documents and structure it."

// Document formats accepted by the document-parser tool.
const (
	FormatText           = "text"
	FormatMarkdown       = "markdown"
	FormatMeetingMinutes = "meeting_minutes"
)

// DocumentParserInput is the input of the document-parser tool.
type DocumentParserInput struct {
	Content string `json:"content"`
	Format  string `json:"format"`
	// PMOPerspective adds WBS, risk and missing-information extraction.
	PMOPerspective bool `json:"pmo_perspective"`
}

// NewDocumentParserInput returns an input with the documented defaults.
func NewDocumentParserInput() DocumentParserInput {
	return DocumentParserInput{Format: FormatText, PMOPerspective: true}
}

var threeLevel = []string{"低", "中", "高"}

func documentParserDefinition() Definition {
	input := schema.Object(map[string]*schema.JSONSchema{
		"content": schema.String("Document text to analyze: meeting minutes, proposals, plans"),
		"format": schema.Enum("Document format", FormatText, FormatMarkdown, FormatMeetingMinutes).
			WithDefault(FormatText),
		"pmo_perspective": schema.Boolean("Also extract WBS, risks and missing information").WithDefault(true),
	}, "content")

	output := schema.Object(map[string]*schema.JSONSchema{
		"key_points": schema.Strings("Main topics discussed"),
		"decisions":  schema.Strings("Decisions that were made"),
		"action_items": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"task":     schema.String("Task"),
			"owner":    schema.String("Owner"),
			"deadline": schema.String("Deadline"),
		}), "Action items"),
		"stakeholders": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"name": schema.String("Name or title"),
			"role": schema.String("Role in the project"),
		}), "Stakeholders"),
		"wbs_structure": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"level":     schema.Number("WBS level"),
			"task":      schema.String("Task"),
			"sub_tasks": schema.Strings("Sub tasks"),
		}), "Work breakdown"),
		"risks": schema.Array(schema.Object(map[string]*schema.JSONSchema{
			"risk":        schema.String("Risk"),
			"probability": schema.Enum("", threeLevel...),
			"impact":      schema.Enum("", threeLevel...),
			"mitigation":  schema.String("Mitigation"),
		}), "Risks"),
		"missing_information": schema.Strings("Information needed to start the project that is missing"),
	})

	return Definition{
		ID: DocumentParserID,
		Description: "Parses meeting minutes and documents and extracts key points, decisions, action items " +
			"and stakeholders, plus WBS, risks and missing information from a PMO perspective.",
		InputSchema:  input,
		OutputSchema: output,
	}
}

// NewDocumentParser creates the document-parser tool.
func NewDocumentParser(b Backend) *LLMTool[DocumentParserInput] {
	def := documentParserDefinition()
	return newLLMTool(def, documentParserPersona, temperature(0.3),
		NewDocumentParserInput,
		func(in DocumentParserInput) string { return buildDocumentParserPrompt(in, def.OutputSchema) },
		b)
}

func buildDocumentParserPrompt(in DocumentParserInput, output *schema.JSONSchema) string {
	var b promptBuilder
	b.line("You are an experienced PMO expert. Analyze the document below and extract, in structured form, " +
		"the information needed to launch the project.")

	b.heading("## Document (format: %s)", in.Format)
	b.text(in.Content)

	b.heading("## Extraction tasks")
	b.line("1. **Key points (key_points)**: the main topics and points discussed")
	b.line("2. **Decisions (decisions)**: what was clearly decided")
	b.line("3. **Action items (action_items)**: tasks with owner and deadline")
	b.line("4. **Stakeholders (stakeholders)**: names and roles of the people involved")
	if in.PMOPerspective {
		b.line("5. **WBS (wbs_structure)**: structure the project as a work breakdown")
		b.line("6. **Risks (risks)**: identify potential risks, rate probability and impact as 低/中/高 and propose mitigations")
		b.line("7. **Missing information (missing_information)**: information needed to launch the project that is missing")
	}

	b.heading("## Points of view")
	b.line("- Are the project purpose and success criteria clear?")
	b.line("- Are the required resources and organization in place?")
	b.line("- Are the timeline and milestones appropriate?")
	b.line("- Have risks and issues been considered thoroughly?")
	b.line("- Are stakeholder expectations clear?")

	return b.finish(output)
}
