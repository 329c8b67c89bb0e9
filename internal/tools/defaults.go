package tools

// Options configures the standard PMO tool set.
type Options struct {
	Backend Backend
	Brave   WebConfig
	Jina    WebConfig
	// Dify registers the dify-rag tool when non-nil.
	Dify *WebConfig
}

// NewPMORegistry builds a registry holding the seven PMO tools and the two
// web tools, plus dify-rag when configured.
func NewPMORegistry(opts Options) (*Registry, error) {
	r := NewRegistry()
	executors := []ToolExecutor{
		NewDocumentParser(opts.Backend),
		NewGoalSetting(opts.Backend),
		NewStakeholderIdentifier(opts.Backend),
		NewMilestoneProposer(opts.Backend),
		NewActionPlanGenerator(opts.Backend),
		NewMeetingDesigner(opts.Backend),
		NewRiskAnalyzer(opts.Backend),
		NewBraveSearch(opts.Brave),
		NewJinaScraper(opts.Jina),
	}
	if opts.Dify != nil {
		executors = append(executors, NewDifyRAG(*opts.Dify))
	}
	for _, e := range executors {
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}
