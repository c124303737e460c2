package orchestrator

import (
	"context"
	"time"

	"github.com/hyperifyio/veritas/internal/llm"
	"github.com/hyperifyio/veritas/internal/prompts"
)

// OverviewTimeout bounds the Overview LLM call (spec §4.6's 60s work-call
// budget applies to every non-synthesis stage).
const OverviewTimeout = 60 * time.Second

// RunOverview produces a session title and the ten diversified search
// queries that seed the setup pipeline (spec §4.5, §6 /research/overview).
func (o *Orchestrator) RunOverview(ctx context.Context, userQuery string) (prompts.Overview, error) {
	system, user := prompts.BuildOverview(userQuery, o.Language)
	resp, err := o.Gateway.Complete(ctx, o.WorkModel, []llm.Message{
		{Role: "system", Content: system}, {Role: "user", Content: user},
	}, llm.Options{Timeout: OverviewTimeout})
	if err != nil {
		return prompts.Overview{}, err
	}
	return prompts.ParseOverview(resp.Content), nil
}

// RunClarify asks whether the scraped overview content raises any focusing
// questions (spec §4.5, §6 setup pipeline's clarification step). The raw
// response is returned verbatim for the UI; callers needing a discrete list
// can run prompts.ExtractClarifyingQuestions on it (spec §9 Open Question:
// the original pipeline never formally extracts this list either).
func (o *Orchestrator) RunClarify(ctx context.Context, overviewContent string) (string, error) {
	system, user := prompts.BuildClarify(overviewContent, o.Language)
	resp, err := o.Gateway.Complete(ctx, o.WorkModel, []llm.Message{
		{Role: "system", Content: system}, {Role: "user", Content: user},
	}, llm.Options{Timeout: OverviewTimeout})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// PlanFlat calls the flat-mode plan prompt and parses the resulting ordered
// points (spec §4.5, §6 /research/plan).
func (o *Orchestrator) PlanFlat(ctx context.Context, userQuery string, clarificationQAs []string) ([]string, error) {
	system, user := prompts.BuildPlanFlat(userQuery, clarificationQAs, o.Language)
	resp, err := o.Gateway.Complete(ctx, o.WorkModel, []llm.Message{
		{Role: "system", Content: system}, {Role: "user", Content: user},
	}, llm.Options{Timeout: OverviewTimeout})
	if err != nil {
		return nil, err
	}
	return prompts.ParsePlanFlat(resp.Content), nil
}

// PlanAcademic calls the academic-mode plan prompt and parses the resulting
// area->points mapping (spec §4.5, §6 /research/plan with academic_mode).
func (o *Orchestrator) PlanAcademic(ctx context.Context, userQuery string, clarificationQAs []string) ([]struct {
	Title  string
	Points []string
}, error) {
	system, user := prompts.BuildPlanAcademic(userQuery, clarificationQAs, o.Language)
	resp, err := o.Gateway.Complete(ctx, o.WorkModel, []llm.Message{
		{Role: "system", Content: system}, {Role: "user", Content: user},
	}, llm.Options{Timeout: OverviewTimeout})
	if err != nil {
		return nil, err
	}
	return prompts.ParsePlanAcademic(resp.Content), nil
}
