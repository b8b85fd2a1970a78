package pipeline

import (
	"context"
	"fmt"
)

type searchPlan struct {
	Queries []PlannedQuery `json:"queries"`
}

var validPlanDatasources = map[string]bool{
	PlanCodebase:    true,
	PlanGithubIssue: true,
	PlanPRHistory:   true,
	PlanJiraIssue:   true,
}

// plan decomposes the rewritten query into per-datasource sub-queries.
// An empty or unusable plan falls back to a single codebase query so the
// retriever always has work.
func (p *Pipeline) plan(ctx context.Context, state *State) error {
	var planned searchPlan
	if err := p.llm.GenerateStructured(ctx, fmt.Sprintf(plannerPrompt, state.CurrentQuery), &planned); err != nil {
		return err
	}

	queries := make([]PlannedQuery, 0, len(planned.Queries))
	for _, q := range planned.Queries {
		if !validPlanDatasources[q.Datasource] || q.Query == "" {
			p.logger.Printf("[PLAN] session=%s dropping invalid entry datasource=%q", state.SessionID, q.Datasource)
			continue
		}
		queries = append(queries, q)
	}

	if len(queries) == 0 {
		queries = []PlannedQuery{{Datasource: PlanCodebase, Query: state.CurrentQuery}}
	}

	state.SearchQueries = queries
	p.logger.Printf("[PLAN] session=%s queries=%d", state.SessionID, len(queries))
	return nil
}
