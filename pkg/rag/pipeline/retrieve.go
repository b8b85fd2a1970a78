package pipeline

import (
	"context"
	"strings"

	"catchup-rag-be/pkg/rag/result"
	"catchup-rag-be/pkg/searchengine"
)

// datasourceSuffixes maps each planner datasource onto the index-name
// suffixes it may search. Resolution is a substring match against the
// session's permitted index list.
var datasourceSuffixes = map[string][]string{
	PlanCodebase:    {"codebase", "code"},
	PlanGithubIssue: {"issues", "issue"},
	PlanPRHistory:   {"prs", "pulls"},
	PlanJiraIssue:   {"jira", "tickets"},
}

// resolveIndices returns the concrete index names a datasource may search.
func resolveIndices(datasource string, indexList []string) []string {
	suffixes := datasourceSuffixes[datasource]
	var resolved []string
	for _, index := range indexList {
		for _, suffix := range suffixes {
			if strings.Contains(index, suffix) {
				resolved = append(resolved, index)
				break
			}
		}
	}
	return resolved
}

// perIndexBudget spreads the global retrieval budget across T resolved
// indices, never dipping below the per-index floor.
func perIndexBudget(totalIndices, minK, globalBudget int) int {
	if totalIndices <= 0 {
		return minK
	}
	k := globalBudget / totalIndices
	if k < minK {
		k = minK
	}
	return k
}

// retrieve fans the plan out across resolved indices and parses raw hits
// into typed results. Everything here degrades rather than fails: plans
// with no matching index are dropped, unparsable hits are skipped, and a
// gateway failure leaves retrieved_docs empty for the grader to flag.
func (p *Pipeline) retrieve(ctx context.Context, state *State) {
	type resolvedPlan struct {
		query   string
		indices []string
	}

	var (
		plans        []resolvedPlan
		totalIndices int
	)
	for _, planned := range state.SearchQueries {
		indices := resolveIndices(planned.Datasource, state.IndexList)
		if len(indices) == 0 {
			p.logger.Printf("[RETRIEVE] session=%s no index for datasource=%s, dropping plan", state.SessionID, planned.Datasource)
			continue
		}
		plans = append(plans, resolvedPlan{query: planned.Query, indices: indices})
		totalIndices += len(indices)
	}

	state.RetrievedDocs = nil
	if totalIndices == 0 {
		p.logger.Printf("[RETRIEVE] session=%s no plan resolved any index", state.SessionID)
		return
	}

	k := perIndexBudget(totalIndices, p.cfg.MinKPerIndex, p.cfg.GlobalBudget)

	var requests []searchengine.SearchRequest
	for _, plan := range plans {
		for _, index := range plan.indices {
			requests = append(requests, searchengine.SearchRequest{
				IndexName:     index,
				Query:         plan.query,
				K:             k,
				SemanticRatio: p.cfg.SemanticRatio,
			})
		}
	}

	pages, err := p.search.MultiSearch(ctx, requests)
	if err != nil {
		p.logger.Printf("[RETRIEVE] session=%s search gateway failed: %v", state.SessionID, err)
		return
	}

	var docs result.List
	for _, page := range pages {
		for _, hit := range page {
			parsed, err := result.FromHit(hit)
			if err != nil {
				p.logger.Printf("[RETRIEVE] session=%s dropping hit: %v", state.SessionID, err)
				continue
			}
			docs = append(docs, parsed)
		}
	}

	state.RetrievedDocs = docs
	p.logger.Printf("[RETRIEVE] session=%s indices=%d k=%d docs=%d", state.SessionID, totalIndices, k, len(docs))
}
