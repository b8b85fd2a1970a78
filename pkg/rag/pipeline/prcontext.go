package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"catchup-rag-be/pkg/rag/result"
)

// managePRContext enriches pull-request results with file-level diff and
// review-comment context. Zero PRs is a no-op; exactly one is auto-selected;
// more than one suspends the turn for a user selection. The suspension is
// durable: state is checkpointed before the interrupt surfaces, so a resume
// may happen in a different process.
func (p *Pipeline) managePRContext(ctx context.Context, state *State, emitter Emitter) (*InterruptError, error) {
	prs := pullRequestDocs(state.RetrievedDocs)

	switch len(prs) {
	case 0:
		return nil, nil
	case 1:
		pr := prs[0]
		pr.FileContext = p.github.GetPRContext(ctx, pr.Owner, pr.RepoName, pr.PRNumber)
		return nil, nil
	}

	candidates := make([]result.PRCandidate, 0, len(prs))
	for _, pr := range prs {
		candidates = append(candidates, result.CandidateFromPullRequest(pr))
	}

	state.PendingNode = NodePRContext
	state.PRCandidates = candidates
	if p.store == nil {
		return nil, fmt.Errorf("cannot suspend session %s: no checkpoint store configured", state.SessionID)
	}
	if err := p.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("checkpoint before suspension: %w", err)
	}

	interrupt := &InterruptError{Node: NodePRContext, Candidates: candidates}
	emitter.Emit(Event{Type: EventInterrupt, Node: NodePRContext, Candidates: candidates})
	return interrupt, nil
}

// applyPRSelection intersects the user's selection against the retrieved PR
// results by number and fetches diff context for each match in parallel. An
// empty selection passes the docs through untouched.
func (p *Pipeline) applyPRSelection(ctx context.Context, state *State, selection []result.PRSelection) error {
	if len(selection) == 0 {
		return nil
	}

	selected := make(map[int]bool, len(selection))
	for _, sel := range selection {
		selected[sel.PRNumber] = true
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, pr := range pullRequestDocs(state.RetrievedDocs) {
		if !selected[pr.PRNumber] {
			continue
		}
		pr := pr
		g.Go(func() error {
			pr.FileContext = p.github.GetPRContext(gctx, pr.Owner, pr.RepoName, pr.PRNumber)
			return nil
		})
	}
	return g.Wait()
}

func pullRequestDocs(docs result.List) []*result.PullRequestSearchResult {
	var prs []*result.PullRequestSearchResult
	for _, doc := range docs {
		if pr, ok := doc.(*result.PullRequestSearchResult); ok {
			prs = append(prs, pr)
		}
	}
	return prs
}
