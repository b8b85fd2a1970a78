package pipeline

import (
	"context"
	"sort"
	"strconv"

	"catchup-rag-be/pkg/rag/result"
	"catchup-rag-be/pkg/rerank"
)

// rerankAndDiversify scores the retrieved candidates with the rerank
// gateway, attaches scores in place, and keeps a diversity-constrained
// top-k. A gateway failure keeps the engine's native ordering.
func (p *Pipeline) rerankAndDiversify(ctx context.Context, state *State) {
	docs := state.RetrievedDocs
	if len(docs) == 0 {
		return
	}

	// Positional IDs: hit IDs are only unique within one index.
	candidates := make([]rerank.Document, len(docs))
	for i, doc := range docs {
		candidates[i] = rerank.Document{
			ID:   strconv.Itoa(i),
			Text: doc.Text(),
		}
	}

	scores, err := p.rerank.Rerank(ctx, state.CurrentQuery, candidates, p.cfg.RerankTopN)
	if err != nil {
		p.logger.Printf("[RERANK] session=%s rerank gateway failed, keeping native order: %v", state.SessionID, err)
	} else {
		for _, score := range scores {
			pos, convErr := strconv.Atoi(score.ID)
			if convErr != nil || pos < 0 || pos >= len(docs) {
				continue
			}
			docs[pos].SetScore(score.RelevanceScore)
		}
	}

	sortByScore(docs)
	state.RetrievedDocs = diverseTopK(docs, p.cfg.TotalK, p.cfg.MinGuarantee)
	p.logger.Printf("[RERANK] session=%s kept=%d of %d", state.SessionID, len(state.RetrievedDocs), len(docs))
}

// sortByScore orders by relevance score descending; unscored candidates
// sink to the end in their original order.
func sortByScore(docs result.List) {
	sort.SliceStable(docs, func(i, j int) bool {
		si, sj := docs[i].Score(), docs[j].Score()
		switch {
		case si == nil:
			return false
		case sj == nil:
			return true
		default:
			return *si > *sj
		}
	})
}
