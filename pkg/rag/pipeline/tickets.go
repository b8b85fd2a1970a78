package pipeline

import (
	"context"

	"catchup-rag-be/pkg/rag/result"
	"catchup-rag-be/pkg/searchengine"
)

// relatedTickets runs the independent side search against the ticket
// indices and sends the top results on ch. It always sends exactly once;
// any failure degrades to an empty list, never to a blocked receiver. The
// engine's native ranking order is kept, no rerank pass.
func (p *Pipeline) relatedTickets(ctx context.Context, query string, indexList []string, ch chan<- result.List) {
	tickets := result.List{}
	defer func() { ch <- tickets }()

	indices := resolveIndices(PlanJiraIssue, indexList)
	if len(indices) == 0 {
		return
	}

	var requests []searchengine.SearchRequest
	for _, index := range indices {
		requests = append(requests, searchengine.SearchRequest{
			IndexName:     index,
			Query:         query,
			K:             p.cfg.RelatedTicketsTopN,
			SemanticRatio: p.cfg.SemanticRatio,
		})
	}

	pages, err := p.search.MultiSearch(ctx, requests)
	if err != nil {
		p.logger.Printf("[TICKETS] side search failed: %v", err)
		return
	}

	for _, page := range pages {
		for _, hit := range page {
			parsed, err := result.FromHit(hit)
			if err != nil {
				continue
			}
			if _, ok := parsed.(*result.TicketSearchResult); !ok {
				continue
			}
			tickets = append(tickets, parsed)
			if len(tickets) >= p.cfg.RelatedTicketsTopN {
				return
			}
		}
	}
}
