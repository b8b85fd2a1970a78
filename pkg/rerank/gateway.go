package rerank

import "context"

// Document is one rerank candidate. ID lets callers reattach scores to
// their own typed objects since the gateway does not preserve input order.
type Document struct {
	ID   string
	Text string
}

// Score pairs a candidate ID with its cross-encoder relevance.
type Score struct {
	ID             string
	RelevanceScore float64
}

// Gateway scores a (query, candidates) pair with a cross-encoder model.
type Gateway interface {
	Rerank(ctx context.Context, query string, docs []Document, topN int) ([]Score, error)
}
