package searchengine

import "context"

// SearchRequest targets one concrete index with one query.
type SearchRequest struct {
	IndexName     string
	Query         string
	K             int
	SemanticRatio float64
	Filter        string
}

// Hit is one ranked document returned by the engine. Metadata carries the
// source-type discriminator plus variant-specific fields; typed parsing
// happens downstream in pkg/rag/result.
type Hit struct {
	Text         string
	Metadata     map[string]any
	RankingScore float64
}

// Gateway executes hybrid (semantic+keyword) searches against named indices.
type Gateway interface {
	// Search runs a single query against a single index.
	Search(ctx context.Context, req SearchRequest) ([]Hit, error)

	// MultiSearch batches several queries in one round trip. The outer slice
	// is position-aligned with the request slice.
	MultiSearch(ctx context.Context, reqs []SearchRequest) ([][]Hit, error)
}
