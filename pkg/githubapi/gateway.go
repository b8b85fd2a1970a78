package githubapi

import (
	"context"

	"catchup-rag-be/pkg/rag/result"
)

// Gateway fetches per-file diff and review-comment context for one pull
// request. Implementations must degrade to an empty list on upstream
// failure; a missing diff never fails a turn.
type Gateway interface {
	GetPRContext(ctx context.Context, owner, repo string, prNumber int) []result.PRFileContext
}
