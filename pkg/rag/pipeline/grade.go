package pipeline

import (
	"context"
	"fmt"
	"strings"

	"catchup-rag-be/pkg/rag/result"
)

type gradeVerdict struct {
	BinaryScore string `json:"binary_score"`
}

// grade decides whether the retrieved context can answer the question. The
// retry ceiling short-circuits to max_retries without a gateway call so the
// rewrite loop always terminates; empty context is bad without a call.
func (p *Pipeline) grade(ctx context.Context, state *State) error {
	if state.RetryCount >= p.cfg.MaxRetries {
		p.logger.Printf("[INFO] session %s hit retry ceiling %d, forcing generation", state.SessionID, p.cfg.MaxRetries)
		state.GradeStatus = GradeMaxRetries
		return nil
	}

	contextBlock := renderContextBlock(state.RetrievedDocs)
	if strings.TrimSpace(contextBlock) == "" {
		state.GradeStatus = GradeBad
		return nil
	}

	var verdict gradeVerdict
	prompt := fmt.Sprintf(gradePrompt, state.CurrentQuery, contextBlock)
	if err := p.llm.GenerateStructured(ctx, prompt, &verdict); err != nil {
		return fmt.Errorf("grade documents: %w", err)
	}

	if strings.EqualFold(strings.TrimSpace(verdict.BinaryScore), "yes") {
		state.GradeStatus = GradeGood
	} else {
		state.GradeStatus = GradeBad
	}
	return nil
}

// renderContextBlock joins each document's rendered context in retrieval
// order. Index n here is the same n the generator cites as [n].
func renderContextBlock(docs result.List) string {
	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		parts = append(parts, doc.RenderContext(i+1))
	}
	return strings.Join(parts, "\n\n")
}
