package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// rewrite turns the latest question into one self-contained search query.
// It is the only node re-entered by the grade retry loop; each entry
// consumes one retry.
func (p *Pipeline) rewrite(ctx context.Context, state *State) error {
	history := recentHistory(state.Messages, p.cfg.RewriteHistoryTurns)
	question := state.LatestQuery()

	response, err := p.llm.Generate(ctx, fmt.Sprintf(rewritePrompt, history, question))
	if err != nil {
		return err
	}

	state.CurrentQuery = strings.TrimSpace(response)
	if state.CurrentQuery == "" {
		state.CurrentQuery = question
	}
	state.RetryCount++

	p.logger.Printf("[REWRITE] session=%s try=%d query=%q", state.SessionID, state.RetryCount, state.CurrentQuery)
	return nil
}
