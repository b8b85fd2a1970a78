package pipeline

import (
	"context"
	"fmt"
	"time"

	"catchup-rag-be/pkg/llm"
	"catchup-rag-be/pkg/rag/result"
)

// generate produces the final answer from the trimmed history and the
// rendered context, then extracts citations and builds the response sources.
// A ping ticker keeps the stream alive while the gateway is busy.
func (p *Pipeline) generate(ctx context.Context, state *State, emitter Emitter) (string, []result.ResponseSource, error) {
	contextBlock := renderContextBlock(state.RetrievedDocs)
	system := llm.Message{Role: "system", Content: fmt.Sprintf(generateSystemPrompt, contextBlock)}
	history := trimHistoryByTokens(state.Messages, p.cfg.HistoryTokenBudget)
	full := append([]llm.Message{system}, history...)

	stopPing := p.startPings(ctx, emitter)
	answer, err := p.llm.Chat(ctx, full)
	stopPing()
	if err != nil {
		return "", nil, fmt.Errorf("generate answer: %w", err)
	}

	cited := ExtractCitations(answer, len(state.RetrievedDocs))
	sources := SelectSources(state.RetrievedDocs, cited, p.cfg.RerankThreshold, p.cfg.TargetSourceCount)
	p.logger.Printf("[GENERATE] session=%s cited=%d sources=%d", state.SessionID, len(cited), len(sources))
	return answer, sources, nil
}

// startPings emits a ping every second until the returned stop function is
// called, so long-lived connections survive slow generations.
func (p *Pipeline) startPings(ctx context.Context, emitter Emitter) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				emitter.Emit(Event{Type: EventPing, Node: NodeGenerate})
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}
