package pipeline

import (
	"context"
	"fmt"
	"strings"

	"catchup-rag-be/pkg/llm"
)

type routeDecision struct {
	Datasource string `json:"datasource"`
}

// route asks the completion gateway for a datasource tag. Gateway failure
// here is fatal for the turn; there is no retrieval to fall back on.
func (p *Pipeline) route(ctx context.Context, state *State) error {
	question := state.LatestQuery()
	if p.cfg.RouterUseHistory {
		question = routerInput(state.Messages, p.cfg.RouterHistoryTurns)
	}

	var decision routeDecision
	if err := p.llm.GenerateStructured(ctx, fmt.Sprintf(routerPrompt, question), &decision); err != nil {
		return err
	}

	switch decision.Datasource {
	case DatasourceChitchat:
		state.Datasource = DatasourceChitchat
	default:
		// Anything the router could not place cleanly goes through search:
		// misrouting a technical question to chitchat is the costly mistake.
		state.Datasource = DatasourceSearch
	}

	p.logger.Printf("[ROUTER] session=%s datasource=%s", state.SessionID, state.Datasource)
	return nil
}

func routerInput(messages []llm.Message, turns int) string {
	recent := recentHistory(messages, turns)
	if recent == "" {
		return latestUserContent(messages)
	}
	return recent + "\nLatest question: " + latestUserContent(messages)
}

// chitchat answers without retrieval, persona-prompted.
func (p *Pipeline) chitchat(ctx context.Context, state *State) (string, error) {
	history := trimHistoryByTokens(state.Messages, p.cfg.HistoryTokenBudget)
	full := append([]llm.Message{{Role: "system", Content: chitchatPrompt}}, history...)
	return p.llm.Chat(ctx, full)
}

// recentHistory renders the last n turns, excluding the latest human turn,
// as "User:"/"Assistant:" lines.
func recentHistory(messages []llm.Message, n int) string {
	if len(messages) == 0 {
		return ""
	}

	// Drop the trailing human turn; it is passed separately.
	upto := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			upto = i
			break
		}
	}

	window := messages[:upto]
	if len(window) > n {
		window = window[len(window)-n:]
	}

	var lines []string
	for _, m := range window {
		switch m.Role {
		case "user":
			lines = append(lines, "User: "+m.Content)
		case "assistant":
			lines = append(lines, "Assistant: "+m.Content)
		}
	}
	return strings.Join(lines, "\n")
}

func latestUserContent(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
