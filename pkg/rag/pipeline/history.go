package pipeline

import (
	"catchup-rag-be/pkg/llm"
)

// estimateTokens approximates the token count of a message. Four characters
// per token is close enough for a trimming budget.
func estimateTokens(msg llm.Message) int {
	n := len(msg.Content) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// trimHistoryByTokens drops the oldest turns until the history fits the
// token budget. The system preamble is always kept, and the trimmed window
// always starts on a human turn so the model never sees an orphaned
// assistant reply.
func trimHistoryByTokens(messages []llm.Message, budget int) []llm.Message {
	if len(messages) == 0 {
		return nil
	}

	var system *llm.Message
	body := messages
	if messages[0].Role == "system" {
		system = &messages[0]
		body = messages[1:]
	}

	total := 0
	if system != nil {
		total += estimateTokens(*system)
	}
	start := len(body)
	for i := len(body) - 1; i >= 0; i-- {
		cost := estimateTokens(body[i])
		if total+cost > budget && start < len(body) {
			break
		}
		total += cost
		start = i
	}

	// Advance to the first human turn inside the window.
	for start < len(body) && body[start].Role != "user" {
		start++
	}

	trimmed := make([]llm.Message, 0, len(body)-start+1)
	if system != nil {
		trimmed = append(trimmed, *system)
	}
	trimmed = append(trimmed, body[start:]...)
	return trimmed
}
