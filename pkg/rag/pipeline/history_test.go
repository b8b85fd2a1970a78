package pipeline

import (
	"strings"
	"testing"

	"catchup-rag-be/pkg/llm"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 1},
		{"abc", 1},
		{"abcd", 1},
		{strings.Repeat("x", 40), 10},
	}
	for _, tt := range tests {
		if got := estimateTokens(llm.Message{Content: tt.content}); got != tt.want {
			t.Errorf("estimateTokens(%d chars) = %d, want %d", len(tt.content), got, tt.want)
		}
	}
}

func TestTrimHistoryByTokens(t *testing.T) {
	msg := func(role string, chars int) llm.Message {
		return llm.Message{Role: role, Content: strings.Repeat("x", chars)}
	}

	t.Run("under budget untouched", func(t *testing.T) {
		messages := []llm.Message{
			msg("user", 40),
			msg("assistant", 40),
			msg("user", 40),
		}
		got := trimHistoryByTokens(messages, 1000)
		if len(got) != 3 {
			t.Errorf("len = %d, want 3", len(got))
		}
	})

	t.Run("oldest turns fall off", func(t *testing.T) {
		messages := []llm.Message{
			msg("user", 400),      // 100 tokens
			msg("assistant", 400), // 100 tokens
			msg("user", 400),      // 100 tokens
			msg("assistant", 400), // 100 tokens
		}
		got := trimHistoryByTokens(messages, 250)
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[0].Role != "user" {
			t.Errorf("window starts on %q, want user", got[0].Role)
		}
	})

	t.Run("system preamble survives trimming", func(t *testing.T) {
		messages := []llm.Message{
			msg("system", 40),
			msg("user", 400),
			msg("assistant", 400),
			msg("user", 400),
		}
		got := trimHistoryByTokens(messages, 150)
		if got[0].Role != "system" {
			t.Fatalf("first role = %q, want system", got[0].Role)
		}
		if got[len(got)-1].Role != "user" {
			t.Errorf("last role = %q, want user", got[len(got)-1].Role)
		}
	})

	t.Run("window never starts on assistant turn", func(t *testing.T) {
		messages := []llm.Message{
			msg("user", 400),
			msg("assistant", 40),
			msg("user", 40),
		}
		got := trimHistoryByTokens(messages, 50)
		if len(got) == 0 {
			t.Fatal("empty window")
		}
		if got[0].Role != "user" {
			t.Errorf("window starts on %q, want user", got[0].Role)
		}
	})

	t.Run("always keeps at least one message", func(t *testing.T) {
		messages := []llm.Message{msg("user", 4000)}
		got := trimHistoryByTokens(messages, 10)
		if len(got) != 1 {
			t.Errorf("len = %d, want 1", len(got))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := trimHistoryByTokens(nil, 100); got != nil {
			t.Errorf("got %v, want nil", got)
		}
	})
}
