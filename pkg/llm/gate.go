package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/semaphore"
)

// Gated wraps a provider with a process-wide concurrency ceiling so bursts
// of pipeline turns cannot exceed the upstream completion rate limits.
// Callers block until a slot frees or their context is cancelled.
type Gated struct {
	inner LLMProvider
	sem   *semaphore.Weighted
}

var _ LLMProvider = &Gated{}

// NewGated limits simultaneous in-flight calls to the inner provider.
func NewGated(inner LLMProvider, maxConcurrent int64) *Gated {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Gated{
		inner: inner,
		sem:   semaphore.NewWeighted(maxConcurrent),
	}
}

func (g *Gated) Chat(ctx context.Context, history []Message, opts ...Option) (string, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire completion slot: %w", err)
	}
	defer g.sem.Release(1)
	return g.inner.Chat(ctx, history, opts...)
}

func (g *Gated) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire completion slot: %w", err)
	}
	defer g.sem.Release(1)
	return g.inner.Generate(ctx, prompt, opts...)
}

func (g *Gated) GenerateStructured(ctx context.Context, prompt string, out any, opts ...Option) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire completion slot: %w", err)
	}
	defer g.sem.Release(1)
	return g.inner.GenerateStructured(ctx, prompt, out, opts...)
}

// DecodeStructured parses a JSON-mode model response into out. Some backends
// wrap the object in markdown fences even when asked not to, so strip them.
func DecodeStructured(raw string, out any) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	// Tolerate leading prose before the object.
	if idx := strings.IndexAny(cleaned, "{["); idx > 0 {
		cleaned = cleaned[idx:]
	}

	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("decode structured response: %w", err)
	}
	return nil
}
