package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"catchup-rag-be/pkg/rag/pipeline"
)

// MemoryStore is the single-process fallback when Redis is unavailable,
// and the store the tests run against. State round-trips through JSON so
// callers see the exact persistence semantics of the Redis store, typed
// document variants included.
type MemoryStore struct {
	cache *gocache.Cache
}

var _ Store = &MemoryStore{}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{cache: gocache.New(ttl, 10*time.Minute)}
}

func (s *MemoryStore) Save(_ context.Context, state *pipeline.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	s.cache.SetDefault(state.SessionID, payload)
	return nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*pipeline.State, error) {
	raw, found := s.cache.Get(sessionID)
	if !found {
		return nil, ErrNotFound
	}

	var state pipeline.State
	if err := json.Unmarshal(raw.([]byte), &state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &state, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.cache.Delete(sessionID)
	return nil
}
