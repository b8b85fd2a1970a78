package session

import (
	"context"
	"errors"
	"time"

	"catchup-rag-be/pkg/rag/pipeline"
)

// ErrNotFound is returned when a session id has no checkpointed state.
var ErrNotFound = errors.New("session state not found")

// DefaultTTL is how long an idle session survives in the store.
const DefaultTTL = 24 * time.Hour

// Store is the durable session-state mapping the pipeline checkpoints
// into. Load returns ErrNotFound for unknown ids.
type Store interface {
	pipeline.Checkpointer

	Load(ctx context.Context, sessionID string) (*pipeline.State, error)
	Delete(ctx context.Context, sessionID string) error
}
