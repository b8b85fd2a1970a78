package dto

import (
	"time"

	"github.com/google/uuid"

	"catchup-rag-be/pkg/rag/result"
)

// ChatTurnCompletedMessage is the bus payload a finished turn publishes.
// The consumer persists both rows and forwards the audit event.
type ChatTurnCompletedMessage struct {
	ChatSessionId uuid.UUID               `json:"chat_session_id"`
	UserId        uuid.UUID               `json:"user_id"`
	Question      string                  `json:"question"`
	Answer        string                  `json:"answer"`
	Sources       []result.ResponseSource `json:"sources,omitempty"`
	ProcessTime   float64                 `json:"process_time"`
	CompletedAt   time.Time               `json:"completed_at"`
}
