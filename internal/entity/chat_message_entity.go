package entity

import (
	"time"

	"github.com/google/uuid"

	"catchup-rag-be/pkg/rag/result"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string
	Content       string
	Sources       []result.ResponseSource
	ProcessTime   float64
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}
