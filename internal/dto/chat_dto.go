package dto

import (
	"time"

	"github.com/google/uuid"

	"catchup-rag-be/pkg/rag/result"
)

type CreateSessionRequest struct {
	Title     string   `json:"title"`
	IndexList []string `json:"index_list" validate:"required,min=1"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	IndexList []string   `json:"index_list"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID               `json:"id"`
	Role      string                  `json:"role"`
	Chat      string                  `json:"chat"`
	Sources   []result.ResponseSource `json:"sources,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

type SendChatRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Chat          string    `json:"chat" validate:"required"`
}

type SendChatResponse struct {
	ChatSessionId  uuid.UUID               `json:"chat_session_id"`
	Answer         string                  `json:"answer"`
	Sources        []result.ResponseSource `json:"sources"`
	RelatedTickets []TicketDTO             `json:"related_tickets,omitempty"`
	ProcessTime    float64                 `json:"process_time"`
}

type TicketDTO struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status,omitempty"`
	HTMLURL string `json:"html_url,omitempty"`
}

// ResumeChatRequest continues a turn suspended for pull-request selection.
type ResumeChatRequest struct {
	ChatSessionId            uuid.UUID            `json:"chat_session_id" validate:"required"`
	UserSelectedPullRequests []result.PRSelection `json:"user_selected_pull_requests"`
}

// InterruptResponse is returned by the single-shot endpoint when the turn
// suspended awaiting a pull-request selection.
type InterruptResponse struct {
	ChatSessionId uuid.UUID            `json:"chat_session_id"`
	Node          string               `json:"node"`
	Candidates    []result.PRCandidate `json:"candidates"`
}

type DeleteSessionRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
}
