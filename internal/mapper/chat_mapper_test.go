package mapper

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"catchup-rag-be/internal/entity"
	"catchup-rag-be/pkg/rag/result"
)

func TestChatSessionRoundTrip(t *testing.T) {
	m := NewChatMapper()
	now := time.Now().Truncate(time.Second)

	original := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    uuid.New(),
		Title:     "Login flow investigation",
		IndexList: []string{"acme-codebase", "acme-prs"},
		CreatedAt: now,
	}

	back := m.ChatSessionToEntity(m.ChatSessionToModel(original))
	if back.Id != original.Id || back.UserId != original.UserId {
		t.Errorf("ids changed: %+v", back)
	}
	if back.Title != original.Title {
		t.Errorf("Title = %q", back.Title)
	}
	if len(back.IndexList) != 2 || back.IndexList[0] != "acme-codebase" {
		t.Errorf("IndexList = %v", back.IndexList)
	}
	if back.IsDeleted {
		t.Error("live session reported deleted")
	}
}

func TestChatSessionDeletedFlag(t *testing.T) {
	m := NewChatMapper()
	deleted := time.Now()

	original := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    uuid.New(),
		Title:     "gone",
		DeletedAt: &deleted,
		IsDeleted: true,
	}

	back := m.ChatSessionToEntity(m.ChatSessionToModel(original))
	if !back.IsDeleted || back.DeletedAt == nil {
		t.Errorf("deleted flag lost: %+v", back)
	}
}

func TestChatMessageRoundTrip(t *testing.T) {
	m := NewChatMapper()
	score := 0.8

	original := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: uuid.New(),
		Role:          "assistant",
		Content:       "The login flow starts in Login [1].",
		Sources: []result.ResponseSource{
			{Index: 1, IsCited: true, SourceType: "code", FilePath: "auth/login.go", RelevanceScore: &score},
			{Index: 2, IsCited: false, SourceType: "ticket", TicketKey: "ACME-9"},
		},
		ProcessTime: 3.21,
		CreatedAt:   time.Now(),
	}

	back := m.ChatMessageToEntity(m.ChatMessageToModel(original))
	if back.Role != "assistant" || back.Content != original.Content {
		t.Errorf("message changed: %+v", back)
	}
	if back.ProcessTime != 3.21 {
		t.Errorf("ProcessTime = %v", back.ProcessTime)
	}
	if len(back.Sources) != 2 {
		t.Fatalf("Sources = %d, want 2", len(back.Sources))
	}
	if back.Sources[0].FilePath != "auth/login.go" || !back.Sources[0].IsCited {
		t.Errorf("first source = %+v", back.Sources[0])
	}
	if back.Sources[1].TicketKey != "ACME-9" {
		t.Errorf("second source = %+v", back.Sources[1])
	}
}

func TestMapperNilSafety(t *testing.T) {
	m := NewChatMapper()
	if m.ChatSessionToEntity(nil) != nil || m.ChatSessionToModel(nil) != nil {
		t.Error("nil session not passed through")
	}
	if m.ChatMessageToEntity(nil) != nil || m.ChatMessageToModel(nil) != nil {
		t.Error("nil message not passed through")
	}
}
