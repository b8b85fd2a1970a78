package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"catchup-rag-be/internal/constant"
	"catchup-rag-be/internal/dto"
	"catchup-rag-be/internal/entity"
	"catchup-rag-be/internal/repository/specification"
	"catchup-rag-be/internal/repository/unitofwork"
	"catchup-rag-be/pkg/githubapi"
	"catchup-rag-be/pkg/llm"
	"catchup-rag-be/pkg/rag/pipeline"
	"catchup-rag-be/pkg/rag/result"
	"catchup-rag-be/pkg/rag/session"
	"catchup-rag-be/pkg/rerank"
	"catchup-rag-be/pkg/searchengine"

	"github.com/google/uuid"
)

// IChatService defines the conversational RAG service interface
type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error

	// SendChat runs one turn. A nil TurnResult with a non-nil InterruptError
	// means the turn suspended awaiting a pull-request selection.
	SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest, emitter pipeline.Emitter) (*pipeline.TurnResult, *pipeline.InterruptError, error)

	// ResumeChat continues a suspended turn with the user's PR selection.
	ResumeChat(ctx context.Context, userId uuid.UUID, request *dto.ResumeChatRequest, emitter pipeline.Emitter) (*pipeline.TurnResult, *pipeline.InterruptError, error)
}

// InterruptNotifier pushes suspension notices to a user's live connections.
// The websocket hub implements it.
type InterruptNotifier interface {
	NotifyInterrupt(userId uuid.UUID, sessionId uuid.UUID, candidates []result.PRCandidate)
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	stateStore session.Store
	pipeline   *pipeline.Pipeline
	publisher  IPublisherService
	notifier   InterruptNotifier
	llmLogger  *log.Logger
}

// NewChatService wires the orchestration pipeline behind the service surface.
func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	searchGateway searchengine.Gateway,
	rerankGateway rerank.Gateway,
	githubGateway githubapi.Gateway,
	stateStore session.Store,
	pipelineConfig pipeline.Config,
	publisher IPublisherService,
	notifier InterruptNotifier,
) IChatService {
	llmLogger := initLLMLogger()

	ragPipeline := pipeline.New(
		llmProvider,
		searchGateway,
		rerankGateway,
		githubGateway,
		stateStore,
		pipelineConfig,
		llmLogger,
	)

	return &chatService{
		uowFactory: uowFactory,
		stateStore: stateStore,
		pipeline:   ragPipeline,
		publisher:  publisher,
		notifier:   notifier,
		llmLogger:  llmLogger,
	}
}

func initLLMLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_rag.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[LLM-RAG] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

// CreateSession creates a new chat session scoped to a set of search indices
func (cs *chatService) CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	title := request.Title
	if title == "" {
		title = constant.DefaultSessionTitle
	}

	chatSession := entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		IndexList: request.IndexList,
		CreatedAt: time.Now(),
	}

	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{Id: chatSession.Id}, nil
}

// GetAllSessions retrieves all chat sessions
func (cs *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(chatSessions))
	for _, s := range chatSessions {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:        s.Id,
			Title:     s.Title,
			IndexList: s.IndexList,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}

	return response, nil
}

// GetChatHistory retrieves the persisted messages for a session
func (cs *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := cs.verifySession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetChatHistoryResponse, 0, len(chatMessages))
	for _, msg := range chatMessages {
		response = append(response, &dto.GetChatHistoryResponse{
			Id:        msg.Id,
			Role:      msg.Role,
			Chat:      msg.Content,
			Sources:   msg.Sources,
			CreatedAt: msg.CreatedAt,
		})
	}

	return response, nil
}

// DeleteSession removes the session, its messages, and the checkpointed state
func (cs *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteAllBySessionId(ctx, request.ChatSessionId); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, request.ChatSessionId); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	if err := cs.stateStore.Delete(ctx, request.ChatSessionId.String()); err != nil {
		cs.llmLogger.Printf("[WARN] failed to drop checkpointed state for %s: %v", request.ChatSessionId, err)
	}
	return nil
}

// SendChat runs one full pipeline turn for the session
func (cs *chatService) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest, emitter pipeline.Emitter) (*pipeline.TurnResult, *pipeline.InterruptError, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSession, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId)
	if err != nil {
		return nil, nil, err
	}

	state, err := cs.loadOrCreateState(ctx, chatSession)
	if err != nil {
		return nil, nil, err
	}
	if state.Suspended() {
		return nil, nil, fmt.Errorf("session %s is awaiting a pull-request selection, call resume", request.ChatSessionId)
	}

	state.AppendMessage(llm.Message{Role: constant.ChatMessageRoleUser, Content: request.Chat})

	turn, err := cs.pipeline.Run(ctx, state, emitter)
	if err != nil {
		if interrupt, ok := pipeline.AsInterrupt(err); ok {
			if cs.notifier != nil {
				cs.notifier.NotifyInterrupt(userId, request.ChatSessionId, interrupt.Candidates)
			}
			return nil, interrupt, nil
		}
		return nil, nil, err
	}

	cs.afterTurn(ctx, uow, chatSession, userId, request.Chat, turn)
	return turn, nil, nil
}

// ResumeChat continues a turn suspended at the PR-context node
func (cs *chatService) ResumeChat(ctx context.Context, userId uuid.UUID, request *dto.ResumeChatRequest, emitter pipeline.Emitter) (*pipeline.TurnResult, *pipeline.InterruptError, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSession, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId)
	if err != nil {
		return nil, nil, err
	}

	state, err := cs.stateStore.Load(ctx, request.ChatSessionId.String())
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, nil, fmt.Errorf("session %s has no suspended turn to resume", request.ChatSessionId)
		}
		return nil, nil, err
	}

	turn, err := cs.pipeline.Resume(ctx, state, request.UserSelectedPullRequests, emitter)
	if err != nil {
		if interrupt, ok := pipeline.AsInterrupt(err); ok {
			return nil, interrupt, nil
		}
		return nil, nil, err
	}

	cs.afterTurn(ctx, uow, chatSession, userId, state.LatestQuery(), turn)
	return turn, nil, nil
}

func (cs *chatService) verifySession(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, sessionId uuid.UUID) (*entity.ChatSession, error) {
	chatSession, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if chatSession == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}
	return chatSession, nil
}

func (cs *chatService) loadOrCreateState(ctx context.Context, chatSession *entity.ChatSession) (*pipeline.State, error) {
	state, err := cs.stateStore.Load(ctx, chatSession.Id.String())
	if errors.Is(err, session.ErrNotFound) {
		return pipeline.NewState(chatSession.Id.String(), constant.ChatMessageRoleUser, chatSession.IndexList), nil
	}
	if err != nil {
		return nil, err
	}
	// The permitted index scope may have changed since the checkpoint.
	state.IndexList = chatSession.IndexList
	return state, nil
}

// afterTurn publishes the turn for persistence and retitles fresh sessions.
// Nothing here may fail the answered turn.
func (cs *chatService) afterTurn(ctx context.Context, uow unitofwork.UnitOfWork, chatSession *entity.ChatSession, userId uuid.UUID, question string, turn *pipeline.TurnResult) {
	if err := cs.publisher.PublishTurnCompleted(dto.ChatTurnCompletedMessage{
		ChatSessionId: chatSession.Id,
		UserId:        userId,
		Question:      question,
		Answer:        turn.Answer,
		Sources:       turn.Sources,
		ProcessTime:   turn.ProcessTime,
		CompletedAt:   time.Now(),
	}); err != nil {
		cs.llmLogger.Printf("[WARN] failed to publish turn for %s: %v", chatSession.Id, err)
	}

	if chatSession.Title == constant.DefaultSessionTitle && question != "" {
		title := question
		if len(title) > 60 {
			title = title[:60]
		}
		now := time.Now()
		chatSession.Title = title
		chatSession.UpdatedAt = &now
		if err := uow.ChatSessionRepository().Update(ctx, chatSession); err != nil {
			cs.llmLogger.Printf("[WARN] failed to retitle session %s: %v", chatSession.Id, err)
		}
	}
}
