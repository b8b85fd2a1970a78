package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"catchup-rag-be/internal/constant"
	"catchup-rag-be/internal/dto"
	"catchup-rag-be/internal/entity"
	"catchup-rag-be/internal/repository/unitofwork"
	"catchup-rag-be/pkg/events"
	"catchup-rag-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains completed turns off the in-process bus, persists
// the message rows, and forwards an audit event to NATS when configured.
// It runs off the request path so persistence can never fail a turn.
type consumerService struct {
	pubSub       *gochannel.GoChannel
	topicName    string
	uowFactory   unitofwork.RepositoryFactory
	natsPub      *nats.Publisher
	auditSubject string
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	natsPub *nats.Publisher,
	auditSubject string,
) IConsumerService {
	return &consumerService{
		pubSub:       pubSub,
		topicName:    topicName,
		uowFactory:   uowFactory,
		natsPub:      natsPub,
		auditSubject: auditSubject,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ChatTurnCompletedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal turn message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Persisting chat turn for session %s", payload.ChatSessionId)

	now := payload.CompletedAt
	if now.IsZero() {
		now = time.Now()
	}

	rows := []*entity.ChatMessage{
		{
			Id:            uuid.New(),
			ChatSessionId: payload.ChatSessionId,
			Role:          constant.ChatMessageRoleUser,
			Content:       payload.Question,
			CreatedAt:     now,
		},
		{
			Id:            uuid.New(),
			ChatSessionId: payload.ChatSessionId,
			Role:          constant.ChatMessageRoleAssistant,
			Content:       payload.Answer,
			Sources:       payload.Sources,
			ProcessTime:   payload.ProcessTime,
			CreatedAt:     now.Add(1 * time.Millisecond),
		},
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatMessageRepository().CreateBatch(ctx, rows); err != nil {
		log.Printf("[ERROR] Failed to persist turn for session %s: %v", payload.ChatSessionId, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	cs.forwardAudit(ctx, payload, now)
	msg.Ack()
}

func (cs *consumerService) forwardAudit(ctx context.Context, payload dto.ChatTurnCompletedMessage, occurredAt time.Time) {
	if cs.natsPub == nil || cs.auditSubject == "" {
		return
	}

	event := events.BaseEvent{
		Type: constant.EventChatTurnCompleted,
		Data: map[string]interface{}{
			"chat_session_id": payload.ChatSessionId.String(),
			"user_id":         payload.UserId.String(),
			"process_time":    payload.ProcessTime,
			"source_count":    len(payload.Sources),
		},
		OccurredAt: occurredAt,
	}
	if err := cs.natsPub.Publish(ctx, event); err != nil {
		log.Printf("[WARN] Failed to forward audit event: %v", err)
	}
}
