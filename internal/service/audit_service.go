package service

import (
	"context"

	"catchup-rag-be/internal/pkg/logger"
	"catchup-rag-be/pkg/events"
	"catchup-rag-be/pkg/nats"
)

type IAuditService interface {
	Start() error
	Close()
}

// auditService tails the NATS chat event stream and writes every event to
// an append-only audit log. The durable consumer means the trail stays
// complete across restarts.
type auditService struct {
	sub    *nats.Subscriber
	logger logger.ILogger
}

var _ IAuditService = &auditService{}

func NewAuditService(sub *nats.Subscriber, auditLogger logger.ILogger) IAuditService {
	return &auditService{
		sub:    sub,
		logger: auditLogger,
	}
}

func (as *auditService) Start() error {
	return as.sub.Subscribe("events.>", "chat-audit-trail", func(ctx context.Context, event events.Event) error {
		as.logger.Info("audit", event.EventType(), event.Payload())
		return nil
	})
}

func (as *auditService) Close() {
	as.sub.Close()
}
