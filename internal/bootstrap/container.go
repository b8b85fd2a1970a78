package bootstrap

import (
	"context"
	"log"
	"time"

	"catchup-rag-be/internal/config"
	"catchup-rag-be/internal/controller"
	"catchup-rag-be/internal/handler"
	"catchup-rag-be/internal/pkg/logger"
	"catchup-rag-be/internal/repository/unitofwork"
	"catchup-rag-be/internal/service"
	"catchup-rag-be/internal/websocket"
	"catchup-rag-be/pkg/githubapi"
	"catchup-rag-be/pkg/llm"
	"catchup-rag-be/pkg/llm/factory"
	"catchup-rag-be/pkg/rag/pipeline"
	"catchup-rag-be/pkg/rag/session"
	"catchup-rag-be/pkg/rerank"
	"catchup-rag-be/pkg/searchengine"

	pktNats "catchup-rag-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	AuditService    service.IAuditService // nil when NATS is unavailable or auditing disabled

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Gateways
	baseProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.LLMBaseURL,
		cfg.Ai.LLMAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	llmProvider := llm.NewGated(baseProvider, int64(cfg.Ai.LLMMaxConcurrent))
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	searchGateway := searchengine.NewMeiliGateway(cfg.Search.MeiliURL, cfg.Search.MeiliAPIKey)

	rerankGateway := rerank.NewCohereGateway(cfg.Rerank.CohereAPIKey, int64(cfg.Rerank.MaxConcurrent))
	if cfg.Rerank.CohereBaseURL != "" {
		rerankGateway.BaseURL = cfg.Rerank.CohereBaseURL
	}
	if cfg.Rerank.Model != "" {
		rerankGateway.Model = cfg.Rerank.Model
	}

	githubGateway := githubapi.NewClient(cfg.GitHub.Token, cfg.GitHub.BaseURL, log.Default())

	// 3.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	// Audit trail tails the same stream the consumer publishes to.
	var auditService service.IAuditService
	if natsPub != nil && cfg.Keys.AuditSubject != "" {
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			auditService = service.NewAuditService(natsSub, logger.NewIsolatedLogger("logs/audit.log"))
		}
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)

	// Session state store: Redis when reachable, in-process otherwise.
	sessionTTL := time.Duration(cfg.Pipeline.SessionTTLHours) * time.Hour
	var stateStore session.Store
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Using in-memory session store", err)
		stateStore = session.NewMemoryStore(sessionTTL)
		rdb = nil
	} else {
		stateStore = session.NewRedisStore(rdb, sessionTTL)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 4. Services
	publisherService := service.NewPublisherService(cfg.Keys.TurnTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.TurnTopic,
		uowFactory,
		natsPub,
		cfg.Keys.AuditSubject,
	)

	chatService := service.NewChatService(
		uowFactory,
		llmProvider,
		searchGateway,
		rerankGateway,
		githubGateway,
		stateStore,
		pipelineConfig(cfg),
		publisherService,
		wsHub,
	)

	notifHandler := handler.NewNotificationHandler(wsHub, wsLogger)

	return &Container{
		ChatController:      controller.NewChatController(chatService),
		ConsumerService:     consumerService,
		AuditService:        auditService,
		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,
	}
}

func pipelineConfig(cfg *config.Config) pipeline.Config {
	pc := pipeline.DefaultConfig()
	pc.SemanticRatio = cfg.Pipeline.SemanticRatio
	pc.MinKPerIndex = cfg.Pipeline.MinKPerIndex
	pc.GlobalBudget = cfg.Pipeline.GlobalBudget
	pc.RerankTopN = cfg.Pipeline.RerankTopN
	pc.TotalK = cfg.Pipeline.TotalK
	pc.MinGuarantee = cfg.Pipeline.MinGuarantee
	pc.RerankThreshold = cfg.Pipeline.RerankThreshold
	pc.TargetSourceCount = cfg.Pipeline.TargetSourceCount
	pc.RelatedTicketsTopN = cfg.Pipeline.RelatedTicketsTopN
	pc.MaxRetries = cfg.Pipeline.MaxRetries
	pc.HistoryTokenBudget = cfg.Pipeline.HistoryTokenBudget
	pc.RouterUseHistory = cfg.Pipeline.RouterUseHistory
	return pc
}
