package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"catchup-rag-be/internal/pkg/logger"
	"catchup-rag-be/pkg/rag/result"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ChatNotification is the payload pushed to a user's live tabs when a
// session suspends or resumes.
type ChatNotification struct {
	Type       string               `json:"type"`
	SessionId  uuid.UUID            `json:"session_id"`
	Candidates []result.PRCandidate `json:"candidates,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

// clusterMessage is the envelope relayed between instances over Redis.
// Origin carries the publishing instance's id so the relay can skip
// messages it already delivered locally.
type clusterMessage struct {
	TargetUserID string          `json:"target_user_id"`
	Origin       string          `json:"origin"`
	Message      json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Identifies this instance on the cluster channel.
	instanceID string

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						// Remove from slice
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// NotifyInterrupt pushes the pull-request selection request to the user's
// connected tabs. Implements the chat service's InterruptNotifier.
func (h *Hub) NotifyInterrupt(userID uuid.UUID, sessionID uuid.UUID, candidates []result.PRCandidate) {
	h.Send(userID, ChatNotification{
		Type:       "pr_selection_required",
		SessionId:  sessionID,
		Candidates: candidates,
		CreatedAt:  time.Now(),
	})
}

// Send delivers a notification to one user, locally and via Redis for
// clients attached to other instances.
func (h *Hub) Send(userID uuid.UUID, notification ChatNotification) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "notification",
		"data": notification,
	})

	h.mu.RLock()
	targets := append([]*Client(nil), h.clients[userID]...)
	h.mu.RUnlock()

	h.deliver(targets, data)
	h.publishCluster(userID.String(), data)
}

// Broadcast sends a notification to ALL connected clients on every
// instance; used for system-wide notices such as a maintenance shutdown.
func (h *Hub) Broadcast(notification ChatNotification) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "notification",
		"data": notification,
	})

	h.deliver(h.snapshotAll(), data)
	h.publishCluster("*", data)
}

// deliver pushes data onto each client's send buffer. Clients that cannot
// keep up are handed to the unregister loop, which owns closing the
// channel. Callers must not hold h.mu: a wedged client would otherwise
// block Run from ever taking the lock.
func (h *Hub) deliver(targets []*Client, data []byte) {
	for _, client := range targets {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"user_id": client.UserID})
			h.unregister <- client
		}
	}
}

// snapshotAll copies the full client list out from under the lock.
func (h *Hub) snapshotAll() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var targets []*Client
	for _, clients := range h.clients {
		targets = append(targets, clients...)
	}
	return targets
}

func (h *Hub) publishCluster(target string, data []byte) {
	if h.rdb == nil {
		return
	}
	payload, _ := json.Marshal(clusterMessage{
		TargetUserID: target,
		Origin:       h.instanceID,
		Message:      data,
	})
	h.rdb.Publish(context.Background(), "cluster_events", payload)
}

// subscribeToRedis relays cluster_events messages onto locally attached
// clients. Every instance subscribes; each delivers only to users it holds.
func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.dispatchClusterMessage([]byte(msg.Payload))
	}
}

// dispatchClusterMessage fans one relayed message out to local clients.
// Messages published by this instance were already delivered in Send or
// Broadcast and are skipped, so a user attached here never sees doubles.
func (h *Hub) dispatchClusterMessage(raw []byte) {
	var payload clusterMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Printf("Redis msg parse error: %v", err)
		return
	}
	if payload.Origin == h.instanceID {
		return
	}

	if payload.TargetUserID == "*" {
		h.deliver(h.snapshotAll(), payload.Message)
		return
	}

	uid, err := uuid.Parse(payload.TargetUserID)
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := append([]*Client(nil), h.clients[uid]...)
	h.mu.RUnlock()

	h.deliver(targets, payload.Message)
}
