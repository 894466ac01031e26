package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"chatrouter-backend/internal/middleware"
	"chatrouter-backend/internal/models"
)

const subscribeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type chatService interface {
	Chat(ctx context.Context, sessionID string, req models.ChatRequest) (string, error)
}

// errorStatus maps a chat error onto its client-facing message.
type errorStatus func(err error) (int, string)

// client serializes writes; gorilla allows one concurrent writer per conn.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub runs chat over websockets. Replies fan out to every socket of the same
// session, across instances when a Redis client is configured.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*client
	chat        chatService
	mapError    errorStatus
	redisClient *redis.Client
	cancelFuncs map[string]context.CancelFunc
}

func NewHub(chat chatService, mapError errorStatus, redisClient *redis.Client) *Hub {
	return &Hub{
		connections: make(map[string][]*client),
		chat:        chat,
		mapError:    mapError,
		redisClient: redisClient,
		cancelFuncs: make(map[string]context.CancelFunc),
	}
}

// HandleWebSocket expects the session middleware to have resolved the session.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn}
	h.registerConnection(sessionID, c)
	defer h.unregisterConnection(sessionID, c)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.handleFrame(r.Context(), sessionID, c, data)
	}
}

func (h *Hub) handleFrame(ctx context.Context, sessionID string, c *client, data []byte) {
	var req models.ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.writeJSON(models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	reply, err := h.chat.Chat(ctx, sessionID, req)
	if err != nil {
		_, message := h.mapError(err)
		c.writeJSON(models.ErrorResponse{Error: message})
		return
	}

	payload, err := json.Marshal(models.ChatResponse{Reply: reply})
	if err != nil {
		return
	}
	h.publish(ctx, sessionID, payload)
}

func (h *Hub) registerConnection(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[sessionID] = append(h.connections[sessionID], c)

	// The first socket of a session subscribes before any frame is read, so a
	// fast reply cannot be published ahead of the subscription.
	if h.redisClient != nil && len(h.connections[sessionID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		pubsub, err := h.subscribe(ctx, sessionID)
		if err != nil {
			cancel()
			log.Printf("WebSocket subscribe failed, session %s stays local: %v", sessionID, err)
		} else {
			h.cancelFuncs[sessionID] = cancel
			go h.forward(ctx, sessionID, pubsub)
		}
	}

	log.Printf("WebSocket connected: session %s (total: %d)", sessionID, len(h.connections[sessionID]))
}

func (h *Hub) unregisterConnection(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	conns := h.connections[sessionID]
	for i, existing := range conns {
		if existing == c {
			h.connections[sessionID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[sessionID]) == 0 {
		delete(h.connections, sessionID)
		if cancel, ok := h.cancelFuncs[sessionID]; ok {
			cancel()
			delete(h.cancelFuncs, sessionID)
		}
	}

	log.Printf("WebSocket disconnected: session %s", sessionID)
}

func channelFor(sessionID string) string {
	return "chat_updates:" + sessionID
}

// publish falls back to local delivery when Redis fails or nobody is subscribed.
func (h *Hub) publish(ctx context.Context, sessionID string, payload []byte) {
	if h.redisClient != nil {
		receivers, err := h.redisClient.Publish(ctx, channelFor(sessionID), payload).Result()
		if err == nil && receivers > 0 {
			return
		}
		if err != nil {
			log.Printf("WebSocket publish failed, delivering locally: %v", err)
		}
	}
	h.broadcast(sessionID, payload)
}

// subscribe waits for Redis to confirm the subscription.
func (h *Hub) subscribe(ctx context.Context, sessionID string) (*redis.PubSub, error) {
	pubsub := h.redisClient.Subscribe(ctx, channelFor(sessionID))

	confirmCtx, cancel := context.WithTimeout(ctx, subscribeTimeout)
	defer cancel()
	if _, err := pubsub.Receive(confirmCtx); err != nil {
		pubsub.Close()
		return nil, err
	}
	return pubsub, nil
}

func (h *Hub) forward(ctx context.Context, sessionID string, pubsub *redis.PubSub) {
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(sessionID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.connections[sessionID] {
		c.mu.Lock()
		c.conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
	}
}
