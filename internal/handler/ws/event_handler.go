package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"teamhub-backend/internal/domain"
	"teamhub-backend/internal/events"
	"teamhub-backend/pkg/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev, restrict in production
	},
}

// EventHub fans meeting events out to connected users. Each user gets one
// Redis subscription on their event channel for as long as at least one of
// their WebSocket clients is connected.
type EventHub struct {
	// Registered clients per user
	users map[uuid.UUID]*userEntry

	redisClient *redis.Client
	metrics     *metrics.Metrics
	log         *zap.Logger

	mu sync.RWMutex

	register   chan *Client
	unregister chan *Client
}

type userEntry struct {
	clients map[*Client]bool
	cancel  context.CancelFunc
}

// Client represents one user's WebSocket connection
type Client struct {
	hub    *EventHub
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
}

// NewEventHub creates a new event hub
func NewEventHub(redisClient *redis.Client, m *metrics.Metrics, log *zap.Logger) *EventHub {
	hub := &EventHub{
		users:       make(map[uuid.UUID]*userEntry),
		redisClient: redisClient,
		metrics:     m,
		log:         log,
		register:    make(chan *Client),
		unregister:  make(chan *Client),
	}

	go hub.run()

	return hub
}

// run handles hub operations
func (h *EventHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			entry, ok := h.users[client.userID]
			if !ok {
				ctx, cancel := context.WithCancel(context.Background())
				entry = &userEntry{
					clients: make(map[*Client]bool),
					cancel:  cancel,
				}
				h.users[client.userID] = entry

				go h.subscribeToUser(ctx, client.userID)
			}
			entry.clients[client] = true
			h.mu.Unlock()

			if h.metrics != nil {
				h.metrics.WebSocketConnected()
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if entry, ok := h.users[client.userID]; ok {
				if _, exists := entry.clients[client]; exists {
					delete(entry.clients, client)
					close(client.send)

					if h.metrics != nil {
						h.metrics.WebSocketDisconnected()
					}

					// Last client of this user: drop the subscription
					if len(entry.clients) == 0 {
						entry.cancel()
						delete(h.users, client.userID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// subscribeToUser forwards the user's Redis event channel to all of their
// connected clients until the context is cancelled
func (h *EventHub) subscribeToUser(ctx context.Context, userID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, events.UserChannel(userID))
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
			h.deliver(userID, []byte(msg.Payload))
		}
	}
}

// deliver writes the event payload to every client of the user
func (h *EventHub) deliver(userID uuid.UUID, payload []byte) {
	var event domain.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		h.log.Warn("dropping malformed event payload",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	entry, ok := h.users[userID]
	if !ok {
		return
	}

	for client := range entry.clients {
		select {
		case client.send <- payload:
			if h.metrics != nil {
				h.metrics.EventDelivered(event.Type)
			}
		default:
			// Slow consumer, drop the event rather than block the hub
			h.log.Warn("event send buffer full, dropping event",
				zap.String("user_id", userID.String()),
				zap.String("event_type", event.Type),
			)
		}
	}
}

// ServeWS handles WebSocket upgrade requests
// GET /v1/meetings/events
func (h *EventHub) ServeWS(c *gin.Context) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection so control frames are processed. Clients
// never send application messages on this socket.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket read error",
					zap.String("user_id", c.userID.String()),
					zap.Error(err),
				)
			}
			break
		}
	}
}

// writePump writes events to the WebSocket
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
