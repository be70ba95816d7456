package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"spa-comments/internal/domain"
	"spa-comments/internal/metrics"
)

const (
	EventCommentCreated = "CommentCreated"

	DefaultWriteTimeout = 5 * time.Second
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Envelope struct {
	Type string             `json:"type"`
	Data domain.CommentView `json:"data"`
}

type Client struct {
	ID   uuid.UUID
	conn Conn
	mu   sync.Mutex
}

func (c *Client) write(data []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	mu           sync.RWMutex
	clients      map[uuid.UUID]*Client
	writeTimeout time.Duration
	log          *log.Entry
}

func NewHub(writeTimeout time.Duration, logger *log.Entry) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Hub{
		clients:      make(map[uuid.UUID]*Client),
		writeTimeout: writeTimeout,
		log:          logger.WithField("component", "realtime"),
	}
}

func (h *Hub) Register(conn Conn) *Client {
	client := &Client{ID: uuid.New(), conn: conn}

	h.mu.Lock()
	h.clients[client.ID] = client
	count := len(h.clients)
	h.mu.Unlock()

	metrics.RealtimeClients.Set(float64(count))
	h.log.WithField("client_id", client.ID).Debug("[realtime] client connected")
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.ID]
	delete(h.clients, client.ID)
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.RealtimeClients.Set(float64(count))
		h.log.WithField("client_id", client.ID).Debug("[realtime] client disconnected")
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a CommentCreated event to every client and returns how many
// received it. A client whose write fails is dropped and closed; the others
// still get the message.
func (h *Hub) Broadcast(ctx context.Context, view domain.CommentView) (int, error) {
	data, err := json.Marshal(Envelope{Type: EventCommentCreated, Data: view})
	if err != nil {
		return 0, fmt.Errorf("marshal %s: %w", EventCommentCreated, err)
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		if err := c.write(data, h.writeTimeout); err != nil {
			h.log.WithField("client_id", c.ID).Warnf("[realtime] failed to send comment %s: %v", view.ID, err)
			h.Unregister(c)
			_ = c.conn.Close()
			continue
		}
		delivered++
	}
	return delivered, nil
}
