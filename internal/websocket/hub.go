package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/vdavid/replydesk/internal/models"
)

// writeTimeout bounds a single write so one slow client cannot stall a broadcast.
const writeTimeout = 5 * time.Second

// Client wraps a WebSocket connection.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

func (c *Client) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Hub manages active WebSocket connections per operator.
// It supports multiple connections per operator (e.g., multiple tabs).
type Hub struct {
	mu             sync.RWMutex
	clients        map[string]map[*Client]struct{} // operator -> set of clients
	maxPerOperator int
	logger         zerolog.Logger
}

// NewHub creates a new Hub with a per-operator connection limit.
func NewHub(maxPerOperator int, logger zerolog.Logger) *Hub {
	if maxPerOperator <= 0 {
		maxPerOperator = 10
	}
	return &Hub{
		clients:        make(map[string]map[*Client]struct{}),
		maxPerOperator: maxPerOperator,
		logger:         logger,
	}
}

// Register adds a WebSocket connection for the given operator.
// If the per-operator limit is exceeded, the new connection is closed and nil is returned.
func (h *Hub) Register(operator string, conn *websocket.Conn) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[operator]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[operator] = set
	}

	if len(set) >= h.maxPerOperator {
		h.logger.Warn().Str("operator", operator).Int("max", h.maxPerOperator).
			Msg("websocket: too many connections, closing new connection")
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections"),
			time.Time{},
		)
		_ = conn.Close()
		return nil
	}

	client := &Client{conn: conn}
	set[client] = struct{}{}
	return client
}

// Unregister removes a client for the given operator and closes the connection.
func (h *Hub) Unregister(operator string, client *Client) {
	if client == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.clients[operator]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.clients, operator)
		}
	}

	_ = client.conn.Close()
}

// Broadcast writes msg to every connected client.
func (h *Hub) Broadcast(msg []byte) {
	type target struct {
		operator string
		client   *Client
	}

	h.mu.RLock()
	var targets []target
	for operator, set := range h.clients {
		for client := range set {
			targets = append(targets, target{operator, client})
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		if err := t.client.write(msg); err != nil {
			h.logger.Debug().Err(err).Str("operator", t.operator).Msg("websocket: failed to write message")
			go h.Unregister(t.operator, t.client)
		}
	}
}

// OutcomeEvent is the message pushed to clients for every processed message.
type OutcomeEvent struct {
	Type    string         `json:"type"`
	Outcome models.Outcome `json:"outcome"`
}

// NotifyOutcome broadcasts an outcome event.
func (h *Hub) NotifyOutcome(outcome models.Outcome) {
	msg, err := json.Marshal(OutcomeEvent{Type: "outcome", Outcome: outcome})
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket: failed to encode outcome")
		return
	}
	h.Broadcast(msg)
}

// ActiveConnections returns the number of active WebSocket connections for an operator.
func (h *Hub) ActiveConnections(operator string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[operator])
}
