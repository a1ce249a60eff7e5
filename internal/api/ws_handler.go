package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/vdavid/replydesk/internal/auth"
	ws "github.com/vdavid/replydesk/internal/websocket"
)

// WebSocketHandler handles the /api/v1/ws endpoint that streams message outcomes.
type WebSocketHandler struct {
	auth   *auth.Authenticator
	hub    *ws.Hub
	logger zerolog.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(authenticator *auth.Authenticator, hub *ws.Hub, logger zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{auth: authenticator, hub: hub, logger: logger}
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The operator API is expected to run behind a reverse proxy in a trusted environment.
		return true
	},
}

// Handle upgrades the HTTP connection to a WebSocket and registers it with the Hub.
// Authentication is handled via query parameter (?token=...) since WebSocket connections
// cannot set custom headers in browsers.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		// Fallback for tools that can set headers.
		token, _ = auth.BearerToken(r.Header.Get("Authorization"))
	}

	operator, err := h.auth.ValidateToken(token)
	if err != nil {
		h.logger.Debug().Err(err).Msg("WebSocketHandler: token validation failed")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocketHandler: failed to upgrade connection")
		return
	}

	client := h.hub.Register(operator, conn)
	if client == nil {
		return
	}

	go h.readLoop(operator, client)
}

// readLoop reads messages from the WebSocket until the connection is closed.
func (h *WebSocketHandler) readLoop(operator string, client *ws.Client) {
	conn := client.Conn()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.hub.Unregister(operator, client)
}
