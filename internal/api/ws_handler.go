package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	ws "github.com/vdavid/mailsky/internal/websocket"
)

// WebSocketHandler handles the /api/ws endpoint that streams publish progress.
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler instance. allowedOrigin is the
// configured CORS origin; "*" accepts every origin.
func NewWebSocketHandler(hub *ws.Hub, allowedOrigin string) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Handle upgrades the HTTP connection to a WebSocket and registers it with the Hub.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocketHandler: failed to upgrade connection: %v", err)
		return
	}

	client := h.hub.Register(conn)
	if client == nil {
		log.Printf("WebSocketHandler: Connection rejected (max connections exceeded)")
		return
	}

	// Read loop to keep the connection open and detect disconnects.
	go h.readLoop(client)
}

// readLoop reads messages from the WebSocket until the connection is closed.
// Incoming messages are ignored; the stream is one-way.
func (h *WebSocketHandler) readLoop(client *ws.Client) {
	conn := client.Conn()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.hub.Unregister(client)
}
