package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vdavid/mailsky/internal/models"
)

// writeTimeout bounds a single write to one dashboard.
const writeTimeout = 5 * time.Second

// sendBuffer is the number of events queued per client before it counts as stalled.
const sendBuffer = 64

// Client wraps a WebSocket connection. Its writer goroutine drains send, so a slow dashboard
// never blocks the code that broadcasts.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// writeLoop writes queued messages until the client is closed or a write fails.
func (c *Client) writeLoop(h *Hub) {
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("websocket: failed to write message: %v", err)
				h.Unregister(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

// Hub manages the dashboards listening for publish progress.
// Every event goes to every connected client.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	maxClients int
}

// NewHub creates a new Hub with a connection limit.
func NewHub(maxClients int) *Hub {
	if maxClients <= 0 {
		maxClients = 50
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		maxClients: maxClients,
	}
}

// Register adds a WebSocket connection.
// If the limit is exceeded, the new connection is closed and nil is returned.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) >= h.maxClients {
		log.Printf("websocket: exceeded max connections (%d), closing new connection", h.maxClients)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections"),
			time.Time{},
		)
		_ = conn.Close()
		return nil
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	h.clients[client] = struct{}{}
	go client.writeLoop(h)
	return client
}

// Unregister removes a client and closes the connection.
func (h *Hub) Unregister(client *Client) {
	if client == nil {
		return
	}

	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()

	client.close()
}

// Broadcast queues a message for all active clients without waiting for the writes.
// A client whose queue is full is dropped.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	var stalled []*Client
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		log.Printf("websocket: client is not reading, dropping it")
		h.Unregister(client)
	}
}

// PublishProgress broadcasts a publish progress event as JSON.
// Its signature matches bluesky.ProgressFunc.
func (h *Hub) PublishProgress(event models.ProgressEvent) {
	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket: failed to encode progress event: %v", err)
		return
	}
	h.Broadcast(msg)
}

// ActiveConnections returns the number of active WebSocket connections.
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
