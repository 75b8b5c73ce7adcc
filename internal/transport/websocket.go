package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/easelhq/easel/internal/claim"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Envelope wraps an event on the websocket wire.
type Envelope struct {
	Type  string      `json:"type"`
	Event claim.Event `json:"event"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub relays committed registry events to websocket subscribers. Delivery
// is arrival-ordered and best-effort; a client that falls behind is
// disconnected and recovers via backfill.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*wsClient
}

// NewHub creates a hub and starts relaying from the registry feed until
// cancel is called.
func NewHub(registry *claim.Registry, logger *slog.Logger) (*Hub, func()) {
	h := &Hub{
		logger:  logger,
		clients: make(map[string]*wsClient),
	}
	events, cancel := registry.SubscribeEvents(256)
	go func() {
		for ev := range events {
			h.broadcast(ev)
		}
	}()
	return h, cancel
}

// HandleUpgrade upgrades an HTTP request into an event subscription.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 64),
	}
	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()
	h.logger.Info("event subscriber connected", "client", client.id)

	go h.writeLoop(client)
	go h.readLoop(client)
}

func (h *Hub) broadcast(ev claim.Event) {
	payload, err := json.Marshal(Envelope{Type: string(ev.Type), Event: ev})
	if err != nil {
		h.logger.Error("encoding event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// Slow consumer; drop it rather than stall the feed.
			go h.drop(client)
		}
	}
}

func (h *Hub) writeLoop(client *wsClient) {
	for payload := range client.send {
		if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(client)
			return
		}
	}
	_ = client.conn.Close()
}

// readLoop drains control frames and detects disconnects.
func (h *Hub) readLoop(client *wsClient) {
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			h.drop(client)
			return
		}
	}
}

func (h *Hub) drop(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.id]; !ok {
		return
	}
	delete(h.clients, client.id)
	close(client.send)
	_ = client.conn.Close()
	h.logger.Info("event subscriber disconnected", "client", client.id)
}
