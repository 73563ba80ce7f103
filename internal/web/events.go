package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/AnkitM1410/Clawbook-Human/internal/observability"
	"github.com/AnkitM1410/Clawbook-Human/internal/tracing"
)

// EventMessage is a server-initiated event pushed to console clients.
type EventMessage struct {
	Type      string      `json:"type"`
	Event     string      `json:"event"`
	Seq       int64       `json:"seq"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// eventClient is one connected websocket. Writes are serialized
// because gorilla connections allow a single concurrent writer.
type eventClient struct {
	id          string
	conn        *websocket.Conn
	connectedAt time.Time
	writeMu     sync.Mutex
}

func (c *eventClient) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// EventHub fans console events out to every connected browser so open
// tabs stay in sync with agent switches and new posts.
type EventHub struct {
	mu       sync.RWMutex
	clients  map[string]*eventClient
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	seq      uint64
}

// NewEventHub creates an event hub.
func NewEventHub(logger zerolog.Logger) *EventHub {
	observability.EnsureRegistered()
	return &EventHub{
		clients: make(map[string]*eventClient),
		logger:  logger.With().Str("component", "events").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// The console binds to loopback; the browser is local.
				return true
			},
		},
	}
}

// HandleConnection upgrades the request and keeps the client
// registered until it disconnects.
func (h *EventHub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	clientID, _ := gonanoid.New()
	client := &eventClient{
		id:          clientID,
		conn:        conn,
		connectedAt: time.Now(),
	}
	h.add(client)

	h.logger.Info().
		Str("client_id", clientID).
		Str("ip", r.RemoteAddr).
		Msg("Event client connected")

	welcome := EventMessage{
		Type:      "event",
		Event:     "connected",
		Seq:       h.nextSeq(),
		Data:      map[string]interface{}{"client_id": clientID},
		Timestamp: time.Now().UnixMilli(),
		TraceID:   tracing.GetTraceID(r.Context()),
	}
	if data, err := json.Marshal(welcome); err == nil {
		_ = client.write(data)
	}

	// The console never expects client messages; the read loop exists
	// to notice disconnects.
	go h.readLoop(client)
}

func (h *EventHub) readLoop(client *eventClient) {
	defer func() {
		h.remove(client.id)
		client.conn.Close()
		h.logger.Info().Str("client_id", client.id).Msg("Event client disconnected")
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends an event to every connected client.
func (h *EventHub) Broadcast(event string, data interface{}) {
	msg := EventMessage{
		Type:      "event",
		Event:     event,
		Seq:       h.nextSeq(),
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Failed to marshal event")
		return
	}

	clients := h.snapshot()
	if len(clients) == 0 {
		return
	}

	successCount := 0
	failureCount := 0
	for _, client := range clients {
		if err := client.write(jsonData); err != nil {
			h.logger.Warn().
				Err(err).
				Str("client_id", client.id).
				Str("event", event).
				Msg("Failed to broadcast to client")
			failureCount++
		} else {
			successCount++
		}
	}

	h.logger.Debug().
		Str("event", event).
		Int("success", successCount).
		Int("failed", failureCount).
		Msg("Event broadcast complete")
}

// Count returns the number of connected clients.
func (h *EventHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client, for shutdown.
func (h *EventHub) CloseAll() {
	for _, client := range h.snapshot() {
		client.conn.Close()
	}
}

func (h *EventHub) add(client *eventClient) {
	h.mu.Lock()
	h.clients[client.id] = client
	count := len(h.clients)
	h.mu.Unlock()
	observability.SetWebsocketClients(count)
}

func (h *EventHub) remove(clientID string) {
	h.mu.Lock()
	delete(h.clients, clientID)
	count := len(h.clients)
	h.mu.Unlock()
	observability.SetWebsocketClients(count)
}

func (h *EventHub) snapshot() []*eventClient {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*eventClient, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

func (h *EventHub) nextSeq() int64 {
	return int64(atomic.AddUint64(&h.seq, 1))
}
