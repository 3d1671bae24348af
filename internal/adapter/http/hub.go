package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/couchcryptid/sensor-map-service/internal/observability"
	"github.com/couchcryptid/sensor-map-service/internal/registry"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// snapshotMessage is what map clients receive over the websocket.
type snapshotMessage struct {
	Reason  string            `json:"reason"`
	Markers []registry.Detail `json:"markers"`
}

// hub fans registry snapshots out to connected map clients. The hub lock
// serializes all writes, so each connection has a single writer.
type hub struct {
	registry *registry.Registry
	metrics  *observability.Metrics
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newHub(reg *registry.Registry, metrics *observability.Metrics, logger *slog.Logger) *hub {
	h := &hub{
		registry: reg,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
	reg.OnChange(func(c registry.Change) { h.broadcast(c.Reason) })
	return h
}

func (h *hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	data, err := h.snapshot("snapshot")
	if err == nil {
		err = write(conn, data)
	}
	if err != nil {
		h.mu.Unlock()
		h.logger.Warn("websocket initial snapshot failed", "error", err)
		_ = conn.Close()
		return
	}
	h.clients[conn] = struct{}{}
	h.metrics.WebsocketClients.Set(float64(len(h.clients)))
	h.mu.Unlock()

	go h.readPump(conn)
}

// broadcast sends the current registry state, not the state captured in the
// change, so a late notification never overwrites a newer snapshot.
func (h *hub) broadcast(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}

	data, err := h.snapshot(reason)
	if err != nil {
		h.logger.Error("encode marker snapshot", "error", err)
		return
	}
	for c := range h.clients {
		if err := write(c, data); err != nil {
			h.logger.Debug("dropping websocket client", "error", err)
			_ = c.Close()
			delete(h.clients, c)
		}
	}
	h.metrics.WebsocketClients.Set(float64(len(h.clients)))
}

// readPump discards client messages and unregisters the client once the
// connection closes.
func (h *hub) readPump(c *websocket.Conn) {
	defer h.remove(c)
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.metrics.WebsocketClients.Set(float64(len(h.clients)))
	h.mu.Unlock()
	_ = c.Close()
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = c.Close()
		delete(h.clients, c)
	}
	h.metrics.WebsocketClients.Set(0)
}

func (h *hub) snapshot(reason string) ([]byte, error) {
	return json.Marshal(snapshotMessage{
		Reason:  reason,
		Markers: registry.Details(h.registry.Entries()),
	})
}

func write(c *websocket.Conn, data []byte) error {
	if err := c.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}
