package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"support-chat-service/internal/observability"
)

// Hub owns the live connections and their room subscriptions. The
// subscription table is purely ephemeral routing state: it is rebuilt
// by clients re-joining after a restart and is never persisted.
type Hub struct {
	rooms      map[string]map[*websocket.Conn]bool
	roomByConn map[*websocket.Conn]string
	connInfo   map[*websocket.Conn]ConnInfo
	mu         sync.Mutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*websocket.Conn]bool),
		roomByConn: make(map[*websocket.Conn]string),
		connInfo:   make(map[*websocket.Conn]ConnInfo),
	}
}

// Register tracks a freshly upgraded connection with no room yet.
func (h *Hub) Register(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connInfo[conn] = info
}

// Join subscribes the connection to a room's broadcast group. A
// connection belongs to at most one room; re-joining replaces the
// prior subscription. Join is advisory routing, the room is not
// required to exist.
func (h *Hub) Join(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(conn)
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[roomID][conn] = true
	h.roomByConn[conn] = roomID
}

// Unregister removes the connection from its subscription and drops
// its metadata. No persistence side effect.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(conn)
	delete(h.connInfo, conn)
}

func (h *Hub) detachLocked(conn *websocket.Conn) {
	roomID, ok := h.roomByConn[conn]
	if !ok {
		return
	}
	delete(h.roomByConn, conn)
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// RoomOf reports the room a connection is currently subscribed to.
func (h *Hub) RoomOf(conn *websocket.Conn) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	roomID, ok := h.roomByConn[conn]
	return roomID, ok
}

// Broadcast delivers an event to every connection subscribed to the
// room. Delivery is room-scoped for every event kind; dead connections
// are closed and dropped in place.
func (h *Hub) Broadcast(roomID string, event ServerEvent) {
	payload, _ := json.Marshal(event)

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.rooms[roomID] {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			info := h.connInfo[conn]
			h.detachLocked(conn)
			delete(h.connInfo, conn)
			h.publishWSError(roomID, info, err)
		}
	}
}

// Send delivers an event to a single connection, used for acks and
// closer-only notifications.
func (h *Hub) Send(conn *websocket.Conn, event ServerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("websocket write error: %v", err)
		conn.Close()
		info := h.connInfo[conn]
		roomID := h.roomByConn[conn]
		h.detachLocked(conn)
		delete(h.connInfo, conn)
		h.publishWSError(roomID, info, err)
		return err
	}
	return nil
}

func (h *Hub) publishWSError(roomID string, info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"room_id":     roomID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.support", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
