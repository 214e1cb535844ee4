package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"support-chat-service/internal/observability"
)

// SupportWebSocketHandler upgrades support-chat connections and runs
// their read loops.
type SupportWebSocketHandler struct {
	hub   *Hub
	relay *Relay
}

// NewSupportWebSocketHandler constructs a SupportWebSocketHandler.
func NewSupportWebSocketHandler(hub *Hub, relay *Relay) *SupportWebSocketHandler {
	return &SupportWebSocketHandler{hub: hub, relay: relay}
}

// The mobile client connects from arbitrary origins.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, registers it and serves its frames.
// No room is assigned until the client issues join_room.
func (h *SupportWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("support-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.End()
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.Register(conn, info)
	span.End()

	// net/http cancels the request context as soon as this handler
	// returns, while the read loop outlives it by the connection's
	// whole lifetime. Detach so repository calls and lifecycle
	// publishes keep working, preserving the trace metadata.
	loopCtx := context.WithoutCancel(ctx)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	publishLifecycle(loopCtx, "ws_connect", info, "")

	go func() {
		var closeReason string
		defer func() {
			h.hub.Unregister(conn)
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			publishLifecycle(loopCtx, "ws_disconnect", info, closeReason)
			conn.Close()
		}()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
					publishLifecycle(loopCtx, "ws_error", info, closeReason)
				}
				return
			}
			h.relay.HandleFrame(loopCtx, conn, raw)
		}
	}()
}
