package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"support-chat-service/internal/models"
	"support-chat-service/internal/observability"
	"support-chat-service/internal/repositories"
	"support-chat-service/internal/telemetry"
)

// Stored message timestamps are localized 12-hour time-of-day strings
// with no date component, e.g. "02:15 PM".
const timeLayout = "03:04 PM"

// Relay routes inbound protocol frames: it resolves the external room
// token, durably appends the message and fans it out to the room's
// subscribers. Per-room ordering follows server receive order because
// each connection's frames are handled sequentially by its read loop.
type Relay struct {
	hub      *Hub
	rooms    repositories.RoomRepository
	messages repositories.MessageRepository
	emitter  *telemetry.AuditEmitter
}

// NewRelay constructs a Relay.
func NewRelay(hub *Hub, rooms repositories.RoomRepository, messages repositories.MessageRepository, emitter *telemetry.AuditEmitter) *Relay {
	return &Relay{hub: hub, rooms: rooms, messages: messages, emitter: emitter}
}

// HandleFrame decodes and dispatches one inbound frame.
func (r *Relay) HandleFrame(ctx context.Context, conn *websocket.Conn, raw []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("discarding malformed frame: %v", err)
		return
	}

	switch frame.Event {
	case EventJoinRoom:
		var roomID string
		if err := json.Unmarshal(frame.Data, &roomID); err != nil || roomID == "" {
			log.Printf("join_room with invalid room token")
			return
		}
		r.hub.Join(roomID, conn)
		observability.IncWSEvent(EventJoinRoom)
	case EventSendMessage:
		var payload SendPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			log.Printf("send_message with invalid payload: %v", err)
			return
		}
		r.relayMessage(ctx, conn, payload, classifyBody(payload.Message))
	case EventUploadImage:
		var payload SendPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			log.Printf("upload_image with invalid payload: %v", err)
			return
		}
		r.relayMessage(ctx, conn, payload, models.MessageKindMedia)
	case EventCloseChat:
		var payload ClosePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			log.Printf("close_chat with invalid payload: %v", err)
			return
		}
		r.closeChat(ctx, conn, payload)
	default:
		log.Printf("unknown event %q", frame.Event)
	}
}

func (r *Relay) relayMessage(ctx context.Context, conn *websocket.Conn, payload SendPayload, kind string) {
	roomID, err := r.rooms.ResolveRoom(ctx, payload.Room)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			log.Printf("dropping message for unknown room %q", payload.Room)
			r.ack(conn, payload.AckID, "room not found")
			observability.IncWSEvent("message_dropped")
			return
		}
		log.Printf("resolve room %q: %v", payload.Room, err)
		r.ack(conn, payload.AckID, "internal error")
		return
	}

	stamp := time.Now().Format(timeLayout)
	msg, err := r.messages.CreateMessage(ctx, payload.Author, payload.Message, kind, stamp, roomID)
	if err != nil {
		log.Printf("store message for room %q: %v", payload.Room, err)
		r.ack(conn, payload.AckID, "internal error")
		return
	}
	if msg.Kind == models.MessageKindMedia {
		msg.MimeType = models.MimeTypeForFilename(msg.Body)
	}

	r.hub.Broadcast(payload.Room, ServerEvent{Event: EventReceiveMessage, Data: msg})
	r.ack(conn, payload.AckID, "")
	observability.IncWSEvent("message_relayed")
}

func (r *Relay) closeChat(ctx context.Context, conn *websocket.Conn, payload ClosePayload) {
	if err := r.rooms.CloseRoom(ctx, payload.ChatRoomID, payload.AdminID); err != nil {
		log.Printf("close room %d: %v", payload.ChatRoomID, err)
		return
	}

	// Only the closing connection is notified; the other participant
	// discovers the closure on its next room fetch.
	_ = r.hub.Send(conn, ServerEvent{Event: EventEndChat, Data: EndChatPayload{Message: "Chat has been closed"}})
	observability.IncWSEvent("chat_closed")
	if r.emitter != nil {
		r.emitter.Emit(ctx, "INFO", "chat room closed", "", nil)
	}
}

// ack answers a send that carried an ack_id. An empty errText means
// the message was persisted and broadcast.
func (r *Relay) ack(conn *websocket.Conn, ackID, errText string) {
	if ackID == "" {
		return
	}
	_ = r.hub.Send(conn, ServerEvent{Event: EventAck, Data: AckPayload{
		AckID:   ackID,
		Success: errText == "",
		Error:   errText,
	}})
}

// classifyBody keeps old clients working: uploads sent through
// send_message are recognized by their bare media filename.
func classifyBody(body string) string {
	if strings.ContainsAny(body, " \t\n") {
		return models.MessageKindText
	}
	lower := strings.ToLower(body)
	for _, ext := range []string{".png", ".jpg", ".jpeg"} {
		if strings.HasSuffix(lower, ext) {
			return models.MessageKindMedia
		}
	}
	return models.MessageKindText
}
