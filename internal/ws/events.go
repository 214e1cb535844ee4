package ws

import "encoding/json"

// Client-to-server event names.
const (
	EventJoinRoom    = "join_room"
	EventSendMessage = "send_message"
	EventUploadImage = "upload_image"
	EventCloseChat   = "close_chat"
)

// Server-to-client event names.
const (
	EventReceiveMessage = "receive_message"
	EventEndChat        = "end_chat"
	EventAck            = "ack"
)

// ClientFrame is an inbound protocol frame. Data is decoded per event.
type ClientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerEvent is an outbound protocol frame.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// SendPayload carries send_message and upload_image data. Time is
// client-observed and advisory only; the server stamps its own.
type SendPayload struct {
	Room    string `json:"room"`
	Author  string `json:"author"`
	Message string `json:"message"`
	Time    string `json:"time"`
	AckID   string `json:"ack_id"`
}

// ClosePayload carries close_chat data. ChatRoomID is the internal
// surrogate key, AdminID the closing agent.
type ClosePayload struct {
	ChatRoomID int `json:"chat_room_id"`
	AdminID    int `json:"admin_id"`
}

// AckPayload answers a send that carried an ack_id. Success is explicit
// so a client can surface a dropped message instead of guessing.
type AckPayload struct {
	AckID   string `json:"ack_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// EndChatPayload is the terminal notification after close_chat.
type EndChatPayload struct {
	Message string `json:"message"`
}
