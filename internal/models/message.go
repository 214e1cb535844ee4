package models

import "strings"

// Message kinds. Media messages carry a stored filename in Body
// instead of free text.
const (
	MessageKindText  = "text"
	MessageKindMedia = "media"
)

// Message represents a persisted chat message. Sender is a display
// name, not a foreign key. Time is a localized time-of-day string
// with no date component.
type Message struct {
	ID       int    `db:"id" json:"id"`
	Sender   string `db:"sender" json:"sender"`
	Body     string `db:"message" json:"message"`
	Kind     string `db:"kind" json:"kind"`
	Time     string `db:"time" json:"time"`
	RoomID   int    `db:"chat_room_id" json:"chat_room_id"`
	MimeType string `db:"-" json:"mime_type,omitempty"`
}

// RoomSummary is the most recent message of a room, shaped for the
// admin dashboard.
type RoomSummary struct {
	ExternalID string `db:"room_id" json:"room_id"`
	Customer   string `db:"user" json:"user"`
	Time       string `db:"time" json:"time"`
	Message    string `db:"message" json:"message"`
	RoomID     int    `db:"chat_room_id" json:"chat_room_id"`
}

var mimeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// MimeTypeForFilename maps a stored media filename to its mime type.
// Unknown extensions fall back to a generic binary type.
func MimeTypeForFilename(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		if mime, ok := mimeByExt[strings.ToLower(name[idx:])]; ok {
			return mime
		}
	}
	return "application/octet-stream"
}
