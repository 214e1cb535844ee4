package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"support-chat-service/internal/models"
)

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, sender, body, kind, timestamp string, roomID int) (models.Message, error)
	ListMessagesForRoom(ctx context.Context, roomID int) ([]models.Message, error)
	ListLatestMessagePerRoom(ctx context.Context) ([]models.RoomSummary, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage appends a message to a room and returns the stored row
// with its generated id.
func (r *MessageRepo) CreateMessage(ctx context.Context, sender, body, kind, timestamp string, roomID int) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO chats (sender, message, kind, time, chat_room_id)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, sender, message, kind, time, chat_room_id`,
		sender, body, kind, timestamp, roomID).
		Scan(&msg.ID, &msg.Sender, &msg.Body, &msg.Kind, &msg.Time, &msg.RoomID)
	return msg, err
}

// ListMessagesForRoom returns a room's messages in insertion order.
// Media rows carry the mime type derived from the stored filename so
// history renders the same as the live broadcast.
func (r *MessageRepo) ListMessagesForRoom(ctx context.Context, roomID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, sender, message, kind, time, chat_room_id
         FROM chats WHERE chat_room_id=$1 ORDER BY id ASC`, roomID)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].Kind == models.MessageKindMedia {
			msgs[i].MimeType = models.MimeTypeForFilename(msgs[i].Body)
		}
	}
	return msgs, nil
}

// ListLatestMessagePerRoom returns the most recent message of every room
// for the admin dashboard.
func (r *MessageRepo) ListLatestMessagePerRoom(ctx context.Context) ([]models.RoomSummary, error) {
	query := `WITH ranked AS (
            SELECT cr.room_id, cr."user", c.time, c.message, c.chat_room_id,
                   ROW_NUMBER() OVER (PARTITION BY c.chat_room_id ORDER BY c.id DESC) AS rank
            FROM chats c
            INNER JOIN chat_room cr ON c.chat_room_id = cr.id
        )
        SELECT room_id, "user", time, message, chat_room_id FROM ranked WHERE rank = 1`
	var summaries []models.RoomSummary
	err := r.db.SelectContext(ctx, &summaries, query)
	return summaries, err
}
