package models

import "time"

// Room statuses. Closed rooms are hard-deleted, so only open rooms
// are ever observed in the table.
const (
	RoomStatusOpen   = 0
	RoomStatusClosed = 1
)

// Room is a single support session between one customer and one agent.
type Room struct {
	ID         int       `db:"id" json:"id"`
	ExternalID string    `db:"room_id" json:"room_id"`
	Status     int       `db:"status" json:"status"`
	Date       time.Time `db:"date" json:"date"`
	Customer   string    `db:"user" json:"user"`
	AgentID    int       `db:"csr" json:"csr"`
}

// AgentAssignment is the room currently owned by an agent joined with
// the customer's profile for display.
type AgentAssignment struct {
	Room     Room
	Username string `db:"username"`
	Email    string `db:"email"`
}

// User holds the customer profile fields read for agent display.
type User struct {
	UserID   string `db:"user_id" json:"user_id"`
	Username string `db:"username" json:"username"`
	Email    string `db:"email" json:"email"`
}

// Agent models an availability row. Availability exactly mirrors
// whether the agent owns an open room.
type Agent struct {
	ID        int    `db:"id" json:"id"`
	Available bool   `db:"available" json:"available"`
	Role      string `db:"role" json:"role"`
}
