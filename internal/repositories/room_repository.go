package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"support-chat-service/internal/models"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrNoAgentAvailable = errors.New("no agent available")
)

const roomColumns = `id, room_id, status, date, "user", csr`

// RoomRepository abstracts room and agent-availability persistence.
type RoomRepository interface {
	FindOpenRoomByCustomer(ctx context.Context, customerID string) (models.Room, error)
	FindOpenRoomByAgent(ctx context.Context, agentID int) (models.AgentAssignment, error)
	CreateRoom(ctx context.Context, customerID string) (models.Room, error)
	ResolveRoom(ctx context.Context, externalID string) (int, error)
	CloseRoom(ctx context.Context, roomID int, agentID int) error
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// FindOpenRoomByCustomer looks up the unique open room owned by a customer.
func (r *RoomRepo) FindOpenRoomByCustomer(ctx context.Context, customerID string) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room,
		`SELECT `+roomColumns+` FROM chat_room WHERE "user"=$1 AND status=$2`,
		customerID, models.RoomStatusOpen)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// FindOpenRoomByAgent returns the room assigned to an agent joined with
// the customer profile for display.
func (r *RoomRepo) FindOpenRoomByAgent(ctx context.Context, agentID int) (models.AgentAssignment, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room,
		`SELECT `+roomColumns+` FROM chat_room WHERE csr=$1 AND status=$2`,
		agentID, models.RoomStatusOpen)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AgentAssignment{}, ErrRoomNotFound
	}
	if err != nil {
		return models.AgentAssignment{}, err
	}

	assignment := models.AgentAssignment{Room: room}
	err = r.db.QueryRowxContext(ctx,
		`SELECT username, email FROM users WHERE user_id=$1`, room.Customer).
		Scan(&assignment.Username, &assignment.Email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.AgentAssignment{}, err
	}
	return assignment, nil
}

// CreateRoom claims one available agent and opens a room for the customer
// in a single transaction. The agent claim uses FOR UPDATE SKIP LOCKED so
// two concurrent calls competing for the last agent cannot double-assign;
// the loser sees no available row and gets ErrNoAgentAvailable. The
// customer id doubles as the external room token.
func (r *RoomRepo) CreateRoom(ctx context.Context, customerID string) (models.Room, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var agentID int
	err = tx.QueryRowxContext(ctx,
		`UPDATE admin SET available = FALSE
         WHERE id = (
             SELECT id FROM admin
             WHERE available = TRUE AND role = $1
             ORDER BY id
             FOR UPDATE SKIP LOCKED
             LIMIT 1
         )
         RETURNING id`, "csr").Scan(&agentID)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNoAgentAvailable
		return models.Room{}, err
	}
	if err != nil {
		return models.Room{}, err
	}

	var room models.Room
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO chat_room (room_id, status, date, "user", csr)
         VALUES ($1, $2, CURRENT_DATE, $3, $4)
         RETURNING `+roomColumns,
		customerID, models.RoomStatusOpen, customerID, agentID).
		Scan(&room.ID, &room.ExternalID, &room.Status, &room.Date, &room.Customer, &room.AgentID)
	if err != nil {
		return models.Room{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// ResolveRoom maps an external room token to the internal surrogate key.
func (r *RoomRepo) ResolveRoom(ctx context.Context, externalID string) (int, error) {
	var id int
	err := r.db.GetContext(ctx, &id, `SELECT id FROM chat_room WHERE room_id=$1`, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRoomNotFound
	}
	return id, err
}

// CloseRoom deletes the room's messages, the room row and releases the
// agent as a single atomic unit. A racing message insert either lands
// before the delete or fails its foreign key; it can never leak a row
// referencing a half-deleted room.
func (r *RoomRepo) CloseRoom(ctx context.Context, roomID int, agentID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM chats WHERE chat_room_id=$1`, roomID); err != nil {
		return err
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx, `DELETE FROM chat_room WHERE id=$1`, roomID)
	if err != nil {
		return err
	}
	var count int64
	count, err = res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		err = ErrRoomNotFound
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE admin SET available = TRUE WHERE id=$1`, agentID); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}
