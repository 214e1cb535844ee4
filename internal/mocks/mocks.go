package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"support-chat-service/internal/models"
	"support-chat-service/internal/repositories"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) FindOpenRoomByCustomer(ctx context.Context, customerID string) (models.Room, error) {
	args := m.Called(ctx, customerID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) FindOpenRoomByAgent(ctx context.Context, agentID int) (models.AgentAssignment, error) {
	args := m.Called(ctx, agentID)
	var assignment models.AgentAssignment
	if val := args.Get(0); val != nil {
		assignment = val.(models.AgentAssignment)
	}
	return assignment, args.Error(1)
}

func (m *RoomRepositoryMock) CreateRoom(ctx context.Context, customerID string) (models.Room, error) {
	args := m.Called(ctx, customerID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) ResolveRoom(ctx context.Context, externalID string) (int, error) {
	args := m.Called(ctx, externalID)
	return args.Int(0), args.Error(1)
}

func (m *RoomRepositoryMock) CloseRoom(ctx context.Context, roomID int, agentID int) error {
	args := m.Called(ctx, roomID, agentID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, sender, body, kind, timestamp string, roomID int) (models.Message, error) {
	args := m.Called(ctx, sender, body, kind, timestamp, roomID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessagesForRoom(ctx context.Context, roomID int) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) ListLatestMessagePerRoom(ctx context.Context) ([]models.RoomSummary, error) {
	args := m.Called(ctx)
	var summaries []models.RoomSummary
	if val := args.Get(0); val != nil {
		summaries = val.([]models.RoomSummary)
	}
	return summaries, args.Error(1)
}

var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
