package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"support-chat-service/internal/mocks"
	"support-chat-service/internal/models"
	"support-chat-service/internal/repositories"
)

type rawServerEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func startRelayServer(t *testing.T, rooms *mocks.RoomRepositoryMock, messages *mocks.MessageRepositoryMock) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	relay := NewRelay(hub, rooms, messages, nil)
	handler := NewSupportWebSocketHandler(hub, relay)

	router := gin.New()
	router.GET("/support/ws", handler.Handle)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/support/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(ClientFrame{Event: event, Data: raw})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func readEvent(t *testing.T, conn *websocket.Conn) rawServerEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var event rawServerEvent
	require.NoError(t, json.Unmarshal(raw, &event))
	return event
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no message, but received one")
	}
	netErr, ok := err.(net.Error)
	if !ok || !netErr.Timeout() {
		t.Fatalf("unexpected error while waiting for silence: %v", err)
	}
}

func TestSendMessagePersistsAndBroadcastsToRoom(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	srv := startRelayServer(t, rooms, messages)

	stored := models.Message{ID: 11, Sender: "alice", Body: "hello", Kind: models.MessageKindText, Time: "02:15 PM", RoomID: 5}
	rooms.On("ResolveRoom", mock.Anything, "cust-1").Return(5, nil).Once()
	messages.On("CreateMessage", mock.Anything, "alice", "hello", models.MessageKindText, mock.AnythingOfType("string"), 5).
		Return(stored, nil).Once()

	customer := dialWS(t, srv)
	agent := dialWS(t, srv)
	sendFrame(t, customer, EventJoinRoom, "cust-1")
	sendFrame(t, agent, EventJoinRoom, "cust-1")

	// The join frames are handled by separate read loops; give them a
	// beat to land before broadcasting.
	time.Sleep(100 * time.Millisecond)

	sendFrame(t, customer, EventSendMessage, SendPayload{Room: "cust-1", Author: "alice", Message: "hello", AckID: "a1"})

	got := readEvent(t, customer)
	require.Equal(t, EventReceiveMessage, got.Event)
	var msg models.Message
	require.NoError(t, json.Unmarshal(got.Data, &msg))
	assert.Equal(t, 11, msg.ID)
	assert.Equal(t, "hello", msg.Body)
	assert.Equal(t, models.MessageKindText, msg.Kind)

	ack := readEvent(t, customer)
	require.Equal(t, EventAck, ack.Event)
	var ackPayload AckPayload
	require.NoError(t, json.Unmarshal(ack.Data, &ackPayload))
	assert.Equal(t, "a1", ackPayload.AckID)
	assert.True(t, ackPayload.Success)

	other := readEvent(t, agent)
	require.Equal(t, EventReceiveMessage, other.Event)

	rooms.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestSendMessageUnknownRoomAcksError(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	srv := startRelayServer(t, rooms, messages)

	rooms.On("ResolveRoom", mock.Anything, "ghost").Return(0, repositories.ErrRoomNotFound).Once()

	conn := dialWS(t, srv)
	sendFrame(t, conn, EventSendMessage, SendPayload{Room: "ghost", Author: "alice", Message: "hello", AckID: "a2"})

	ack := readEvent(t, conn)
	require.Equal(t, EventAck, ack.Event)
	var ackPayload AckPayload
	require.NoError(t, json.Unmarshal(ack.Data, &ackPayload))
	assert.False(t, ackPayload.Success)
	assert.Equal(t, "room not found", ackPayload.Error)

	messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	rooms.AssertExpectations(t)
}

func TestUploadImageRelaysMediaMessage(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	srv := startRelayServer(t, rooms, messages)

	stored := models.Message{ID: 12, Sender: "alice", Body: "cust-1-17.png", Kind: models.MessageKindMedia, Time: "02:16 PM", RoomID: 5}
	rooms.On("ResolveRoom", mock.Anything, "cust-1").Return(5, nil).Once()
	messages.On("CreateMessage", mock.Anything, "alice", "cust-1-17.png", models.MessageKindMedia, mock.AnythingOfType("string"), 5).
		Return(stored, nil).Once()

	conn := dialWS(t, srv)
	sendFrame(t, conn, EventJoinRoom, "cust-1")
	time.Sleep(100 * time.Millisecond)

	sendFrame(t, conn, EventUploadImage, SendPayload{Room: "cust-1", Author: "alice", Message: "cust-1-17.png", AckID: "a3"})

	got := readEvent(t, conn)
	require.Equal(t, EventReceiveMessage, got.Event)
	var msg models.Message
	require.NoError(t, json.Unmarshal(got.Data, &msg))
	assert.Equal(t, models.MessageKindMedia, msg.Kind)
	assert.Equal(t, "image/png", msg.MimeType)

	rooms.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestCloseChatNotifiesOnlyCloser(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	srv := startRelayServer(t, rooms, messages)

	rooms.On("CloseRoom", mock.Anything, 5, 2).Return(nil).Once()

	closer := dialWS(t, srv)
	other := dialWS(t, srv)
	sendFrame(t, closer, EventJoinRoom, "cust-1")
	sendFrame(t, other, EventJoinRoom, "cust-1")
	time.Sleep(100 * time.Millisecond)

	sendFrame(t, closer, EventCloseChat, ClosePayload{ChatRoomID: 5, AdminID: 2})

	got := readEvent(t, closer)
	require.Equal(t, EventEndChat, got.Event)
	var payload EndChatPayload
	require.NoError(t, json.Unmarshal(got.Data, &payload))
	assert.Equal(t, "Chat has been closed", payload.Message)

	expectSilence(t, other)
	rooms.AssertExpectations(t)
}

func TestCloseChatFailureStaysSilent(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	srv := startRelayServer(t, rooms, messages)

	rooms.On("CloseRoom", mock.Anything, 9, 2).Return(fmt.Errorf("boom")).Once()

	conn := dialWS(t, srv)
	sendFrame(t, conn, EventCloseChat, ClosePayload{ChatRoomID: 9, AdminID: 2})

	expectSilence(t, conn)
	rooms.AssertExpectations(t)
}

// The read loop runs long after the upgrade handler has returned and
// net/http has canceled the request context. Repository calls made
// from it must still carry a live context.
func TestRelayContextOutlivesUpgradeHandler(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	srv := startRelayServer(t, rooms, messages)

	ctxErr := make(chan error, 1)
	stored := models.Message{ID: 13, Sender: "alice", Body: "still here", Kind: models.MessageKindText, Time: "02:17 PM", RoomID: 5}
	rooms.On("ResolveRoom", mock.Anything, "cust-1").
		Run(func(args mock.Arguments) {
			ctxErr <- args.Get(0).(context.Context).Err()
		}).
		Return(5, nil).Once()
	messages.On("CreateMessage", mock.Anything, "alice", "still here", models.MessageKindText, mock.AnythingOfType("string"), 5).
		Return(stored, nil).Once()

	conn := dialWS(t, srv)
	sendFrame(t, conn, EventJoinRoom, "cust-1")

	// Give the handler plenty of time to return before relaying.
	time.Sleep(300 * time.Millisecond)

	sendFrame(t, conn, EventSendMessage, SendPayload{Room: "cust-1", Author: "alice", Message: "still here", AckID: "a4"})

	select {
	case err := <-ctxErr:
		require.NoError(t, err, "repository call received a canceled context")
	case <-time.After(2 * time.Second):
		t.Fatal("relay never reached the repository")
	}

	got := readEvent(t, conn)
	require.Equal(t, EventReceiveMessage, got.Event)
	rooms.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestClassifyBody(t *testing.T) {
	if classifyBody("hello there") != models.MessageKindText {
		t.Fatalf("plain text misclassified")
	}
	if classifyBody("cust-1-17.PNG") != models.MessageKindMedia {
		t.Fatalf("bare media filename should classify as media")
	}
	if classifyBody("see photo.png attached") != models.MessageKindText {
		t.Fatalf("prose mentioning a filename must stay text")
	}
}
