package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"support-chat-service/internal/repositories"
	"support-chat-service/internal/telemetry"
)

// RoomHandler manages the support room endpoints.
type RoomHandler struct {
	rooms    repositories.RoomRepository
	messages repositories.MessageRepository
	emitter  *telemetry.AuditEmitter
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(rooms repositories.RoomRepository, messages repositories.MessageRepository, emitter *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{rooms: rooms, messages: messages, emitter: emitter}
}

// FetchRoom returns the customer's open room, if any.
func (h *RoomHandler) FetchRoom(c *gin.Context) {
	customerID := c.Param("id")

	room, err := h.rooms.FindOpenRoomByCustomer(c.Request.Context(), customerID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No Room Found"})
			return
		}
		internalError(c, "fetch room", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Chat room already exists",
		"id":      room.ID,
		"roomId":  room.ExternalID,
	})
}

// FetchRoomCsr returns the room assigned to an agent with the
// customer's profile for display.
func (h *RoomHandler) FetchRoomCsr(c *gin.Context) {
	agentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid agent id"})
		return
	}

	assignment, err := h.rooms.FindOpenRoomByAgent(c.Request.Context(), agentID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No Support ticket is assigned now"})
			return
		}
		internalError(c, "fetch room for agent", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "You have a new support ticket",
		"username": assignment.Username,
		"email":    assignment.Email,
		"id":       assignment.Room.ID,
		"roomId":   assignment.Room.ExternalID,
	})
}

// CreateRoom opens a room for the customer by claiming one available
// agent. An existing open room is returned as-is; with every agent
// busy the outcome is reported as unavailable, not as an error.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	existing, err := h.rooms.FindOpenRoomByCustomer(c.Request.Context(), req.ID)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "room": existing})
		return
	}
	if !errors.Is(err, repositories.ErrRoomNotFound) {
		internalError(c, "check existing room", err)
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoAgentAvailable) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "All CSR are busy at the moment"})
			return
		}
		internalError(c, "create room", err)
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "chat room created", requestIDFromContext(c), userRefFromContext(c))
	c.JSON(http.StatusCreated, gin.H{"success": true, "room": room})
}

// GetChats returns the full history of a room in insertion order.
func (h *RoomHandler) GetChats(c *gin.Context) {
	roomID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid room id"})
		return
	}

	msgs, err := h.messages.ListMessagesForRoom(c.Request.Context(), roomID)
	if err != nil {
		internalError(c, "list messages", err)
		return
	}
	if len(msgs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No chat found!"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "chats": msgs})
}

// FetchRooms returns the most recent message per room for the admin
// dashboard.
func (h *RoomHandler) FetchRooms(c *gin.Context) {
	rooms, err := h.messages.ListLatestMessagePerRoom(c.Request.Context())
	if err != nil {
		internalError(c, "list rooms", err)
		return
	}
	if len(rooms) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No Room found!"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "rooms": rooms})
}

// internalError logs the raw store error and answers with an opaque
// message; store details never reach the client.
func internalError(c *gin.Context, op string, err error) {
	log.Printf("%s: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
}
