package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"egotalk/internal/microservices/http-api/dto"
	"egotalk/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService service.ChatService
	logger      *slog.Logger
}

func NewChatHandler(chatService service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// RegisterRoutes registers chat routes (parent group carries auth middleware)
func (h *ChatHandler) RegisterRoutes(router *gin.RouterGroup) {
	chats := router.Group("/chats")
	{
		chats.GET("", h.List)
		chats.POST("", h.Create)
		chats.GET("/:roomId/info", h.Info)
		chats.GET("/:roomId/messages", h.History)
		chats.POST("/:roomId/messages", h.Send)
		chats.POST("/:roomId/read", h.MarkRead)
		chats.PATCH("/:roomId/mute", h.SetMute)
	}
}

// List returns the caller's rooms with last message and unread aggregation
// GET /api/chats
func (h *ChatHandler) List(c *gin.Context) {
	items, err := h.chatService.ListRooms(c.Request.Context(), c.GetString("profileID"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Envelope{Success: true, Data: items})
}

// Create creates a room, or returns the existing room for a dm pair
// POST /api/chats
func (h *ChatHandler) Create(c *gin.Context) {
	var req dto.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Envelope{
			Success: false,
			Message: err.Error(),
			Code:    "INVALID_INPUT",
		})
		return
	}

	room, created, err := h.chatService.CreateChat(
		c.Request.Context(), c.GetString("profileID"), req.Type, req.MemberIDs, req.Title)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// 201 for a freshly created room, 200 for an existing dm match.
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.Envelope{Success: true, Data: room})
}

// Info returns room metadata for members; non-members get 404
// GET /api/chats/:roomId/info
func (h *ChatHandler) Info(c *gin.Context) {
	info, err := h.chatService.RoomInfo(c.Request.Context(), c.Param("roomId"), c.GetString("profileID"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Envelope{Success: true, Data: info})
}

// History returns one page of messages, oldest→newest
// GET /api/chats/:roomId/messages?cursor=...&limit=30
func (h *ChatHandler) History(c *gin.Context) {
	var cursor *string
	if v := c.Query("cursor"); v != "" {
		cursor = &v
	}
	// Invalid limits fall back to the default, they are never rejected.
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if err != nil {
		limit = service.DefaultPageLimit
	}

	page, err := h.chatService.GetMessages(
		c.Request.Context(), c.Param("roomId"), c.GetString("profileID"), cursor, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Envelope{Success: true, Data: page})
}

// Send persists a message and triggers the same broadcast as the socket path
// POST /api/chats/:roomId/messages
func (h *ChatHandler) Send(c *gin.Context) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Envelope{
			Success: false,
			Message: err.Error(),
			Code:    "INVALID_INPUT",
		})
		return
	}

	message, err := h.chatService.SendMessage(
		c.Request.Context(), c.Param("roomId"), c.GetString("profileID"), req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.Envelope{Success: true, Data: message})
}

// MarkRead moves the caller's read cursor
// POST /api/chats/:roomId/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	var req dto.ReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Envelope{
			Success: false,
			Message: err.Error(),
			Code:    "INVALID_INPUT",
		})
		return
	}

	resp, err := h.chatService.MarkRead(
		c.Request.Context(), c.Param("roomId"), c.GetString("profileID"), req.LastReadMessageID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Envelope{Success: true, Data: resp})
}

// SetMute toggles room notifications for the caller
// PATCH /api/chats/:roomId/mute
func (h *ChatHandler) SetMute(c *gin.Context) {
	var req dto.MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Envelope{
			Success: false,
			Message: err.Error(),
			Code:    "INVALID_INPUT",
		})
		return
	}

	resp, err := h.chatService.SetMute(
		c.Request.Context(), c.Param("roomId"), c.GetString("profileID"), *req.Mute)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Envelope{Success: true, Data: resp})
}

// respondError maps service errors onto the stable status/code contract.
// NOT_A_MEMBER is distinct from NOT_FOUND: a room may exist without the
// caller being in it.
func (h *ChatHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, dto.Envelope{
			Success: false, Message: err.Error(), Code: "INVALID_INPUT",
		})
	case errors.Is(err, service.ErrMessageTooLong):
		c.JSON(http.StatusBadRequest, dto.Envelope{
			Success: false, Message: err.Error(), Code: "MESSAGE_TOO_LONG",
		})
	case errors.Is(err, service.ErrNotAMember):
		c.JSON(http.StatusForbidden, dto.Envelope{
			Success: false, Message: "You are not a member of this chat room", Code: "NOT_A_MEMBER",
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.Envelope{
			Success: false, Message: err.Error(), Code: "NOT_FOUND",
		})
	default:
		h.logger.Error("chat handler failed",
			"path", c.FullPath(), "profile_id", c.GetString("profileID"), "error", err)
		c.JSON(http.StatusInternalServerError, dto.Envelope{
			Success: false, Message: "Internal server error", Code: "INTERNAL_ERROR",
		})
	}
}
