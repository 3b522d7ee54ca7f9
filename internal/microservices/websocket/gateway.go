package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"egotalk/internal/microservices/http-api/dto"
	"egotalk/internal/microservices/http-api/service"

	"github.com/google/uuid"
)

// Gateway dispatches decoded events to the chat service. All validation and
// authorization failures reply on the same connection as error events; a
// handler never drops the connection.
type Gateway struct {
	chat   service.ChatService
	hub    *Hub
	logger *slog.Logger
}

func NewGateway(chat service.ChatService, hub *Hub, logger *slog.Logger) *Gateway {
	return &Gateway{chat: chat, hub: hub, logger: logger}
}

func (g *Gateway) HandleEvent(c *Client, evt Event) {
	switch evt.Event {
	case EventRoomJoin:
		g.handleRoomJoin(c, evt.Data)
	case EventMessageSend:
		g.handleMessageSend(c, evt.Data)
	case EventTypingStart, EventTypingStop:
		g.handleTyping(c, evt.Event, evt.Data)
	case EventMessageRead:
		g.handleMessageRead(c, evt.Data)
	default:
		g.logger.Debug("ignoring unknown event", "event", evt.Event, "client_id", c.ID)
	}
}

func (g *Gateway) handleRoomJoin(c *Client, data json.RawMessage) {
	var payload RoomJoinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		c.SendEvent(EventError, ErrorPayload{
			Code:    "INVALID_INPUT",
			Message: "roomId must be a valid UUID",
		})
		return
	}

	member, err := g.chat.IsMember(context.Background(), payload.RoomID, c.ProfileID)
	if err != nil {
		g.sendError(c, err)
		return
	}
	if !member {
		c.SendEvent(EventError, ErrorPayload{
			Code:    "NOT_A_MEMBER",
			Message: "You are not a member of this chat room",
		})
		return
	}

	g.hub.Join(payload.RoomID, c)
	c.SendEvent(EventRoomJoined, RoomJoinedPayload{RoomID: payload.RoomID})
}

func (g *Gateway) handleMessageSend(c *Client, data json.RawMessage) {
	var payload MessageSendPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		c.SendEvent(EventError, ErrorPayload{
			Code:    "INVALID_INPUT",
			Message: "roomId must be a valid UUID",
		})
		return
	}

	// The service persists and broadcasts; the sender receives the
	// authoritative echo through its room group like everyone else.
	_, err := g.chat.SendMessage(context.Background(), payload.RoomID, c.ProfileID, payload.Content)
	if err != nil {
		g.sendError(c, err)
	}
}

// handleTyping relays typing state to the other connections in the room's
// group. Typing is best-effort: malformed input, including a roomId that is
// not a UUID, is dropped, never erred.
func (g *Gateway) handleTyping(c *Client, event string, data json.RawMessage) {
	var payload RoomJoinPayload
	if err := json.Unmarshal(data, &payload); err != nil || uuid.Validate(payload.RoomID) != nil {
		return
	}

	relay := dto.TypingPayload{
		RoomID:    payload.RoomID,
		ProfileID: c.ProfileID,
	}
	if event == EventTypingStart {
		relay.DisplayName = c.DisplayName
	}
	g.hub.ToRoomExcept(payload.RoomID, c, event, relay)
}

func (g *Gateway) handleMessageRead(c *Client, data json.RawMessage) {
	var payload MessageReadPayload
	if err := json.Unmarshal(data, &payload); err != nil ||
		payload.RoomID == "" || payload.LastReadMessageID == "" {
		c.SendEvent(EventError, ErrorPayload{
			Code:    "INVALID_INPUT",
			Message: "roomId and lastReadMessageId are required",
		})
		return
	}

	// The service broadcasts message:read:update to the room on success.
	_, err := g.chat.MarkRead(context.Background(), payload.RoomID, c.ProfileID, payload.LastReadMessageID)
	if err != nil {
		g.sendError(c, err)
	}
}

// sendError maps a service error onto the stable error-code contract and
// replies on the same connection. Internal failures are logged with the
// connection id and surfaced generically.
func (g *Gateway) sendError(c *Client, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.SendEvent(EventError, ErrorPayload{Code: "INVALID_INPUT", Message: err.Error()})
	case errors.Is(err, service.ErrMessageTooLong):
		c.SendEvent(EventError, ErrorPayload{Code: "MESSAGE_TOO_LONG", Message: err.Error()})
	case errors.Is(err, service.ErrNotAMember):
		c.SendEvent(EventError, ErrorPayload{Code: "NOT_A_MEMBER", Message: "You are not a member of this chat room"})
	case errors.Is(err, service.ErrNotFound):
		c.SendEvent(EventError, ErrorPayload{Code: "NOT_FOUND", Message: err.Error()})
	default:
		g.logger.Error("socket handler failed",
			"client_id", c.ID, "profile_id", c.ProfileID, "error", err)
		c.SendEvent(EventError, ErrorPayload{Code: "INTERNAL_ERROR", Message: "internal error"})
	}
}
