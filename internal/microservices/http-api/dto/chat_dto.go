package dto

import "time"

// Envelope is the REST response wrapper shared by every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// CreateChatRequest: payload for room creation
type CreateChatRequest struct {
	Type      string   `json:"type" binding:"required"`
	MemberIDs []string `json:"member_ids" binding:"required"`
	Title     *string  `json:"title"`
}

// SendMessageRequest: payload for sending a message over REST
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// ReadRequest: payload for moving the caller's read cursor
type ReadRequest struct {
	LastReadMessageID string `json:"last_read_message_id" binding:"required"`
}

// MuteRequest: payload for toggling room notifications.
// Pointer so "mute": false still binds as present.
type MuteRequest struct {
	Mute *bool `json:"mute" binding:"required"`
}

// MessageResponse is the canonical message shape, identical on REST and
// socket paths so the client reconciliation layer sees one format.
type MessageResponse struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type LastMessagePreview struct {
	Content    string    `json:"content"`
	SenderName string    `json:"sender_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type RoomListItem struct {
	RoomID      string              `json:"room_id"`
	Type        string              `json:"type"`
	Title       string              `json:"title"` // synthesized for dm rooms
	LastMessage *LastMessagePreview `json:"last_message"`
	UnreadCount int64               `json:"unread_count"`
	MemberCount int64               `json:"member_count"`
}

type CreateChatResponse struct {
	RoomID    string    `json:"room_id"`
	Type      string    `json:"type"`
	Title     *string   `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type RoomInfoResponse struct {
	RoomID      string   `json:"room_id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	MemberNames []string `json:"member_names"`
	MemberCount int      `json:"member_count"`
}

type HistoryResponse struct {
	Messages   []MessageResponse `json:"messages"`
	NextCursor *string           `json:"next_cursor"`
	HasMore    bool              `json:"has_more"`
}

type ReadResponse struct {
	RoomID            string    `json:"room_id"`
	ProfileID         string    `json:"profile_id"`
	LastReadMessageAt time.Time `json:"last_read_message_at"`
}

type MuteResponse struct {
	RoomID string `json:"room_id"`
	Mute   bool   `json:"mute"`
}

// Socket broadcast payloads. Top-level keys are camelCase, the embedded
// message keeps the REST snake_case shape.

type MessageNewPayload struct {
	RoomID  string          `json:"roomId"`
	Message MessageResponse `json:"message"`
}

type ChatUpdatedPayload struct {
	RoomID string `json:"roomId"`
}

type ReadUpdatePayload struct {
	RoomID            string `json:"roomId"`
	ProfileID         string `json:"profileId"`
	LastReadMessageID string `json:"lastReadMessageId"`
}

type TypingPayload struct {
	RoomID      string `json:"roomId"`
	ProfileID   string `json:"profileId"`
	DisplayName string `json:"displayName,omitempty"`
}
