package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"egotalk/internal/microservices/http-api/dto"
	"egotalk/internal/microservices/http-api/models"
	"egotalk/internal/microservices/http-api/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotAMember     = errors.New("not a member of this chat room")
	ErrMessageTooLong = errors.New("message too long")
	ErrNotFound       = errors.New("not found")
)

const (
	// Pagination bounds for message history.
	DefaultPageLimit = 30
	MaxPageLimit     = 50

	// Content bounds for a message, counted in runes after trimming.
	MaxContentLength = 1000
)

// Socket events emitted by the send/read pipelines. Both the REST and
// socket entry points converge on the same service methods, so the
// broadcasts stay identical regardless of how a message arrived.
const (
	EventMessageNew  = "message:new"
	EventChatUpdated = "chat:updated"
	EventReadUpdate  = "message:read:update"
)

// Broadcaster fans events out to live connections. The websocket hub
// implements it in-process; a multi-process deployment would swap in a
// pub/sub-backed implementation instead.
type Broadcaster interface {
	ToRoom(roomID string, event string, payload any)
	ToAll(event string, payload any)
}

// PushJob describes one push-notification dispatch. Delivery itself is an
// external collaborator consuming the queue.
type PushJob struct {
	RoomID       string   `json:"room_id"`
	SenderID     string   `json:"sender_id"`
	SenderName   string   `json:"sender_name"`
	Content      string   `json:"content"`
	RecipientIDs []string `json:"recipient_ids"`
}

type PushDispatcher interface {
	Enqueue(ctx context.Context, job PushJob) error
}

type ChatService interface {
	ListRooms(ctx context.Context, userID string) ([]dto.RoomListItem, error)
	CreateChat(ctx context.Context, creatorID, roomType string, memberIDs []string, title *string) (*dto.CreateChatResponse, bool, error)
	RoomInfo(ctx context.Context, roomID, userID string) (*dto.RoomInfoResponse, error)
	GetMessages(ctx context.Context, roomID, userID string, cursor *string, limit int) (*dto.HistoryResponse, error)
	SendMessage(ctx context.Context, roomID, senderID, content string) (*dto.MessageResponse, error)
	MarkRead(ctx context.Context, roomID, userID, messageID string) (*dto.ReadResponse, error)
	SetMute(ctx context.Context, roomID, userID string, mute bool) (*dto.MuteResponse, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	DisplayName(ctx context.Context, userID string) (string, error)
}

type chatService struct {
	roomRepo    repository.ChatRoomRepository
	messageRepo repository.MessageRepository
	profileRepo repository.ProfileRepository
	broadcaster Broadcaster
	push        PushDispatcher
	logger      *slog.Logger
}

func NewChatService(
	roomRepo repository.ChatRoomRepository,
	messageRepo repository.MessageRepository,
	profileRepo repository.ProfileRepository,
	broadcaster Broadcaster,
	push PushDispatcher,
	logger *slog.Logger,
) ChatService {
	return &chatService{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		profileRepo: profileRepo,
		broadcaster: broadcaster,
		push:        push,
		logger:      logger,
	}
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// ListRooms returns one entry per room membership, newest activity first.
// For dm rooms without an explicit title, the title is synthesized from the
// other members' display names.
func (s *chatService) ListRooms(ctx context.Context, userID string) ([]dto.RoomListItem, error) {
	if !isValidUUID(userID) {
		return nil, fmt.Errorf("%w: user id must be a valid UUID", ErrInvalidInput)
	}

	entries, err := s.roomRepo.ListRooms(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.RoomListItem, 0, len(entries))
	for _, e := range entries {
		title := ""
		if e.Title != nil {
			title = *e.Title
		}
		if title == "" {
			title, err = s.synthesizeTitle(ctx, e.RoomID, userID)
			if err != nil {
				return nil, err
			}
		}

		item := dto.RoomListItem{
			RoomID:      e.RoomID,
			Type:        e.Type,
			Title:       title,
			UnreadCount: e.UnreadCount,
			MemberCount: e.MemberCount,
		}
		if e.LastContent != nil && e.LastMessageAt != nil {
			senderName := ""
			if e.LastSenderName != nil {
				senderName = *e.LastSenderName
			}
			item.LastMessage = &dto.LastMessagePreview{
				Content:    *e.LastContent,
				SenderName: senderName,
				CreatedAt:  *e.LastMessageAt,
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// synthesizeTitle joins the display names of the room's other members.
func (s *chatService) synthesizeTitle(ctx context.Context, roomID, viewerID string) (string, error) {
	profiles, err := s.roomRepo.MemberProfiles(ctx, roomID)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p.ID == viewerID {
			continue
		}
		names = append(names, p.DisplayName)
	}
	return strings.Join(names, ", "), nil
}

// CreateChat creates a room, or returns the existing room for a dm pair.
// The bool result is true when a new room was created.
func (s *chatService) CreateChat(ctx context.Context, creatorID, roomType string, memberIDs []string, title *string) (*dto.CreateChatResponse, bool, error) {
	if !isValidUUID(creatorID) {
		return nil, false, fmt.Errorf("%w: creator id must be a valid UUID", ErrInvalidInput)
	}
	if roomType != models.RoomTypeDM && roomType != models.RoomTypeGroup {
		return nil, false, fmt.Errorf(`%w: type must be "dm" or "group"`, ErrInvalidInput)
	}
	if len(memberIDs) < 1 {
		return nil, false, fmt.Errorf("%w: member_ids must contain at least 1 member", ErrInvalidInput)
	}

	seen := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		if !isValidUUID(id) {
			return nil, false, fmt.Errorf("%w: each member_id must be a valid UUID", ErrInvalidInput)
		}
		if id == creatorID {
			return nil, false, fmt.Errorf("%w: creator must not be included in member_ids", ErrInvalidInput)
		}
		if seen[id] {
			return nil, false, fmt.Errorf("%w: member_ids must not contain duplicates", ErrInvalidInput)
		}
		seen[id] = true
	}

	if roomType == models.RoomTypeDM {
		if len(memberIDs) != 1 {
			return nil, false, fmt.Errorf("%w: dm type requires exactly 1 member in member_ids", ErrInvalidInput)
		}
		// Idempotent dm creation: the same pair never gets a second room.
		existing, err := s.roomRepo.FindDirectRoom(ctx, creatorID, memberIDs[0])
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return roomToCreateResponse(existing), false, nil
		}
		// dm rooms carry no explicit title; the display title is synthesized
		title = nil
	}

	room, err := s.roomRepo.CreateRoom(ctx, roomType, normalizeTitle(title), creatorID, memberIDs)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateMember) {
			return nil, false, fmt.Errorf("%w: member_ids must not contain duplicates", ErrInvalidInput)
		}
		return nil, false, err
	}
	return roomToCreateResponse(room), true, nil
}

func normalizeTitle(title *string) *string {
	if title == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*title)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func roomToCreateResponse(room *models.ChatRoom) *dto.CreateChatResponse {
	return &dto.CreateChatResponse{
		RoomID:    room.ID,
		Type:      room.Type,
		Title:     room.Title,
		CreatedAt: room.CreatedAt,
	}
}

// RoomInfo returns room metadata for members. Non-members get ErrNotFound
// rather than ErrNotAMember so the room's existence is not revealed.
func (s *chatService) RoomInfo(ctx context.Context, roomID, userID string) (*dto.RoomInfoResponse, error) {
	if !isValidUUID(roomID) {
		return nil, fmt.Errorf("%w: roomId must be a valid UUID", ErrInvalidInput)
	}

	member, err := s.roomRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: chat room not found", ErrNotFound)
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: chat room not found", ErrNotFound)
		}
		return nil, err
	}

	profiles, err := s.roomRepo.MemberProfiles(ctx, roomID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.DisplayName)
	}

	title := ""
	if room.Title != nil {
		title = *room.Title
	}
	if title == "" {
		title, err = s.synthesizeTitle(ctx, roomID, userID)
		if err != nil {
			return nil, err
		}
	}

	return &dto.RoomInfoResponse{
		RoomID:      room.ID,
		Type:        room.Type,
		Title:       title,
		MemberNames: names,
		MemberCount: len(profiles),
	}, nil
}

// GetMessages is the cursor-paginated history read path. Pages run
// oldest→newest; next_cursor points at the oldest message of the page when
// older messages remain.
func (s *chatService) GetMessages(ctx context.Context, roomID, userID string, cursor *string, limit int) (*dto.HistoryResponse, error) {
	if !isValidUUID(roomID) {
		return nil, fmt.Errorf("%w: roomId must be a valid UUID", ErrInvalidInput)
	}
	if cursor != nil && !isValidUUID(*cursor) {
		return nil, fmt.Errorf("%w: cursor must be a valid UUID", ErrInvalidInput)
	}
	// Out-of-range limits are clamped, never rejected.
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	member, err := s.roomRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotAMember
	}

	// Over-fetch one row to learn whether an older page exists.
	rows, err := s.messageRepo.PageBefore(ctx, roomID, cursor, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	// rows are newest-first; reverse into chronological order.
	messages := make([]dto.MessageResponse, len(rows))
	for i, m := range rows {
		messages[len(rows)-1-i] = messageToResponse(&m)
	}

	var nextCursor *string
	if hasMore && len(messages) > 0 {
		oldest := messages[0].ID
		nextCursor = &oldest
	}

	return &dto.HistoryResponse{
		Messages:   messages,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func messageToResponse(m *models.Message) dto.MessageResponse {
	senderName := ""
	if m.Sender != nil {
		senderName = m.Sender.DisplayName
	}
	return dto.MessageResponse{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		SenderName: senderName,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
}

// SendMessage is the single send implementation behind both the REST and
// socket entry points: validate, persist, broadcast, then fire-and-forget
// push dispatch.
func (s *chatService) SendMessage(ctx context.Context, roomID, senderID, content string) (*dto.MessageResponse, error) {
	if !isValidUUID(roomID) {
		return nil, fmt.Errorf("%w: roomId must be a valid UUID", ErrInvalidInput)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content must not be empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, fmt.Errorf("%w: content must be %d characters or less", ErrMessageTooLong, MaxContentLength)
	}

	member, err := s.roomRepo.IsMember(ctx, roomID, senderID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotAMember
	}

	message := &models.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	senderName, err := s.profileRepo.DisplayName(ctx, senderID)
	if err != nil {
		s.logger.Warn("failed to resolve sender display name",
			"sender_id", senderID, "error", err)
	}

	resp := dto.MessageResponse{
		ID:         message.ID,
		RoomID:     message.RoomID,
		SenderID:   message.SenderID,
		SenderName: senderName,
		Content:    message.Content,
		CreatedAt:  message.CreatedAt,
	}

	s.broadcaster.ToRoom(roomID, EventMessageNew, dto.MessageNewPayload{
		RoomID:  roomID,
		Message: resp,
	})
	// Lightweight signal so room-list views refresh unread counts without
	// being joined to every room.
	s.broadcaster.ToAll(EventChatUpdated, dto.ChatUpdatedPayload{RoomID: roomID})

	// Push dispatch never blocks or fails the send path.
	go s.dispatchPush(roomID, senderID, senderName, content)

	return &resp, nil
}

func (s *chatService) dispatchPush(roomID, senderID, senderName, content string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("push dispatch panicked", "room_id", roomID, "panic", r)
		}
	}()

	// Detached from the request context: the send has already completed.
	ctx := context.Background()

	recipients, err := s.roomRepo.UnmutedRecipientIDs(ctx, roomID, senderID)
	if err != nil {
		s.logger.Error("push dispatch: failed to resolve recipients",
			"room_id", roomID, "error", err)
		return
	}
	if len(recipients) == 0 {
		return
	}

	job := PushJob{
		RoomID:       roomID,
		SenderID:     senderID,
		SenderName:   senderName,
		Content:      content,
		RecipientIDs: recipients,
	}
	if err := s.push.Enqueue(ctx, job); err != nil {
		s.logger.Error("push dispatch: enqueue failed",
			"room_id", roomID, "error", err)
	}
}

// MarkRead moves the caller's read cursor and broadcasts the update to the
// room so other members can render read state.
func (s *chatService) MarkRead(ctx context.Context, roomID, userID, messageID string) (*dto.ReadResponse, error) {
	if !isValidUUID(roomID) || !isValidUUID(messageID) {
		return nil, fmt.Errorf("%w: roomId and lastReadMessageId must be valid UUIDs", ErrInvalidInput)
	}

	member, err := s.roomRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotAMember
	}

	exists, err := s.messageRepo.ExistsInRoom(ctx, roomID, messageID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: message not found in this room", ErrNotFound)
	}

	readAt, err := s.roomRepo.SetReadCursor(ctx, roomID, userID, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAMember
		}
		return nil, err
	}

	s.broadcaster.ToRoom(roomID, EventReadUpdate, dto.ReadUpdatePayload{
		RoomID:            roomID,
		ProfileID:         userID,
		LastReadMessageID: messageID,
	})

	return &dto.ReadResponse{
		RoomID:            roomID,
		ProfileID:         userID,
		LastReadMessageAt: readAt,
	}, nil
}

func (s *chatService) SetMute(ctx context.Context, roomID, userID string, mute bool) (*dto.MuteResponse, error) {
	if !isValidUUID(roomID) {
		return nil, fmt.Errorf("%w: roomId must be a valid UUID", ErrInvalidInput)
	}

	member, err := s.roomRepo.SetMute(ctx, roomID, userID, mute)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAMember
		}
		return nil, err
	}

	return &dto.MuteResponse{
		RoomID: member.RoomID,
		Mute:   member.Mute,
	}, nil
}

func (s *chatService) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	if !isValidUUID(roomID) {
		return false, fmt.Errorf("%w: roomId must be a valid UUID", ErrInvalidInput)
	}
	return s.roomRepo.IsMember(ctx, roomID, userID)
}

func (s *chatService) DisplayName(ctx context.Context, userID string) (string, error) {
	return s.profileRepo.DisplayName(ctx, userID)
}
