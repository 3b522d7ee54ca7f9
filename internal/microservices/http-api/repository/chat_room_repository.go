package repository

import (
	"context"
	"errors"
	"time"

	"egotalk/internal/microservices/http-api/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateMember is returned when a room creation attempt inserts the
// same (room, user) pair twice. The whole transaction is rolled back.
var ErrDuplicateMember = errors.New("duplicate room member")

const pgUniqueViolation = "23505"

// RoomListEntry is one row of a profile's room list with the aggregates the
// list view needs: last message preview, unread count and member count.
type RoomListEntry struct {
	RoomID         string     `json:"room_id"`
	Type           string     `json:"type"`
	Title          *string    `json:"title"`
	RoomCreatedAt  time.Time  `json:"room_created_at"`
	LastContent    *string    `json:"last_content"`
	LastSenderName *string    `json:"last_sender_name"`
	LastMessageAt  *time.Time `json:"last_message_at"`
	UnreadCount    int64      `json:"unread_count"`
	MemberCount    int64      `json:"member_count"`
}

type ChatRoomRepository interface {
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	CreateRoom(ctx context.Context, roomType string, title *string, creatorID string, memberIDs []string) (*models.ChatRoom, error)
	FindDirectRoom(ctx context.Context, userA, userB string) (*models.ChatRoom, error)
	GetByID(ctx context.Context, roomID string) (*models.ChatRoom, error)
	SetMute(ctx context.Context, roomID, userID string, mute bool) (*models.ChatRoomMember, error)
	SetReadCursor(ctx context.Context, roomID, userID, messageID string) (time.Time, error)
	ListRooms(ctx context.Context, userID string) ([]RoomListEntry, error)
	MemberProfiles(ctx context.Context, roomID string) ([]models.Profile, error)
	UnmutedRecipientIDs(ctx context.Context, roomID, excludeUserID string) ([]string, error)
}

type chatRoomRepository struct {
	db *gorm.DB
}

func NewChatRoomRepository(db *gorm.DB) ChatRoomRepository {
	return &chatRoomRepository{db: db}
}

// IsMember is the single authorization primitive for every room-scoped
// operation: a profile may read/write a room iff its member row exists.
func (r *chatRoomRepository) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatRoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateRoom inserts the room and every member row (creator included) in one
// transaction. A failure on any row leaves no rows from the attempt.
func (r *chatRoomRepository) CreateRoom(ctx context.Context, roomType string, title *string, creatorID string, memberIDs []string) (*models.ChatRoom, error) {
	room := &models.ChatRoom{
		Type:  roomType,
		Title: title,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}

		members := make([]models.ChatRoomMember, 0, len(memberIDs)+1)
		members = append(members, models.ChatRoomMember{RoomID: room.ID, UserID: creatorID})
		for _, id := range memberIDs {
			members = append(members, models.ChatRoomMember{RoomID: room.ID, UserID: id})
		}

		return tx.Create(&members).Error
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateMember
		}
		return nil, err
	}

	return room, nil
}

// FindDirectRoom returns the dm room whose membership set is exactly
// {userA, userB}, or nil when no such room exists.
func (r *chatRoomRepository) FindDirectRoom(ctx context.Context, userA, userB string) (*models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.WithContext(ctx).Raw(`
		SELECT r.id, r.type, r.title, r.created_at
		FROM chat_rooms r
		WHERE r.type = 'dm'
		  AND EXISTS (
		    SELECT 1 FROM chat_room_members cm
		    WHERE cm.room_id = r.id AND cm.user_id = ?
		  )
		  AND EXISTS (
		    SELECT 1 FROM chat_room_members cm
		    WHERE cm.room_id = r.id AND cm.user_id = ?
		  )
		  AND (
		    SELECT COUNT(*) FROM chat_room_members cm WHERE cm.room_id = r.id
		  ) = 2
		LIMIT 1`,
		userA, userB,
	).Scan(&rooms).Error
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, nil
	}
	return &rooms[0], nil
}

func (r *chatRoomRepository) GetByID(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.WithContext(ctx).Where("id = ?", roomID).First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *chatRoomRepository) SetMute(ctx context.Context, roomID, userID string, mute bool) (*models.ChatRoomMember, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ChatRoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("mute", mute)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var member models.ChatRoomMember
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// SetReadCursor moves the member's read cursor to the given message. The
// cursor timestamp is derived from the message row itself so it always
// refers to a real message's created_at, never a client-supplied time.
func (r *chatRoomRepository) SetReadCursor(ctx context.Context, roomID, userID, messageID string) (time.Time, error) {
	var readAt []time.Time
	err := r.db.WithContext(ctx).Raw(`
		UPDATE chat_room_members
		SET last_read_message_id = ?,
		    last_read_message_at = (SELECT created_at FROM messages WHERE id = ?)
		WHERE room_id = ? AND user_id = ?
		RETURNING last_read_message_at`,
		messageID, messageID, roomID, userID,
	).Scan(&readAt).Error
	if err != nil {
		return time.Time{}, err
	}
	if len(readAt) == 0 {
		return time.Time{}, gorm.ErrRecordNotFound
	}
	return readAt[0], nil
}

// ListRooms returns one entry per membership of userID, newest activity
// first. Rooms with no messages fall back to their creation time.
// A NULL read cursor means the member has never read, so every message in
// the room counts as unread.
func (r *chatRoomRepository) ListRooms(ctx context.Context, userID string) ([]RoomListEntry, error) {
	var entries []RoomListEntry
	err := r.db.WithContext(ctx).Raw(`
		SELECT
		  r.id AS room_id,
		  r.type,
		  r.title,
		  r.created_at AS room_created_at,
		  lm.content AS last_content,
		  lm.display_name AS last_sender_name,
		  lm.created_at AS last_message_at,
		  (
		    SELECT COUNT(*)
		    FROM messages msg
		    WHERE msg.room_id = r.id
		      AND (m.last_read_message_at IS NULL OR msg.created_at > m.last_read_message_at)
		  ) AS unread_count,
		  (
		    SELECT COUNT(*)
		    FROM chat_room_members cm
		    WHERE cm.room_id = r.id
		  ) AS member_count
		FROM chat_room_members m
		JOIN chat_rooms r ON r.id = m.room_id
		LEFT JOIN LATERAL (
		  SELECT msg.content, msg.created_at, p.display_name
		  FROM messages msg
		  JOIN profiles p ON p.id = msg.sender_id
		  WHERE msg.room_id = r.id
		  ORDER BY msg.created_at DESC, msg.seq DESC
		  LIMIT 1
		) lm ON true
		WHERE m.user_id = ?
		ORDER BY COALESCE(lm.created_at, r.created_at) DESC`,
		userID,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *chatRoomRepository) MemberProfiles(ctx context.Context, roomID string) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).Raw(`
		SELECT p.id, p.username, p.display_name, p.created_at, p.updated_at
		FROM chat_room_members cm
		JOIN profiles p ON p.id = cm.user_id
		WHERE cm.room_id = ?
		ORDER BY cm.created_at ASC`,
		roomID,
	).Scan(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// UnmutedRecipientIDs lists the members that should receive a push for a new
// message: everyone in the room except the sender and muted members.
func (r *chatRoomRepository) UnmutedRecipientIDs(ctx context.Context, roomID, excludeUserID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.ChatRoomMember{}).
		Where("room_id = ? AND user_id != ? AND mute = false", roomID, excludeUserID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
