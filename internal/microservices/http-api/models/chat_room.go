package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoomTypeDM    = "dm"
	RoomTypeGroup = "group"
)

type ChatRoom struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Type      string    `gorm:"not null;index" json:"type"` // "dm" or "group"
	Title     *string   `json:"title"`                      // null for dm rooms; synthesized at read time
	CreatedAt time.Time `json:"created_at"`
}

func (r *ChatRoom) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

// ChatRoomMember is the authorization edge between a profile and a room.
// A profile may read/write a room iff its member row exists.
type ChatRoomMember struct {
	RoomID            string     `gorm:"type:uuid;not null;uniqueIndex:idx_room_user" json:"room_id"`
	UserID            string     `gorm:"type:uuid;not null;uniqueIndex:idx_room_user;index" json:"user_id"`
	LastReadMessageID *string    `gorm:"type:uuid" json:"last_read_message_id"`
	LastReadMessageAt *time.Time `json:"last_read_message_at"` // NULL = never read, every message counts as unread
	Mute              bool       `gorm:"not null;default:false" json:"mute"`
	CreatedAt         time.Time  `json:"created_at"`

	// Associations
	Room    *ChatRoom `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"room,omitempty"`
	Profile *Profile  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

func (ChatRoomMember) TableName() string {
	return "chat_room_members"
}
