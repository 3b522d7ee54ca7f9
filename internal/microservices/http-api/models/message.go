package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message rows are append-only. Ordering within a room is
// (created_at, seq); seq breaks ties between rows that share a timestamp.
type Message struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Seq       int64     `gorm:"autoIncrement;uniqueIndex" json:"-"`
	RoomID    string    `gorm:"type:uuid;not null;index:idx_messages_room_created" json:"room_id"`
	SenderID  string    `gorm:"type:uuid;not null;index" json:"sender_id"`
	Content   string    `gorm:"not null;type:text" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_messages_room_created" json:"created_at"`

	// Associations
	Sender *Profile `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

func (Message) TableName() string {
	return "messages"
}
