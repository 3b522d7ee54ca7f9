package repository

import (
	"context"

	"egotalk/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	PageBefore(ctx context.Context, roomID string, cursorID *string, limit int) ([]models.Message, error)
	ExistsInRoom(ctx context.Context, roomID, messageID string) (bool, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// PageBefore returns up to limit messages newest-first. With a cursor, only
// messages strictly before the cursor message in (created_at, seq) order are
// returned; the tuple comparison keeps rows that share the cursor's timestamp
// but carry a lower seq, so backward pagination never skips a tie.
// Callers over-fetch by one row to learn whether more pages exist.
func (r *messageRepository) PageBefore(ctx context.Context, roomID string, cursorID *string, limit int) ([]models.Message, error) {
	var messages []models.Message

	query := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Preload("Sender").
		Order("created_at DESC, seq DESC").
		Limit(limit)

	if cursorID != nil {
		query = query.Where(
			"(created_at, seq) < (SELECT created_at, seq FROM messages WHERE id = ?)",
			*cursorID,
		)
	}

	err := query.Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) ExistsInRoom(ctx context.Context, roomID, messageID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("room_id = ? AND id = ?", roomID, messageID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
