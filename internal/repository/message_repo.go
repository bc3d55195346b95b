package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/unilodge/unilodge-api/internal/models"
)

// MessageRepository persists the append-only message log of a conversation.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	ListSince(ctx context.Context, conversationID, afterID, excludeSenderID uint) ([]models.Message, error)
	ListByConversation(ctx context.Context, conversationID uint, limit int) ([]models.Message, error)
	MarkReadExcept(ctx context.Context, conversationID, viewerID uint) error
	LatestID(ctx context.Context, conversationID uint) (uint, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// ListSince returns messages with id > afterID not authored by
// excludeSenderID, ascending by id. The sender exclusion exists because the
// live channel never needs to echo a viewer's own sends back to them.
func (r *messageRepository) ListSince(ctx context.Context, conversationID, afterID, excludeSenderID uint) ([]models.Message, error) {
	var messages []models.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND id > ? AND sender_id <> ?", conversationID, afterID, excludeSenderID).
		Order("id ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID uint, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var messages []models.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse to ascending id order for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *messageRepository) MarkReadExcept(ctx context.Context, conversationID, viewerID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, viewerID, false).
		Update("is_read", true).Error
}

func (r *messageRepository) LatestID(ctx context.Context, conversationID uint) (uint, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id DESC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return message.ID, nil
}
