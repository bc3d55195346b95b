package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/unilodge/unilodge-api/internal/models"
)

// ErrRecordNotFound is returned when a lookup matches no row.
var ErrRecordNotFound = errors.New("record not found")

// ConversationSummary pairs a conversation with the derived fields the
// conversation list view needs.
type ConversationSummary struct {
	Conversation models.Conversation
	LastMessage  *models.Message
	UnreadCount  int64
}

// ConversationRepository persists conversation threads and their freshness.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *models.Conversation) error
	FindByID(ctx context.Context, id uint) (models.Conversation, error)
	FindByParticipants(ctx context.Context, conversationType models.ConversationType, participantA, participantB uint, propertyID *uint) (models.Conversation, error)
	Touch(ctx context.Context, id uint) error
	ListForUser(ctx context.Context, userID uint) ([]ConversationSummary, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository constructs a conversation repository backed by GORM.
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conversation *models.Conversation) error {
	return r.db.WithContext(ctx).Create(conversation).Error
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint) (models.Conversation, error) {
	var conversation models.Conversation
	if err := r.db.WithContext(ctx).First(&conversation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Conversation{}, ErrRecordNotFound
		}
		return models.Conversation{}, err
	}
	return conversation, nil
}

func (r *conversationRepository) FindByParticipants(ctx context.Context, conversationType models.ConversationType, participantA, participantB uint, propertyID *uint) (models.Conversation, error) {
	query := r.db.WithContext(ctx).Where("type = ?", conversationType)

	switch conversationType {
	case models.ConversationOwnerAdmin:
		query = query.Where(
			"(owner_id = ? AND admin_id = ?) OR (owner_id = ? AND admin_id = ?)",
			participantA, participantB, participantB, participantA,
		)
	default:
		query = query.Where(
			"(student_id = ? AND owner_id = ?) OR (student_id = ? AND owner_id = ?)",
			participantA, participantB, participantB, participantA,
		)
	}

	if propertyID != nil {
		query = query.Where("property_id = ?", *propertyID)
	} else {
		query = query.Where("property_id IS NULL")
	}

	var conversation models.Conversation
	if err := query.First(&conversation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Conversation{}, ErrRecordNotFound
		}
		return models.Conversation{}, err
	}
	return conversation, nil
}

func (r *conversationRepository) Touch(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	var conversations []models.Conversation
	if err := r.db.WithContext(ctx).
		Where("student_id = ? OR owner_id = ? OR admin_id = ?", userID, userID, userID).
		Order("updated_at DESC").
		Find(&conversations).Error; err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summary := ConversationSummary{Conversation: conversation}

		var last models.Message
		err := r.db.WithContext(ctx).
			Where("conversation_id = ?", conversation.ID).
			Order("id DESC").
			First(&last).Error
		if err == nil {
			summary.LastMessage = &last
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		if err := r.db.WithContext(ctx).
			Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversation.ID, userID, false).
			Count(&summary.UnreadCount).Error; err != nil {
			return nil, err
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}
