package service

import (
	"context"
	"fmt"
	"time"

	"github.com/unilodge/unilodge-api/internal/dto"
	"github.com/unilodge/unilodge-api/internal/models"
	"github.com/unilodge/unilodge-api/internal/repository"
)

// In-memory fakes shared across the service tests. They honor the same
// contracts as the GORM repositories, including rollback through the stub
// unit of work.

type memConversationRepo struct {
	conversations map[uint]models.Conversation
	nextID        uint
	touched       []uint
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{conversations: make(map[uint]models.Conversation)}
}

func (r *memConversationRepo) Create(_ context.Context, conversation *models.Conversation) error {
	r.nextID++
	conversation.ID = r.nextID
	now := time.Now().UTC()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	r.conversations[conversation.ID] = *conversation
	return nil
}

func (r *memConversationRepo) FindByID(_ context.Context, id uint) (models.Conversation, error) {
	conversation, ok := r.conversations[id]
	if !ok {
		return models.Conversation{}, repository.ErrRecordNotFound
	}
	return conversation, nil
}

func (r *memConversationRepo) FindByParticipants(_ context.Context, conversationType models.ConversationType, participantA, participantB uint, propertyID *uint) (models.Conversation, error) {
	for _, conversation := range r.conversations {
		if conversation.Type != conversationType {
			continue
		}
		if !conversation.HasParticipant(participantA) || !conversation.HasParticipant(participantB) {
			continue
		}
		if (propertyID == nil) != (conversation.PropertyID == nil) {
			continue
		}
		if propertyID != nil && *conversation.PropertyID != *propertyID {
			continue
		}
		return conversation, nil
	}
	return models.Conversation{}, repository.ErrRecordNotFound
}

func (r *memConversationRepo) Touch(_ context.Context, id uint) error {
	r.touched = append(r.touched, id)
	if conversation, ok := r.conversations[id]; ok {
		conversation.UpdatedAt = time.Now().UTC()
		r.conversations[id] = conversation
	}
	return nil
}

func (r *memConversationRepo) ListForUser(_ context.Context, userID uint) ([]repository.ConversationSummary, error) {
	summaries := make([]repository.ConversationSummary, 0)
	for _, conversation := range r.conversations {
		if conversation.HasParticipant(userID) {
			summaries = append(summaries, repository.ConversationSummary{Conversation: conversation})
		}
	}
	return summaries, nil
}

func (r *memConversationRepo) snapshot() map[uint]models.Conversation {
	clone := make(map[uint]models.Conversation, len(r.conversations))
	for id, conversation := range r.conversations {
		clone[id] = conversation
	}
	return clone
}

type memMessageRepo struct {
	messages   []models.Message
	nextID     uint
	failCreate error
}

func (r *memMessageRepo) Create(_ context.Context, message *models.Message) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.nextID++
	message.ID = r.nextID
	message.CreatedAt = time.Now().UTC()
	r.messages = append(r.messages, *message)
	return nil
}

func (r *memMessageRepo) ListSince(_ context.Context, conversationID, afterID, excludeSenderID uint) ([]models.Message, error) {
	out := make([]models.Message, 0)
	for _, message := range r.messages {
		if message.ConversationID == conversationID && message.ID > afterID && message.SenderID != excludeSenderID {
			out = append(out, message)
		}
	}
	return out, nil
}

func (r *memMessageRepo) ListByConversation(_ context.Context, conversationID uint, _ int) ([]models.Message, error) {
	out := make([]models.Message, 0)
	for _, message := range r.messages {
		if message.ConversationID == conversationID {
			out = append(out, message)
		}
	}
	return out, nil
}

func (r *memMessageRepo) MarkReadExcept(_ context.Context, conversationID, viewerID uint) error {
	for i, message := range r.messages {
		if message.ConversationID == conversationID && message.SenderID != viewerID {
			r.messages[i].IsRead = true
		}
	}
	return nil
}

func (r *memMessageRepo) LatestID(_ context.Context, conversationID uint) (uint, error) {
	var latest uint
	for _, message := range r.messages {
		if message.ConversationID == conversationID && message.ID > latest {
			latest = message.ID
		}
	}
	return latest, nil
}

type memNotificationRepo struct {
	notifications []models.Notification
	nextID        uint
	failCreate    error
}

func (r *memNotificationRepo) Create(_ context.Context, notification *models.Notification) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.nextID++
	notification.ID = r.nextID
	notification.CreatedAt = time.Now().UTC()
	r.notifications = append(r.notifications, *notification)
	return nil
}

func (r *memNotificationRepo) ListByUser(_ context.Context, userID uint, _, _ int) ([]models.Notification, error) {
	out := make([]models.Notification, 0)
	for _, notification := range r.notifications {
		if notification.UserID == userID {
			out = append(out, notification)
		}
	}
	return out, nil
}

func (r *memNotificationRepo) CountUnread(_ context.Context, userID uint) (int64, error) {
	var count int64
	for _, notification := range r.notifications {
		if notification.UserID == userID && !notification.Read {
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) MarkRead(_ context.Context, id, userID uint) (models.Notification, error) {
	for i, notification := range r.notifications {
		if notification.ID == id && notification.UserID == userID {
			r.notifications[i].Read = true
			return r.notifications[i], nil
		}
	}
	return models.Notification{}, repository.ErrRecordNotFound
}

// memUnitOfWork mimics transactional semantics: state mutated by a failing
// function is restored, so partial writes are never observable.
type memUnitOfWork struct {
	conversations *memConversationRepo
	messages      *memMessageRepo
	notifications *memNotificationRepo
}

func (u *memUnitOfWork) Do(_ context.Context, fn func(stores repository.Stores) error) error {
	conversationSnapshot := u.conversations.snapshot()
	touchedSnapshot := len(u.conversations.touched)
	messageSnapshot := len(u.messages.messages)
	messageNextID := u.messages.nextID
	notificationSnapshot := len(u.notifications.notifications)
	notificationNextID := u.notifications.nextID

	err := fn(repository.Stores{
		Conversations: u.conversations,
		Messages:      u.messages,
		Notifications: u.notifications,
	})
	if err != nil {
		u.conversations.conversations = conversationSnapshot
		u.conversations.touched = u.conversations.touched[:touchedSnapshot]
		u.messages.messages = u.messages.messages[:messageSnapshot]
		u.messages.nextID = messageNextID
		u.notifications.notifications = u.notifications.notifications[:notificationSnapshot]
		u.notifications.nextID = notificationNextID
	}
	return err
}

type memUserDirectory map[uint]models.User

func (d memUserDirectory) FindByID(_ context.Context, id uint) (models.User, error) {
	user, ok := d[id]
	if !ok {
		return models.User{}, repository.ErrRecordNotFound
	}
	return user, nil
}

type memPropertyDirectory map[uint]models.Property

func (d memPropertyDirectory) FindByID(_ context.Context, id uint) (models.Property, error) {
	property, ok := d[id]
	if !ok {
		return models.Property{}, repository.ErrRecordNotFound
	}
	return property, nil
}

type stubTypingStore struct {
	typer  uint
	active bool
	err    error
	pings  []string
}

func (s *stubTypingStore) Ping(_ context.Context, conversationID, userID uint) error {
	if s.err != nil {
		return s.err
	}
	s.pings = append(s.pings, fmt.Sprintf("%d:%d", conversationID, userID))
	return nil
}

func (s *stubTypingStore) ActiveTyper(_ context.Context, _ uint, _ []uint) (uint, bool, error) {
	if s.err != nil {
		return 0, false, s.err
	}
	return s.typer, s.active, nil
}

type stubDispatcher struct {
	dispatched []dto.NotificationResponse
}

func (s *stubDispatcher) Dispatch(_ context.Context, notification dto.NotificationResponse) {
	s.dispatched = append(s.dispatched, notification)
}

type stubGate struct {
	conversation models.Conversation
	err          error
}

func (s *stubGate) Authorize(_ context.Context, _, _ uint) (models.Conversation, error) {
	if s.err != nil {
		return models.Conversation{}, s.err
	}
	return s.conversation, nil
}
