package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/unilodge/unilodge-api/internal/dto"
	"github.com/unilodge/unilodge-api/internal/models"
	"github.com/unilodge/unilodge-api/internal/observability"
	"github.com/unilodge/unilodge-api/internal/repository"
)

// NotificationTypeMessage labels notifications produced by the chat fan-out.
const NotificationTypeMessage = "chat_message"

// ConversationAuthorizer is the subset of the conversation service the
// message paths need: the participant access gate.
type ConversationAuthorizer interface {
	Authorize(ctx context.Context, conversationID, userID uint) (models.Conversation, error)
}

// NotificationDispatcher pushes an already-persisted notification to live
// subscribers after the send transaction commits.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, notification dto.NotificationResponse)
}

// MessageService owns the send path, history retrieval, and typing pings.
type MessageService interface {
	Send(ctx context.Context, conversationID, senderID uint, payload dto.MessageSendRequest) (dto.MessageResponse, error)
	History(ctx context.Context, conversationID, viewerID uint, limit int) ([]dto.MessageResponse, error)
	TypingPing(ctx context.Context, conversationID, userID uint) error
}

type messageService struct {
	authorizer ConversationAuthorizer
	users      repository.UserDirectory
	messages   repository.MessageRepository
	typing     repository.TypingStore
	uow        repository.UnitOfWork
	dispatcher NotificationDispatcher
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewMessageService constructs a message service.
func NewMessageService(
	authorizer ConversationAuthorizer,
	users repository.UserDirectory,
	messages repository.MessageRepository,
	typing repository.TypingStore,
	uow repository.UnitOfWork,
	dispatcher NotificationDispatcher,
	validate *validator.Validate,
	logger zerolog.Logger,
) MessageService {
	return &messageService{
		authorizer: authorizer,
		users:      users,
		messages:   messages,
		typing:     typing,
		uow:        uow,
		dispatcher: dispatcher,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "message_service").Logger(),
		tracer:     otel.Tracer("github.com/unilodge/unilodge-api/internal/service/message"),
	}
}

// Send appends a message to the conversation log. The message insert, the
// conversation freshness bump, and the counterpart notification commit in a
// single transaction; a failure in any of them rolls all three back.
func (s *messageService) Send(ctx context.Context, conversationID, senderID uint, payload dto.MessageSendRequest) (dto.MessageResponse, error) {
	conversation, err := s.authorizer.Authorize(ctx, conversationID, senderID)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	body := strings.TrimSpace(s.sanitizer.Sanitize(payload.Body))
	if body == "" {
		return dto.MessageResponse{}, fmt.Errorf("%w: message body is required", ErrValidation)
	}
	if err := s.validator.Struct(dto.MessageSendRequest{Body: body}); err != nil {
		return dto.MessageResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	counterpartID, ok := conversation.CounterpartOf(senderID)
	if !ok {
		return dto.MessageResponse{}, fmt.Errorf("conversation %d has no counterpart for sender %d", conversationID, senderID)
	}

	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "message.send", trace.WithAttributes(
		attribute.Int("chat.conversation_id", int(conversationID)),
		attribute.Int("chat.sender_id", int(senderID)),
	))
	defer span.End()

	message := models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
	}
	notification := models.Notification{
		UserID:     counterpartID,
		PropertyID: conversation.PropertyID,
		Type:       NotificationTypeMessage,
		Message:    notificationSummary(sender.Name, body),
	}

	err = s.uow.Do(spanCtx, func(stores repository.Stores) error {
		if err := stores.Messages.Create(spanCtx, &message); err != nil {
			return err
		}
		if err := stores.Conversations.Touch(spanCtx, conversationID); err != nil {
			return err
		}
		notification.Data = datatypes.JSONMap{
			"conversation_id": strconv.FormatUint(uint64(conversationID), 10),
			"message_id":      strconv.FormatUint(uint64(message.ID), 10),
			"sender_id":       strconv.FormatUint(uint64(senderID), 10),
		}
		return stores.Notifications.Create(spanCtx, &notification)
	})
	if err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	s.dispatcher.Dispatch(spanCtx, dto.NewNotificationResponse(notification))
	observability.MessagesSentTotal().WithLabelValues(string(conversation.Type)).Inc()

	s.logger.Info().
		Uint("conversation_id", conversationID).
		Uint("message_id", message.ID).
		Uint("sender_id", senderID).
		Msg("message sent")

	return dto.NewMessageResponse(message), nil
}

// History returns the conversation log ascending by id and flips the read
// flag on every message the viewer did not author.
func (s *messageService) History(ctx context.Context, conversationID, viewerID uint, limit int) ([]dto.MessageResponse, error) {
	if _, err := s.authorizer.Authorize(ctx, conversationID, viewerID); err != nil {
		return nil, err
	}

	if err := s.messages.MarkReadExcept(ctx, conversationID, viewerID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByConversation(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}

	return dto.NewMessageResponseSlice(messages), nil
}

// TypingPing records keystroke activity for the freshness-window read on the
// live channel. Safe to call at high frequency.
func (s *messageService) TypingPing(ctx context.Context, conversationID, userID uint) error {
	if _, err := s.authorizer.Authorize(ctx, conversationID, userID); err != nil {
		return err
	}

	if err := s.typing.Ping(ctx, conversationID, userID); err != nil {
		return err
	}

	observability.TypingPingsTotal().Inc()
	return nil
}

func notificationSummary(senderName, body string) string {
	const maxPreview = 120
	preview := body
	if runes := []rune(body); len(runes) > maxPreview {
		preview = string(runes[:maxPreview]) + "…"
	}
	return fmt.Sprintf("New message from %s: %s", senderName, preview)
}
