package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/unilodge/unilodge-api/internal/dto"
	"github.com/unilodge/unilodge-api/internal/models"
	"github.com/unilodge/unilodge-api/internal/repository"
)

const welcomeMessageBody = "Welcome to Unilodge chat. Keep all communication and payments on the platform so we can protect both sides."

// ConversationService owns thread lifecycle and the participant access gate.
type ConversationService interface {
	Start(ctx context.Context, initiatorID uint, payload dto.ConversationStartRequest) (dto.ConversationResponse, error)
	Authorize(ctx context.Context, conversationID, userID uint) (models.Conversation, error)
	ListForUser(ctx context.Context, userID uint) ([]dto.ConversationSummaryResponse, error)
}

type conversationService struct {
	conversations repository.ConversationRepository
	users         repository.UserDirectory
	properties    repository.PropertyDirectory
	uow           repository.UnitOfWork
	validator     *validator.Validate
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewConversationService constructs a conversation service.
func NewConversationService(
	conversations repository.ConversationRepository,
	users repository.UserDirectory,
	properties repository.PropertyDirectory,
	uow repository.UnitOfWork,
	validate *validator.Validate,
	logger zerolog.Logger,
) ConversationService {
	return &conversationService{
		conversations: conversations,
		users:         users,
		properties:    properties,
		uow:           uow,
		validator:     validate,
		logger:        logger.With().Str("component", "conversation_service").Logger(),
		tracer:        otel.Tracer("github.com/unilodge/unilodge-api/internal/service/conversation"),
	}
}

// Start returns the existing thread between the two parties for the given
// property, creating it lazily on first contact. A new thread is seeded with
// a system-authored welcome message.
func (s *conversationService) Start(ctx context.Context, initiatorID uint, payload dto.ConversationStartRequest) (dto.ConversationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ConversationResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if payload.PartnerID == initiatorID {
		return dto.ConversationResponse{}, fmt.Errorf("%w: cannot start a conversation with yourself", ErrValidation)
	}

	initiator, err := s.users.FindByID(ctx, initiatorID)
	if err != nil {
		return dto.ConversationResponse{}, s.mapLookupErr(err, "initiator")
	}
	partner, err := s.users.FindByID(ctx, payload.PartnerID)
	if err != nil {
		return dto.ConversationResponse{}, s.mapLookupErr(err, "partner")
	}

	if payload.PropertyID != nil {
		if _, err := s.properties.FindByID(ctx, *payload.PropertyID); err != nil {
			return dto.ConversationResponse{}, s.mapLookupErr(err, "property")
		}
	}

	template, err := classifyParticipants(initiator, partner)
	if err != nil {
		return dto.ConversationResponse{}, err
	}
	template.PropertyID = payload.PropertyID

	existing, err := s.conversations.FindByParticipants(ctx, template.Type, initiator.ID, partner.ID, payload.PropertyID)
	if err == nil {
		return dto.NewConversationResponse(existing), nil
	}
	if !errors.Is(err, repository.ErrRecordNotFound) {
		return dto.ConversationResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "conversation.create", trace.WithAttributes(
		attribute.String("conversation.type", string(template.Type)),
		attribute.Int("conversation.initiator_id", int(initiator.ID)),
		attribute.Int("conversation.partner_id", int(partner.ID)),
	))
	defer span.End()

	conversation := template
	err = s.uow.Do(spanCtx, func(stores repository.Stores) error {
		if err := stores.Conversations.Create(spanCtx, &conversation); err != nil {
			return err
		}
		welcome := models.Message{
			ConversationID: conversation.ID,
			SenderID:       models.SystemSenderID,
			Body:           welcomeMessageBody,
		}
		return stores.Messages.Create(spanCtx, &welcome)
	})
	if err != nil {
		span.RecordError(err)
		return dto.ConversationResponse{}, err
	}

	s.logger.Info().
		Uint("conversation_id", conversation.ID).
		Str("type", string(conversation.Type)).
		Msg("conversation created")

	return dto.NewConversationResponse(conversation), nil
}

// Authorize is the sole access-control gate for conversation-scoped
// operations. It returns the conversation iff userID occupies a participant
// slot.
func (s *conversationService) Authorize(ctx context.Context, conversationID, userID uint) (models.Conversation, error) {
	conversation, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return models.Conversation{}, fmt.Errorf("%w: conversation %d", ErrNotFound, conversationID)
		}
		return models.Conversation{}, err
	}

	if !conversation.HasParticipant(userID) {
		return models.Conversation{}, fmt.Errorf("%w: user %d in conversation %d", ErrForbidden, userID, conversationID)
	}

	return conversation, nil
}

func (s *conversationService) ListForUser(ctx context.Context, userID uint) ([]dto.ConversationSummaryResponse, error) {
	summaries, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewConversationSummaryResponseSlice(summaries), nil
}

func (s *conversationService) mapLookupErr(err error, who string) error {
	if errors.Is(err, repository.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, who)
	}
	return err
}

// classifyParticipants derives the conversation type from the two account
// roles: an admin on either side makes it owner_admin, otherwise the pair is
// student_owner with slots assigned by role.
func classifyParticipants(a, b models.User) (models.Conversation, error) {
	if a.Role == models.RoleAdmin || b.Role == models.RoleAdmin {
		admin, other := a, b
		if b.Role == models.RoleAdmin {
			admin, other = b, a
		}
		return models.Conversation{
			Type:    models.ConversationOwnerAdmin,
			OwnerID: &other.ID,
			AdminID: &admin.ID,
		}, nil
	}

	switch {
	case a.Role == models.RoleStudent && b.Role == models.RoleOwner:
		return models.Conversation{Type: models.ConversationStudentOwner, StudentID: &a.ID, OwnerID: &b.ID}, nil
	case a.Role == models.RoleOwner && b.Role == models.RoleStudent:
		return models.Conversation{Type: models.ConversationStudentOwner, StudentID: &b.ID, OwnerID: &a.ID}, nil
	default:
		return models.Conversation{}, fmt.Errorf("%w: conversation requires a student/owner or owner/admin pairing", ErrValidation)
	}
}
