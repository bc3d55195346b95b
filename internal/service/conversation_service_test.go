package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/unilodge/unilodge-api/internal/dto"
	"github.com/unilodge/unilodge-api/internal/models"
)

func uintPtr(v uint) *uint { return &v }

type conversationFixture struct {
	conversations *memConversationRepo
	messages      *memMessageRepo
	notifications *memNotificationRepo
	users         memUserDirectory
	properties    memPropertyDirectory
	service       ConversationService
}

func newConversationFixture(t *testing.T) *conversationFixture {
	t.Helper()

	conversations := newMemConversationRepo()
	messages := &memMessageRepo{}
	notifications := &memNotificationRepo{}
	uow := &memUnitOfWork{conversations: conversations, messages: messages, notifications: notifications}
	users := memUserDirectory{
		1: {ID: 1, Name: "Alice", Role: models.RoleStudent},
		2: {ID: 2, Name: "Bob", Role: models.RoleOwner},
		3: {ID: 3, Name: "Clara", Role: models.RoleAdmin},
		4: {ID: 4, Name: "Dan", Role: models.RoleStudent},
	}
	properties := memPropertyDirectory{
		42: {ID: 42, OwnerID: 2, Title: "Room near campus"},
	}

	return &conversationFixture{
		conversations: conversations,
		messages:      messages,
		notifications: notifications,
		users:         users,
		properties:    properties,
		service:       NewConversationService(conversations, users, properties, uow, validator.New(), zerolog.Nop()),
	}
}

func TestStartCreatesConversationWithWelcomeMessage(t *testing.T) {
	fixture := newConversationFixture(t)

	created, err := fixture.service.Start(context.Background(), 1, dto.ConversationStartRequest{
		PartnerID:  2,
		PropertyID: uintPtr(42),
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, string(models.ConversationStudentOwner), created.Type)
	require.Equal(t, uintPtr(1), created.StudentID)
	require.Equal(t, uintPtr(2), created.OwnerID)
	require.Equal(t, uintPtr(42), created.PropertyID)

	require.Len(t, fixture.messages.messages, 1)
	welcome := fixture.messages.messages[0]
	require.Equal(t, created.ID, welcome.ConversationID)
	require.Equal(t, uint(models.SystemSenderID), welcome.SenderID)
	require.NotEmpty(t, welcome.Body)
}

func TestStartReturnsExistingConversation(t *testing.T) {
	fixture := newConversationFixture(t)

	first, err := fixture.service.Start(context.Background(), 1, dto.ConversationStartRequest{
		PartnerID:  2,
		PropertyID: uintPtr(42),
	})
	require.NoError(t, err)

	// The owner opening from their side must land on the same thread.
	second, err := fixture.service.Start(context.Background(), 2, dto.ConversationStartRequest{
		PartnerID:  1,
		PropertyID: uintPtr(42),
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, fixture.messages.messages, 1, "welcome message is seeded once")
}

func TestStartSeparatesConversationsByProperty(t *testing.T) {
	fixture := newConversationFixture(t)
	fixture.properties[43] = models.Property{ID: 43, OwnerID: 2, Title: "Other room"}

	first, err := fixture.service.Start(context.Background(), 1, dto.ConversationStartRequest{
		PartnerID:  2,
		PropertyID: uintPtr(42),
	})
	require.NoError(t, err)

	second, err := fixture.service.Start(context.Background(), 1, dto.ConversationStartRequest{
		PartnerID:  2,
		PropertyID: uintPtr(43),
	})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
}

func TestStartDerivesOwnerAdminType(t *testing.T) {
	fixture := newConversationFixture(t)

	created, err := fixture.service.Start(context.Background(), 3, dto.ConversationStartRequest{PartnerID: 2})
	require.NoError(t, err)
	require.Equal(t, string(models.ConversationOwnerAdmin), created.Type)
	require.Equal(t, uintPtr(2), created.OwnerID)
	require.Equal(t, uintPtr(3), created.AdminID)
	require.Nil(t, created.StudentID)
}

func TestStartRejectsInvalidPairings(t *testing.T) {
	fixture := newConversationFixture(t)

	_, err := fixture.service.Start(context.Background(), 1, dto.ConversationStartRequest{PartnerID: 1})
	require.ErrorIs(t, err, ErrValidation)

	_, err = fixture.service.Start(context.Background(), 1, dto.ConversationStartRequest{PartnerID: 4})
	require.ErrorIs(t, err, ErrValidation, "two students cannot open a thread")

	_, err = fixture.service.Start(context.Background(), 1, dto.ConversationStartRequest{PartnerID: 99})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = fixture.service.Start(context.Background(), 1, dto.ConversationStartRequest{PartnerID: 2, PropertyID: uintPtr(999)})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAuthorizeGatesNonParticipants(t *testing.T) {
	fixture := newConversationFixture(t)

	created, err := fixture.service.Start(context.Background(), 1, dto.ConversationStartRequest{PartnerID: 2})
	require.NoError(t, err)

	conversation, err := fixture.service.Authorize(context.Background(), created.ID, 1)
	require.NoError(t, err)
	require.Equal(t, created.ID, conversation.ID)

	_, err = fixture.service.Authorize(context.Background(), created.ID, 4)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = fixture.service.Authorize(context.Background(), 999, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListForUserReturnsOnlyOwnThreads(t *testing.T) {
	fixture := newConversationFixture(t)

	_, err := fixture.service.Start(context.Background(), 1, dto.ConversationStartRequest{PartnerID: 2})
	require.NoError(t, err)
	_, err = fixture.service.Start(context.Background(), 4, dto.ConversationStartRequest{PartnerID: 2})
	require.NoError(t, err)

	mine, err := fixture.service.ListForUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	owners, err := fixture.service.ListForUser(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, owners, 2)
}
