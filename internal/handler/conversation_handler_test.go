package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/unilodge/unilodge-api/internal/dto"
	"github.com/unilodge/unilodge-api/internal/models"
	"github.com/unilodge/unilodge-api/internal/service"
)

type stubConversationService struct {
	conversation dto.ConversationResponse
	summaries    []dto.ConversationSummaryResponse
	err          error
}

func (s *stubConversationService) Start(_ context.Context, _ uint, _ dto.ConversationStartRequest) (dto.ConversationResponse, error) {
	if s.err != nil {
		return dto.ConversationResponse{}, s.err
	}
	return s.conversation, nil
}

func (s *stubConversationService) Authorize(_ context.Context, _, _ uint) (models.Conversation, error) {
	return models.Conversation{}, nil
}

func (s *stubConversationService) ListForUser(_ context.Context, _ uint) ([]dto.ConversationSummaryResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.summaries, nil
}

func newConversationTestApp(svc service.ConversationService, auth fiber.Handler) *fiber.App {
	app := fiber.New()
	group := app.Group("/conversations")
	if auth != nil {
		group.Use(auth)
	}
	NewConversationHandler(svc, validator.New(), zerolog.Nop()).Register(group)
	return app
}

func TestStartConversationCreated(t *testing.T) {
	svc := &stubConversationService{conversation: dto.ConversationResponse{ID: 3, Type: "student_owner"}}
	app := newConversationTestApp(svc, authAs(1))

	req := httptest.NewRequest("POST", "/conversations/", strings.NewReader(`{"partner_id":2}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `"conversation ready"`)
	require.Contains(t, string(body), `"student_owner"`)
}

func TestStartConversationRejectsMissingPartner(t *testing.T) {
	app := newConversationTestApp(&stubConversationService{}, authAs(1))

	req := httptest.NewRequest("POST", "/conversations/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStartConversationMapsServiceErrors(t *testing.T) {
	app := newConversationTestApp(&stubConversationService{err: service.ErrNotFound}, authAs(1))

	req := httptest.NewRequest("POST", "/conversations/", strings.NewReader(`{"partner_id":2}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestListConversations(t *testing.T) {
	svc := &stubConversationService{summaries: []dto.ConversationSummaryResponse{
		{ConversationResponse: dto.ConversationResponse{ID: 1}, UnreadCount: 2},
	}}
	app := newConversationTestApp(svc, authAs(1))

	resp, err := app.Test(httptest.NewRequest("GET", "/conversations/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `"unread_count":2`)
}

func TestListConversationsRequiresAuthentication(t *testing.T) {
	app := newConversationTestApp(&stubConversationService{}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/conversations/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
