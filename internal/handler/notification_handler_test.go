package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/unilodge/unilodge-api/internal/dto"
	"github.com/unilodge/unilodge-api/internal/service"
)

type stubNotificationService struct {
	notifications []dto.NotificationResponse
	unread        int64
	marked        dto.NotificationResponse
	err           error
}

func (s *stubNotificationService) Dispatch(_ context.Context, _ dto.NotificationResponse) {}

func (s *stubNotificationService) List(_ context.Context, _ uint, _, _ int) ([]dto.NotificationResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.notifications, nil
}

func (s *stubNotificationService) CountUnread(_ context.Context, _ uint) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.unread, nil
}

func (s *stubNotificationService) MarkRead(_ context.Context, _, _ uint) (dto.NotificationResponse, error) {
	if s.err != nil {
		return dto.NotificationResponse{}, s.err
	}
	return s.marked, nil
}

func (s *stubNotificationService) Subscribe(_ uint) (<-chan dto.NotificationResponse, func()) {
	events := make(chan dto.NotificationResponse, len(s.notifications))
	for _, notification := range s.notifications {
		events <- notification
	}
	close(events)
	return events, func() {}
}

func (s *stubNotificationService) Start(_ context.Context) {}

func newNotificationTestApp(svc service.NotificationService, auth fiber.Handler) *fiber.App {
	app := fiber.New()
	group := app.Group("/notifications")
	if auth != nil {
		group.Use(auth)
	}
	NewNotificationHandler(svc, zerolog.Nop(), time.Second).Register(group)
	return app
}

func TestListNotifications(t *testing.T) {
	svc := &stubNotificationService{notifications: []dto.NotificationResponse{{ID: 1, UserID: 5, Type: "chat_message"}}}
	app := newNotificationTestApp(svc, authAs(5))

	resp, err := app.Test(httptest.NewRequest("GET", "/notifications/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `"chat_message"`)
}

func TestUnreadCount(t *testing.T) {
	app := newNotificationTestApp(&stubNotificationService{unread: 4}, authAs(5))

	resp, err := app.Test(httptest.NewRequest("GET", "/notifications/unread-count", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `"count":4`)
}

func TestMarkReadMapsNotFound(t *testing.T) {
	app := newNotificationTestApp(&stubNotificationService{err: service.ErrNotFound}, authAs(5))

	resp, err := app.Test(httptest.NewRequest("PATCH", "/notifications/99/read", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNotificationStreamWritesEvents(t *testing.T) {
	svc := &stubNotificationService{notifications: []dto.NotificationResponse{{ID: 1, UserID: 5, Type: "chat_message"}}}
	app := newNotificationTestApp(svc, authAs(5))

	resp, err := app.Test(httptest.NewRequest("GET", "/notifications/stream", nil), 2000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "event: notification\n")
	require.Contains(t, string(body), `"chat_message"`)
}

func TestNotificationsRequireAuthentication(t *testing.T) {
	app := newNotificationTestApp(&stubNotificationService{}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/notifications/unread-count", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
