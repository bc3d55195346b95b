package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/unilodge/unilodge-api/internal/dto"
	"github.com/unilodge/unilodge-api/internal/middleware"
	"github.com/unilodge/unilodge-api/internal/service"
	"github.com/unilodge/unilodge-api/internal/utils"
)

// MessageHandler wires the send path, history, typing pings, and the SSE live
// update channel for a conversation.
type MessageHandler struct {
	messages  service.MessageService
	streams   service.StreamService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewMessageHandler creates a message handler instance.
func NewMessageHandler(messages service.MessageService, streams service.StreamService, validate *validator.Validate, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		messages:  messages,
		streams:   streams,
		validator: validate,
		logger:    logger.With().Str("component", "message_handler").Logger(),
	}
}

// Register binds message routes under a conversation-scoped router group.
// typingLimiter guards the keystroke-driven ping endpoint; pass nil to skip.
func (h *MessageHandler) Register(router fiber.Router, typingLimiter fiber.Handler) {
	router.Post("/:id/messages", h.send)
	router.Get("/:id/messages", h.history)
	if typingLimiter != nil {
		router.Post("/:id/typing", typingLimiter, h.typing)
	} else {
		router.Post("/:id/typing", h.typing)
	}
	router.Get("/:id/stream", h.stream)
}

func (h *MessageHandler) send(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	conversationID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid conversation id")
	}

	var payload dto.MessageSendRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.messages.Send(requestContext(c), conversationID, userID, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *MessageHandler) history(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	conversationID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid conversation id")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	messages, err := h.messages.History(requestContext(c), conversationID, userID, limit)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "message history", messages)
}

func (h *MessageHandler) typing(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	conversationID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid conversation id")
	}

	if err := h.messages.TypingPing(requestContext(c), conversationID, userID); err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "typing recorded", nil)
}

// stream opens the live update channel as a server-sent event stream. The
// resumption cursor comes from the Last-Event-ID header (standard SSE
// reconnect convention) or a cursor query parameter.
func (h *MessageHandler) stream(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	conversationID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid conversation id")
	}

	cursor, err := streamCursor(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid cursor")
	}

	// The poll loop outlives this handler, so it gets its own cancellable
	// context instead of the request's.
	ctx := middleware.ContextWithCorrelation(context.Background(), middleware.GetCorrelationID(c))
	ctx, cancel := context.WithCancel(ctx)

	events, err := h.streams.Open(ctx, service.StreamOptions{
		ConversationID: conversationID,
		ViewerID:       userID,
		Cursor:         cursor,
	})
	if err != nil {
		cancel()
		return sendServiceError(c, h.logger, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := h.logger.With().Uint("conversation_id", conversationID).Uint("viewer_id", userID).Logger()
	logger.Info().Msg("live channel opened")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer logger.Info().Msg("live channel closed")

		for event := range events {
			if err := writeStreamEvent(w, event); err != nil {
				logger.Debug().Err(err).Msg("live channel write failed, assuming disconnect")
				return
			}
		}
	})

	return nil
}

func streamCursor(c *fiber.Ctx) (uint, error) {
	raw := strings.TrimSpace(c.Get("Last-Event-ID"))
	if raw == "" {
		raw = strings.TrimSpace(c.Query("cursor"))
	}
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

func writeStreamEvent(w *bufio.Writer, event service.StreamEvent) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Name); err != nil {
		return err
	}
	if event.ID > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", event.ID); err != nil {
			return err
		}
	}

	payload := []byte("{}")
	if event.Data != nil {
		marshaled, err := json.Marshal(event.Data)
		if err != nil {
			return err
		}
		payload = marshaled
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}
