package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/unilodge/unilodge-api/internal/dto"
	"github.com/unilodge/unilodge-api/internal/service"
	"github.com/unilodge/unilodge-api/internal/utils"
)

// ConversationHandler wires the thread lifecycle endpoints.
type ConversationHandler struct {
	service   service.ConversationService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewConversationHandler creates a conversation handler instance.
func NewConversationHandler(service service.ConversationService, validate *validator.Validate, logger zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "conversation_handler").Logger(),
	}
}

// Register binds conversation routes under the provided router group.
func (h *ConversationHandler) Register(router fiber.Router) {
	router.Post("/", h.start)
	router.Get("/", h.list)
}

func (h *ConversationHandler) start(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.ConversationStartRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	conversation, err := h.service.Start(requestContext(c), userID, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "conversation ready", conversation)
}

func (h *ConversationHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	conversations, err := h.service.ListForUser(requestContext(c), userID)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "conversations", conversations)
}
