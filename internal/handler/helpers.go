package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/unilodge/unilodge-api/internal/middleware"
	"github.com/unilodge/unilodge-api/internal/service"
	"github.com/unilodge/unilodge-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseParamUint(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	if value == "" {
		return 0, errors.New("missing parameter")
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

// sendServiceError maps the service error taxonomy onto HTTP statuses.
// Unclassified errors surface as a generic internal failure; the detail stays
// in the server log, keyed by correlation id.
func sendServiceError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "not a participant of this conversation")
	case errors.Is(err, service.ErrNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	default:
		logger.Error().Err(err).Str("correlation_id", middleware.GetCorrelationID(c)).Msg("request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal error")
	}
}
