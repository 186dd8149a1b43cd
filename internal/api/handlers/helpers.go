package handlers

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/tiktok-scheduler/internal/models"
	"github.com/maheshrc27/tiktok-scheduler/internal/service"
)

func GetUserID(c *fiber.Ctx) int64 {
	raw, _ := c.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(raw, 10, 64)
	return userID
}

func accountOrDefault(account string) string {
	if account = strings.TrimSpace(account); account == "" {
		return models.DefaultAccount
	}
	return account
}

// errorBody maps a service error to its HTTP status and JSON body.
func errorBody(err error) (int, fiber.Map) {
	switch {
	case service.RequiresAuth(err):
		return fiber.StatusUnauthorized, fiber.Map{"error": err.Error(), "requiresAuth": true}
	case errors.Is(err, service.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, fiber.Map{"error": err.Error()}
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrNoMedia),
		errors.Is(err, service.ErrUnsupportedMedia):
		return fiber.StatusBadRequest, fiber.Map{"error": err.Error()}
	case errors.Is(err, service.ErrForbidden):
		return fiber.StatusForbidden, fiber.Map{"error": err.Error()}
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrFileNotFound):
		return fiber.StatusNotFound, fiber.Map{"error": err.Error()}
	case errors.Is(err, service.ErrAlreadyClaimed),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrEmailTaken):
		return fiber.StatusConflict, fiber.Map{"error": err.Error()}
	case service.IsGatewayError(err):
		return fiber.StatusBadGateway, fiber.Map{"error": err.Error()}
	default:
		slog.Error(err.Error())
		return fiber.StatusInternalServerError, fiber.Map{"error": "something went wrong"}
	}
}

func fail(c *fiber.Ctx, err error) error {
	status, body := errorBody(err)
	return c.Status(status).JSON(body)
}
