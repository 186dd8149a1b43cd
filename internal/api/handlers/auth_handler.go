package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/tiktok-scheduler/configs"
	"github.com/maheshrc27/tiktok-scheduler/internal/models"
	"github.com/maheshrc27/tiktok-scheduler/internal/service"
	"github.com/maheshrc27/tiktok-scheduler/internal/transfer"
	"github.com/maheshrc27/tiktok-scheduler/pkg/utils"
)

type AuthHandler struct {
	s   service.AuthService
	cfg config.Config
}

func NewAuthHandler(cfg config.Config, service service.AuthService) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var creds transfer.Credentials
	if err := c.BodyParser(&creds); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	user, err := h.s.Register(c.Context(), creds.Email, creds.Password)
	if err != nil {
		return fail(c, err)
	}
	return h.startSession(c, fiber.StatusCreated, user)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var creds transfer.Credentials
	if err := c.BodyParser(&creds); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	user, err := h.s.Login(c.Context(), creds.Email, creds.Password)
	if err != nil {
		return fail(c, err)
	}
	return h.startSession(c, fiber.StatusOK, user)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:   h.cfg.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) startSession(c *fiber.Ctx, status int, user *models.User) error {
	ttl := time.Duration(h.cfg.SessionHours) * time.Hour
	token, err := utils.GenerateToken(h.cfg.SecretKey, strconv.FormatInt(user.ID, 10), ttl)
	if err != nil {
		return fail(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   false,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
	})

	return c.Status(status).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}
