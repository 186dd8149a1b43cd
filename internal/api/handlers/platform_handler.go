package handlers

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/tiktok-scheduler/configs"
	"github.com/maheshrc27/tiktok-scheduler/internal/service"
)

type PlatformHandler struct {
	ps  service.PlatformService
	ts  service.TokenService
	cfg config.Config
}

func NewPlatformHandler(ps service.PlatformService, ts service.TokenService, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{
		ps:  ps,
		ts:  ts,
		cfg: cfg,
	}
}

func (h *PlatformHandler) TiktokLogin(c *fiber.Ctx) error {
	userID := GetUserID(c)

	authURL, err := h.ps.GetAuthURL(c.Context(), userID, accountOrDefault(c.Query("account")))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"authUrl": authURL})
}

// TiktokCallback finishes the consent flow and sends the browser back to
// the frontend with the outcome in the query string.
func (h *PlatformHandler) TiktokCallback(c *fiber.Ctx) error {
	if denied := c.Query("error"); denied != "" {
		slog.Info("tiktok consent denied", "error", denied, "description", c.Query("error_description"))
		return h.redirect(c, url.Values{"error": {denied}})
	}

	account, err := h.ps.Callback(c.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		slog.Info("tiktok callback failed", "account", account, "error", err)
		return h.redirect(c, url.Values{"error": {err.Error()}})
	}

	return h.redirect(c, url.Values{"success": {"true"}, "account": {account}})
}

func (h *PlatformHandler) redirect(c *fiber.Ctx, params url.Values) error {
	redirectURL := fmt.Sprintf("%s/auth/tiktok?%s", h.cfg.FrontendURL, params.Encode())
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) TiktokStatus(c *fiber.Ctx) error {
	userID := GetUserID(c)

	status, err := h.ts.Status(c.Context(), userID, accountOrDefault(c.Query("account")))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(status)
}

func (h *PlatformHandler) TiktokAccounts(c *fiber.Ctx) error {
	accounts, err := h.ts.Accounts(c.Context(), GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(accounts)
}

func (h *PlatformHandler) TiktokDisconnect(c *fiber.Ctx) error {
	userID := GetUserID(c)
	account := accountOrDefault(c.Query("account"))

	removed, err := h.ts.Disconnect(c.Context(), userID, account)
	if err != nil {
		return fail(c, err)
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "account is not connected",
		})
	}

	return c.JSON(fiber.Map{"success": true, "account": account})
}
