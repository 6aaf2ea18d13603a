package handlers

import (
	"errors"
	"time"

	"fable/pkg/apperr"
	"fable/pkg/models"
	"fable/pkg/services"

	"github.com/gofiber/fiber/v2"
)

const refreshCookieName = "refresh_token"

type AuthHandler struct {
	auth       services.AuthService
	production bool
}

func NewAuth(auth services.AuthService, production bool) *AuthHandler {
	return &AuthHandler{auth: auth, production: production}
}

func (h *AuthHandler) CheckDuplicate(c *fiber.Ctx) error {
	req, err := parseBody[models.CheckDuplicateRequest](c)
	if err != nil {
		return fail(c, "AUTH", err)
	}

	exists, err := h.auth.CheckDuplicate(req.Username)
	if err != nil {
		return fail(c, "AUTH", err)
	}
	return c.JSON(fiber.Map{"exists": exists})
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	req, err := parseBody[models.SignupRequest](c)
	if err != nil {
		return fail(c, "AUTH", err)
	}

	user, err := h.auth.Signup(req)
	if err != nil {
		return fail(c, "AUTH", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user_id": user.ID})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	req, err := parseBody[models.LoginRequest](c)
	if err != nil {
		return fail(c, "AUTH", err)
	}

	resp, refreshToken, expiresAt, err := h.auth.Login(req)
	if err != nil {
		return fail(c, "AUTH", err)
	}

	h.setRefreshCookie(c, refreshToken, expiresAt)
	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	resp, err := h.auth.Refresh(c.Cookies(refreshCookieName))
	if err != nil {
		// A cookie that failed verification can never succeed on retry;
		// clearing it forces the client back to a clean login.
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Status == fiber.StatusUnauthorized {
			h.clearRefreshCookie(c)
		}
		return fail(c, "AUTH", err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	err := h.auth.Logout(c.Cookies(refreshCookieName))
	h.clearRefreshCookie(c)
	if err != nil {
		return fail(c, "AUTH", err)
	}
	return c.JSON(fiber.Map{"message": "logged out"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"user_id": c.Locals("user_id"),
		"name":    c.Locals("name"),
	})
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name: refreshCookieName, Value: token, Expires: expires,
		HTTPOnly: true, Secure: h.production, SameSite: "Lax", Path: "/",
	})
}

func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name: refreshCookieName, Value: "", Expires: time.Now().Add(-1 * time.Hour),
		HTTPOnly: true, Path: "/",
	})
}
