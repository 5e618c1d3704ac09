package handlers

import (
	"errors"
	"log/slog"

	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/middleware"
	"github.com/duospend/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		// Wrong credentials and disabled accounts answer identically so an
		// unauthenticated probe learns nothing about the account.
		if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrAccountDisabled) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid username or password",
			})
		}
		slog.Error("login failed", "error", err)
		return internalError(c)
	}

	return c.JSON(resp)
}

func (h *AuthHandler) Bootstrap(c *fiber.Ctx) error {
	var req dto.BootstrapRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.Bootstrap(&req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBootstrapDone):
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Bootstrap already completed",
			})
		case errors.Is(err, services.ErrPasswordTooShort):
			return badRequest(c, err.Error())
		case errors.Is(err, services.ErrNoSigningSecret):
			slog.Error("bootstrap failed", "error", err)
			return internalError(c)
		default:
			return badRequest(c, err.Error())
		}
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) BootstrapStatus(c *fiber.Ctx) error {
	hasUsers, err := h.authService.HasUsers()
	if err != nil {
		slog.Error("bootstrap status failed", "error", err)
		return internalError(c)
	}
	return c.JSON(dto.BootstrapStatusResponse{HasUsers: hasUsers})
}

func (h *AuthHandler) RequestReset(c *fiber.Ctx) error {
	var req dto.ResetRequestBody
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.RequestReset(req.Login)
	if err != nil {
		slog.Error("reset request failed", "error", err)
		return internalError(c)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Reset(c *fiber.Ctx) error {
	var req dto.ResetConsumeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.ConsumeReset(req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrResetInvalid):
			return badRequest(c, "Invalid or expired token")
		case errors.Is(err, services.ErrPasswordTooShort):
			return badRequest(c, err.Error())
		default:
			slog.Error("reset failed", "error", err)
			return internalError(c)
		}
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.ChangePassword(user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Current password is incorrect",
			})
		case errors.Is(err, services.ErrPasswordTooShort):
			return badRequest(c, err.Error())
		default:
			slog.Error("change password failed", "error", err, "user_id", user.ID.String())
			return internalError(c)
		}
	}
	return c.JSON(fiber.Map{"ok": true})
}
