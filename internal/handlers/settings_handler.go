package handlers

import (
	"errors"
	"log/slog"

	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/middleware"
	"github.com/duospend/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type SettingsHandler struct {
	settingsService *services.SettingsService
}

func NewSettingsHandler(settingsService *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	settings, err := h.settingsService.Get()
	if err != nil {
		slog.Error("failed to load settings", "error", err)
		return internalError(c)
	}
	return c.JSON(services.View(settings, user.Role))
}

func (h *SettingsHandler) Patch(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	var upd dto.SettingsUpdate
	if err := c.BodyParser(&upd); err != nil {
		return badRequest(c, "Invalid request body")
	}

	settings, err := h.settingsService.Update(&upd, user.Role)
	if err != nil {
		if errors.Is(err, services.ErrNoUpdates) {
			return badRequest(c, "No updates provided")
		}
		slog.Error("failed to update settings", "error", err, "user_id", user.ID.String())
		return internalError(c)
	}
	return c.JSON(settings)
}
