package handlers

import (
	"time"

	"github.com/duospend/backend/internal/database"
	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	versionService *services.VersionService
}

func NewHealthHandler(versionService *services.VersionService) *HealthHandler {
	return &HealthHandler{versionService: versionService}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
	})
}

// Version reports the running version and, when reachable, the latest
// published release.
func (h *HealthHandler) Version(c *fiber.Ctx) error {
	return c.JSON(dto.VersionResponse{
		Current: h.versionService.Current(),
		Latest:  h.versionService.Latest(c.UserContext()),
	})
}
