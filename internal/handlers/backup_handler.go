package handlers

import (
	"errors"
	"log/slog"

	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type BackupHandler struct {
	backupService *services.BackupService
}

func NewBackupHandler(backupService *services.BackupService) *BackupHandler {
	return &BackupHandler{backupService: backupService}
}

func (h *BackupHandler) Export(c *fiber.Ctx) error {
	includeUsers := c.QueryBool("includeUsers", true)

	snapshot, err := h.backupService.Export(includeUsers)
	if err != nil {
		slog.Error("export failed", "error", err)
		return internalError(c)
	}
	return c.JSON(snapshot)
}

func (h *BackupHandler) Import(c *fiber.Ctx) error {
	var req dto.ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.backupService.Import(&req.Snapshot, req.Mode)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnsupportedMode):
			return badRequest(c, "Only replace mode is supported")
		case errors.Is(err, services.ErrSnapshotInvalid):
			return badRequest(c, err.Error())
		default:
			slog.Error("import failed", "error", err)
			return internalError(c)
		}
	}
	return c.JSON(resp)
}
