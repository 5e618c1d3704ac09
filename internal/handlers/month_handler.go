package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MonthHandler is the plain store/fetch surface for month documents. The
// payload is an opaque JSON object owned by the frontend.
type MonthHandler struct {
	db *gorm.DB
}

func NewMonthHandler(db *gorm.DB) *MonthHandler {
	return &MonthHandler{db: db}
}

func (h *MonthHandler) Get(c *fiber.Ctx) error {
	key, ok := monthKey(c)
	if !ok {
		return badRequest(c, "Month key must match YYYY-MM")
	}

	var month models.Month
	err := h.db.Where("month_key = ?", key).First(&month).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Month not found",
		})
	}
	if err != nil {
		slog.Error("failed to load month", "error", err, "month_key", key)
		return internalError(c)
	}

	return c.JSON(dto.MonthResponse{
		MonthKey:  month.MonthKey,
		Data:      json.RawMessage(month.Data),
		UpdatedAt: month.UpdatedAt,
	})
}

func (h *MonthHandler) Put(c *fiber.Ctx) error {
	key, ok := monthKey(c)
	if !ok {
		return badRequest(c, "Month key must match YYYY-MM")
	}

	var req dto.MonthUpsertRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(req.Data, &obj); err != nil || obj == nil {
		return badRequest(c, "Month data must be a JSON object")
	}

	var month models.Month
	err := h.db.Where("month_key = ?", key).First(&month).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		month = models.Month{MonthKey: key, Data: datatypes.JSON(req.Data)}
		if err := h.db.Create(&month).Error; err != nil {
			slog.Error("failed to create month", "error", err, "month_key", key)
			return internalError(c)
		}
	case err != nil:
		slog.Error("failed to load month", "error", err, "month_key", key)
		return internalError(c)
	default:
		month.Data = datatypes.JSON(req.Data)
		if err := h.db.Save(&month).Error; err != nil {
			slog.Error("failed to update month", "error", err, "month_key", key)
			return internalError(c)
		}
	}

	return c.JSON(dto.MonthResponse{
		MonthKey:  month.MonthKey,
		Data:      json.RawMessage(month.Data),
		UpdatedAt: month.UpdatedAt,
	})
}

func (h *MonthHandler) Delete(c *fiber.Ctx) error {
	key, ok := monthKey(c)
	if !ok {
		return badRequest(c, "Month key must match YYYY-MM")
	}

	result := h.db.Where("month_key = ?", key).Delete(&models.Month{})
	if result.Error != nil {
		slog.Error("failed to delete month", "error", result.Error, "month_key", key)
		return internalError(c)
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Month not found",
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// monthKey validates the :monthKey path parameter on every route carrying it.
func monthKey(c *fiber.Ctx) (string, bool) {
	key := c.Params("monthKey")
	if !models.MonthKeyPattern.MatchString(key) {
		return "", false
	}
	return key, true
}
