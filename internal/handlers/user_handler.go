package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/duospend/backend/internal/config"
	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/middleware"
	"github.com/duospend/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Allowed avatar content types, sniffed from the file itself.
var avatarExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

type UserHandler struct {
	userService *services.UserService
	cfg         *config.Config
}

func NewUserHandler(userService *services.UserService, cfg *config.Config) *UserHandler {
	return &UserHandler{userService: userService, cfg: cfg}
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	return c.JSON(services.ToUserResponse(user))
}

func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	updated, err := h.userService.UpdateProfile(user.ID, &req)
	if err != nil {
		if errors.Is(err, services.ErrNoUpdates) {
			return badRequest(c, "No updates provided")
		}
		if errors.Is(err, services.ErrUserNotFound) {
			return notFound(c, "User not found")
		}
		return badRequest(c, err.Error())
	}
	return c.JSON(services.ToUserResponse(updated))
}

// UploadAvatar accepts one multipart image capped in size, sniffs its real
// content type and stores it under a name derived from user id + timestamp.
func (h *UserHandler) UploadAvatar(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return badRequest(c, "Avatar file is required")
	}
	if fileHeader.Size > h.cfg.AvatarMaxBytes {
		return badRequest(c, fmt.Sprintf("Avatar must be at most %d bytes", h.cfg.AvatarMaxBytes))
	}

	src, err := fileHeader.Open()
	if err != nil {
		slog.Error("failed to open avatar upload", "error", err, "user_id", user.ID.String())
		return internalError(c)
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := src.Read(head)
	if err != nil && err != io.EOF {
		slog.Error("failed to read avatar upload", "error", err, "user_id", user.ID.String())
		return internalError(c)
	}

	ext, ok := avatarExtensions[http.DetectContentType(head[:n])]
	if !ok {
		return badRequest(c, "Avatar must be a PNG, JPEG or WebP image")
	}

	if err := os.MkdirAll(h.cfg.AvatarDir, 0o755); err != nil {
		slog.Error("failed to create avatar directory", "error", err)
		return internalError(c)
	}

	filename := fmt.Sprintf("%s_%d%s", user.ID, time.Now().Unix(), ext)
	dstPath := filepath.Join(h.cfg.AvatarDir, filename)
	dst, err := os.Create(dstPath)
	if err != nil {
		slog.Error("failed to create avatar file", "error", err)
		return internalError(c)
	}
	defer dst.Close()

	if _, err := dst.Write(head[:n]); err != nil {
		slog.Error("failed to write avatar file", "error", err)
		return internalError(c)
	}
	if _, err := io.Copy(dst, src); err != nil {
		slog.Error("failed to write avatar file", "error", err)
		return internalError(c)
	}

	old, err := h.userService.SetAvatar(user.ID, "/avatars/"+filename)
	if err != nil {
		slog.Error("failed to store avatar path", "error", err, "user_id", user.ID.String())
		return internalError(c)
	}

	// Stale file removal is best effort.
	if old != "" {
		_ = os.Remove(filepath.Join(h.cfg.AvatarDir, filepath.Base(old)))
	}

	return c.JSON(fiber.Map{"avatarUrl": "/avatars/" + filename})
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.userService.List()
	if err != nil {
		slog.Error("failed to list users", "error", err)
		return internalError(c)
	}

	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, services.ToUserResponse(&users[i]))
	}
	return c.JSON(out)
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.userService.Create(&req)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: "Username already taken",
			})
		}
		return badRequest(c, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(services.ToUserResponse(user))
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.userService.AdminUpdate(id, &req)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return notFound(c, "User not found")
		}
		if errors.Is(err, services.ErrNoUpdates) {
			return badRequest(c, "No updates provided")
		}
		return badRequest(c, err.Error())
	}
	return c.JSON(services.ToUserResponse(user))
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
		Error:   true,
		Message: message,
	})
}
