package middleware

import (
	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired gates a route on the live role of the loaded user. Runs
// after LoadUser so the decision reflects the database, not the token.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := CurrentUser(c)
		if err != nil {
			return unauthorized(c)
		}
		if user.Role != models.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Admin access required",
			})
		}
		return c.Next()
	}
}
