package middleware

import (
	"errors"

	"github.com/duospend/backend/internal/config"
	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/models"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const currentUserKey = "currentUser"

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// LoadUser re-checks token validity against live user state: a deleted or
// deactivated account is rejected even while its token is still validly
// signed and unexpired. Runs after JWTProtected.
func LoadUser(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := tokenSubject(c)
		if err != nil {
			return unauthorized(c)
		}

		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			return unauthorized(c)
		}
		if !user.Active {
			return unauthorized(c)
		}

		c.Locals(currentUserKey, &user)
		return c.Next()
	}
}

// CurrentUser returns the user loaded by LoadUser.
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals(currentUserKey).(*models.User)
	if !ok || user == nil {
		return nil, errors.New("no user in context")
	}
	return user, nil
}

func tokenSubject(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return uuid.Nil, errors.New("invalid token in context")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}
	return uuid.Parse(sub)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   true,
		Message: "Unauthorized",
	})
}
