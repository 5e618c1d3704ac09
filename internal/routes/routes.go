package routes

import (
	"time"

	"github.com/duospend/backend/internal/config"
	"github.com/duospend/backend/internal/handlers"
	"github.com/duospend/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	oidcHandler *handlers.OIDCHandler,
	settingsHandler *handlers.SettingsHandler,
	backupHandler *handlers.BackupHandler,
	userHandler *handlers.UserHandler,
	monthHandler *handlers.MonthHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)
	api.Get("/version", healthHandler.Version)

	jwt := middleware.JWTProtected(cfg)
	user := middleware.LoadUser(db)
	admin := middleware.AdminRequired()

	// Auth is public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/bootstrap", authHandler.Bootstrap)
	auth.Get("/bootstrap-status", authHandler.BootstrapStatus)
	auth.Post("/login", authHandler.Login)
	auth.Post("/request-reset", authHandler.RequestReset)
	auth.Post("/reset", authHandler.Reset)
	auth.Get("/oidc/config", oidcHandler.Config)
	auth.Get("/oidc/start", oidcHandler.Start)
	auth.Get("/oidc/callback", oidcHandler.Callback)

	// Legacy login alias kept for older frontends.
	api.Post("/login", authHandler.Login)

	// Authenticated auth surface
	api.Post("/auth/change-password", jwt, user, authHandler.ChangePassword)
	api.Post("/auth/oidc/link", jwt, user, oidcHandler.Link)

	// Settings: admins see the full document, everyone else the redacted view
	api.Get("/settings", jwt, user, settingsHandler.Get)
	api.Patch("/settings", jwt, user, settingsHandler.Patch)

	// Backup, admin only
	api.Get("/backup/export", jwt, user, admin, backupHandler.Export)
	api.Post("/backup/import", jwt, user, admin, backupHandler.Import)

	// Users: profile first, then admin management
	api.Get("/users/me", jwt, user, userHandler.Me)
	api.Patch("/users/me", jwt, user, userHandler.UpdateMe)
	api.Post("/users/me/avatar", jwt, user, userHandler.UploadAvatar)
	api.Get("/users", jwt, user, admin, userHandler.List)
	api.Post("/users", jwt, user, admin, userHandler.Create)
	api.Patch("/users/:id", jwt, user, admin, userHandler.Update)

	// Month documents
	api.Get("/months/:monthKey", jwt, user, monthHandler.Get)
	api.Put("/months/:monthKey", jwt, user, monthHandler.Put)
	api.Delete("/months/:monthKey", jwt, user, monthHandler.Delete)
}
