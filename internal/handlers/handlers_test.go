package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/duospend/backend/internal/config"
	"github.com/duospend/backend/internal/database"
	"github.com/duospend/backend/internal/handlers"
	"github.com/duospend/backend/internal/routes"
	"github.com/duospend/backend/internal/services"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:         "test-secret",
		PasswordMinLength: 8,
		ResetTokenTTL:     time.Hour,
		FrontendURL:       "http://localhost:5173",
		AvatarDir:         t.TempDir(),
		AvatarMaxBytes:    2 << 20,
		Version:           "test",
	}

	settingsService := services.NewSettingsService(db)
	authService := services.NewAuthService(db, cfg, settingsService)
	userService := services.NewUserService(db, cfg, authService)
	oidcService := services.NewOIDCService(db, authService, settingsService)
	backupService := services.NewBackupService(db, settingsService)
	versionService := services.NewVersionService(cfg.Version, "")

	app := fiber.New()
	routes.Setup(app, cfg, db,
		handlers.NewAuthHandler(authService),
		handlers.NewOIDCHandler(oidcService, cfg),
		handlers.NewSettingsHandler(settingsService),
		handlers.NewBackupHandler(backupService),
		handlers.NewUserHandler(userService, cfg),
		handlers.NewMonthHandler(db),
		handlers.NewHealthHandler(versionService),
	)
	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// bootstrapAdmin creates the first admin over HTTP and returns its token.
func bootstrapAdmin(t *testing.T, app *fiber.App) string {
	t.Helper()

	resp := doJSON(t, app, fiber.MethodPost, "/api/auth/bootstrap", "", fiber.Map{
		"username": "admin",
		"password": "change_me12",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
		User  struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	decode(t, resp, &body)
	require.Equal(t, "admin", body.User.Role)
	require.NotEmpty(t, body.Token)
	return body.Token
}
