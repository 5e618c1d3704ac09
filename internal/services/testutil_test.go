package services

import (
	"testing"
	"time"

	"github.com/duospend/backend/internal/config"
	"github.com/duospend/backend/internal/database"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A second pooled connection would see a different :memory: database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		PasswordMinLength: 8,
		ResetTokenTTL:     time.Hour,
	}
}

func newTestAuth(t *testing.T) (*AuthService, *gorm.DB, *config.Config) {
	t.Helper()
	db := newTestDB(t)
	cfg := newTestConfig()
	settings := NewSettingsService(db)
	return NewAuthService(db, cfg, settings), db, cfg
}
