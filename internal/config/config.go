package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database: either one connection string or discrete variables.
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// JWT signing secret. An empty secret is a fatal misconfiguration that
	// is surfaced as a 500 on token issuance rather than a silent fallback.
	JWTSecret string

	// Bootstrap admin credential pair. Only honored while the user table is
	// empty.
	AdminUsername string
	AdminPassword string

	PasswordMinLength int
	ResetTokenTTL     time.Duration

	// Server
	Port        string
	CORSOrigins string
	FrontendURL string

	// Avatar uploads
	AvatarDir      string
	AvatarMaxBytes int64

	// Update check
	Version        string
	UpdateCheckURL string
}

func Load() *Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "duospend"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		PasswordMinLength: parseInt(getEnv("PASSWORD_MIN_LENGTH", "8"), 8),
		ResetTokenTTL:     parseDuration(getEnv("RESET_TOKEN_TTL", "60m"), 60*time.Minute),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		AvatarDir:      getEnv("AVATAR_DIR", "data/avatars"),
		AvatarMaxBytes: int64(parseInt(getEnv("AVATAR_MAX_BYTES", "2097152"), 2097152)),

		Version:        getEnv("APP_VERSION", "dev"),
		UpdateCheckURL: getEnv("UPDATE_CHECK_URL", "https://api.github.com/repos/duospend/backend/releases/latest"),
	}
}

// DSN prefers DATABASE_URL and otherwise assembles the discrete variables.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
