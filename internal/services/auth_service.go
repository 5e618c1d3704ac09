package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/duospend/backend/internal/config"
	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrBootstrapDone      = errors.New("bootstrap already completed")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrNoSigningSecret    = errors.New("jwt signing secret is not configured")
	ErrResetInvalid       = errors.New("invalid or expired token")
)

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	settings *SettingsService
}

func NewAuthService(db *gorm.DB, cfg *config.Config, settings *SettingsService) *AuthService {
	return &AuthService{db: db, cfg: cfg, settings: settings}
}

// Login authenticates a username/password pair. When the username is unknown
// and the user table is still empty, the configured admin credential pair can
// create the first admin account on the fly.
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	username := normalizeUsername(req.Username)

	var user models.User
	err := s.db.Where("LOWER(username) = ?", username).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, bootErr := s.envBootstrap(username, req.Password)
		if bootErr != nil {
			return nil, bootErr
		}
		if created == nil {
			// Lookup failures must not reveal whether the username exists.
			return nil, ErrInvalidCredentials
		}
		user = *created
	case err != nil:
		return nil, fmt.Errorf("failed to load user: %w", err)
	default:
		if !user.Active {
			return nil, ErrAccountDisabled
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			return nil, ErrInvalidCredentials
		}
	}

	return s.finishLogin(&user)
}

// Bootstrap creates the very first user as the sole admin. Rejected as soon
// as any user exists.
func (s *AuthService) Bootstrap(req *dto.BootstrapRequest) (*dto.AuthResponse, error) {
	hasUsers, err := s.HasUsers()
	if err != nil {
		return nil, err
	}
	if hasUsers {
		return nil, ErrBootstrapDone
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if err := s.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	user, err := s.createUser(username, req.Password, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return s.finishLogin(user)
}

func (s *AuthService) HasUsers() (bool, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	return count > 0, nil
}

// IssueToken signs a session token for the user, sized by the current
// settings document. An unset signing secret is a server misconfiguration.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	if s.cfg.JWTSecret == "" {
		return "", ErrNoSigningSecret
	}

	now := time.Now()
	hours := s.settings.SessionHours()
	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"role":     user.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(time.Duration(hours) * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// RequestReset always reports success; a token is minted only when the login
// matches an active account, so the response never reveals account existence.
func (s *AuthService) RequestReset(login string) (*dto.ResetRequestResponse, error) {
	resp := &dto.ResetRequestResponse{OK: true}

	var user models.User
	err := s.db.Where("LOWER(username) = ? AND active = ?", normalizeUsername(login), true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	raw, err := randomToken()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.cfg.ResetTokenTTL)
	record := models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hashToken(raw),
		ExpiresAt: expiresAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	resp.Token = raw
	resp.ExpiresAt = &expiresAt
	return resp, nil
}

// ConsumeReset redeems a reset token exactly once. Wrong and expired tokens
// fail with the same generic error.
func (s *AuthService) ConsumeReset(token, newPassword string) error {
	var record models.PasswordResetToken
	err := s.db.Where("token_hash = ? AND consumed_at IS NULL AND expires_at > ?", hashToken(token), time.Now()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrResetInvalid
	}
	if err != nil {
		return fmt.Errorf("failed to load reset token: %w", err)
	}

	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", record.UserID).
			Update("password_hash", string(hash)).Error; err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if err := tx.Model(&record).Update("consumed_at", now).Error; err != nil {
			return fmt.Errorf("failed to consume reset token: %w", err)
		}
		return nil
	})
}

func (s *AuthService) ChangePassword(userID uuid.UUID, currentPassword, newPassword string) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return ErrUserNotFound
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return ErrInvalidCredentials
	}
	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.db.Model(&user).Update("password_hash", string(hash)).Error
}

// ValidatePassword enforces the single structural password rule: a minimum
// length. There are no complexity classes.
func (s *AuthService) ValidatePassword(password string) error {
	min := s.cfg.PasswordMinLength
	if min <= 0 {
		min = 8
	}
	if len(password) < min {
		return fmt.Errorf("%w: minimum %d characters", ErrPasswordTooShort, min)
	}
	return nil
}

// finishLogin stamps last_login and issues a token.
func (s *AuthService) finishLogin(user *models.User) (*dto.AuthResponse, error) {
	now := time.Now()
	if err := s.db.Model(user).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	user.LastLoginAt = &now

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Token: token, User: ToUserResponse(user)}, nil
}

// envBootstrap creates the configured admin on its first login, but only
// while the user table is empty and the presented pair matches exactly.
func (s *AuthService) envBootstrap(username, password string) (*models.User, error) {
	if s.cfg.AdminUsername == "" || s.cfg.AdminPassword == "" {
		return nil, nil
	}
	if username != normalizeUsername(s.cfg.AdminUsername) || password != s.cfg.AdminPassword {
		return nil, nil
	}

	hasUsers, err := s.HasUsers()
	if err != nil {
		return nil, err
	}
	if hasUsers {
		return nil, nil
	}

	return s.createUser(strings.TrimSpace(s.cfg.AdminUsername), password, models.RoleAdmin)
}

func (s *AuthService) createUser(username, password, role string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		Theme:        models.ThemeLight,
		Active:       true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func ToUserResponse(u *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarPath,
		Theme:       u.Theme,
		Role:        u.Role,
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func randomToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
