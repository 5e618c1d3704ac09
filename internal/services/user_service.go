package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/duospend/backend/internal/config"
	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	db   *gorm.DB
	cfg  *config.Config
	auth *AuthService
}

func NewUserService(db *gorm.DB, cfg *config.Config, auth *AuthService) *UserService {
	return &UserService{db: db, cfg: cfg, auth: auth}
}

func (s *UserService) GetByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *UserService) List() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("created_at asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Create adds a user on behalf of an admin.
func (s *UserService) Create(req *dto.CreateUserRequest) (*models.User, error) {
	username := normalizeUsername(req.Username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if err := s.auth.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleAdmin && role != models.RoleUser {
		return nil, errors.New("role must be admin or user")
	}

	var existing models.User
	if err := s.db.Where("LOWER(username) = ?", username).First(&existing).Error; err == nil {
		return nil, ErrUsernameTaken
	}

	return s.auth.createUser(strings.TrimSpace(req.Username), req.Password, role)
}

// AdminUpdate applies the admin-side patch. Role and active transitions only
// travel through here.
func (s *UserService) AdminUpdate(id uuid.UUID, req *dto.UpdateUserRequest) (*models.User, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Role != nil {
		if *req.Role != models.RoleAdmin && *req.Role != models.RoleUser {
			return nil, errors.New("role must be admin or user")
		}
		updates["role"] = *req.Role
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		return nil, ErrNoUpdates
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies the self-service patch.
func (s *UserService) UpdateProfile(id uuid.UUID, req *dto.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Theme != nil {
		if *req.Theme != models.ThemeLight && *req.Theme != models.ThemeDark {
			return nil, errors.New("theme must be light or dark")
		}
		updates["theme"] = *req.Theme
	}
	if len(updates) == 0 {
		return nil, ErrNoUpdates
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// SetAvatar stores the new avatar path and returns the previous one so the
// caller can remove the stale file.
func (s *UserService) SetAvatar(id uuid.UUID, path string) (string, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return "", err
	}
	old := user.AvatarPath
	if err := s.db.Model(user).Update("avatar_path", path).Error; err != nil {
		return "", fmt.Errorf("failed to update avatar: %w", err)
	}
	return old, nil
}
