package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	ThemeLight = "light"
	ThemeDark  = "dark"
)

// User is an account of one of the two household members (or an extra admin).
// Usernames are stored as entered but compared case-insensitively. There is no
// delete endpoint; users are only ever replaced wholesale by a restore.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string     `gorm:"size:100;not null;uniqueIndex" json:"username"`
	DisplayName  string     `gorm:"size:100" json:"display_name"`
	AvatarPath   string     `gorm:"size:255" json:"avatar_path"`
	Theme        string     `gorm:"size:10;default:'light'" json:"theme"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         string     `gorm:"size:20;default:'user'" json:"role"`
	Active       bool       `gorm:"default:true" json:"active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
