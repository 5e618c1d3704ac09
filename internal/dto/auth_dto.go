package dto

import (
	"time"

	"github.com/google/uuid"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type BootstrapRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"displayName,omitempty"`
	AvatarURL   string     `json:"avatarUrl,omitempty"`
	Theme       string     `json:"theme"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type BootstrapStatusResponse struct {
	HasUsers bool `json:"hasUsers"`
}

type ResetRequestBody struct {
	Login string `json:"login"`
}

// ResetRequestResponse always carries ok:true; token and expiry are present
// only for the legitimate requester whose login matched an active account.
type ResetRequestResponse struct {
	OK        bool       `json:"ok"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type ResetConsumeRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type OIDCConfigResponse struct {
	Enabled      bool   `json:"enabled"`
	ProviderName string `json:"providerName,omitempty"`
}

type OIDCLinkResponse struct {
	URL string `json:"url"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}
