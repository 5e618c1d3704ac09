package dto

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserRequest is the admin-side patch. Role and active transitions are
// admin-controlled only.
type UpdateUserRequest struct {
	DisplayName *string `json:"displayName"`
	Role        *string `json:"role"`
	Active      *bool   `json:"active"`
}

// UpdateProfileRequest is the self-service patch.
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	Theme       *string `json:"theme"`
}
