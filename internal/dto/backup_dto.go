package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SnapshotVersion is bumped whenever the snapshot layout changes.
const SnapshotVersion = 1

// Snapshot is one versioned export of the whole persisted state.
type Snapshot struct {
	Version       int                 `json:"version"`
	ExportedAt    time.Time           `json:"exportedAt"`
	Settings      *Settings           `json:"settings"`
	Months        []MonthExport       `json:"months"`
	Users         []UserExport        `json:"users,omitempty"`
	IdentityLinks []IdentityLinkExport `json:"identityLinks,omitempty"`
}

type MonthExport struct {
	MonthKey  string          `json:"monthKey"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type UserExport struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"displayName,omitempty"`
	AvatarPath   string     `json:"avatarPath,omitempty"`
	Theme        string     `json:"theme"`
	PasswordHash string     `json:"passwordHash"`
	Role         string     `json:"role"`
	Active       bool       `json:"active"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type IdentityLinkExport struct {
	ID        uuid.UUID `json:"id"`
	Issuer    string    `json:"issuer"`
	Subject   string    `json:"subject"`
	UserID    uuid.UUID `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type ImportRequest struct {
	Mode     string   `json:"mode"`
	Snapshot Snapshot `json:"snapshot"`
}

type ImportResponse struct {
	OK            bool `json:"ok"`
	Months        int  `json:"months"`
	Users         int  `json:"users"`
	IdentityLinks int  `json:"identityLinks"`
}
