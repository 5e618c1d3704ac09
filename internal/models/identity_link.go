package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdentityLink binds one external (issuer, subject) identity to exactly one
// local user. A user may hold at most one link per issuer. Links are created
// by the OIDC link callback and removed only by a full restore.
type IdentityLink struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Issuer    string    `gorm:"size:255;not null;uniqueIndex:idx_identity_issuer_subject,priority:1;uniqueIndex:idx_identity_issuer_user,priority:1" json:"issuer"`
	Subject   string    `gorm:"size:255;not null;uniqueIndex:idx_identity_issuer_subject,priority:2" json:"subject"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_identity_issuer_user,priority:2" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
}

func (l *IdentityLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
