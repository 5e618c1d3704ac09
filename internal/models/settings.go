package models

import (
	"time"

	"gorm.io/datatypes"
)

// AppSettings is the singleton configuration row. The document itself is kept
// as one JSON column; the typed view lives in the settings service.
type AppSettings struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Doc       datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"doc"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (AppSettings) TableName() string {
	return "app_settings"
}
