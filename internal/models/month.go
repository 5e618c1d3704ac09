package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MonthKeyPattern matches "YYYY-MM" with a real month number.
var MonthKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Month is a plain JSON blob keyed by month. The payload structure belongs to
// the frontend; the server only guarantees it is a JSON object.
type Month struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MonthKey  string         `gorm:"size:7;not null;uniqueIndex" json:"month_key"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (m *Month) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
