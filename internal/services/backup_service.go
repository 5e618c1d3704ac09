package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrUnsupportedMode = errors.New("only replace mode is supported")
	ErrSnapshotInvalid = errors.New("invalid snapshot")
)

// BackupService exports and imports the whole persisted state as one
// versioned document. Import is all-or-nothing: a single invalid record
// aborts the transaction and leaves prior state untouched.
type BackupService struct {
	db       *gorm.DB
	settings *SettingsService
}

func NewBackupService(db *gorm.DB, settings *SettingsService) *BackupService {
	return &BackupService{db: db, settings: settings}
}

func (s *BackupService) Export(includeUsers bool) (*dto.Snapshot, error) {
	settings, err := s.settings.Get()
	if err != nil {
		return nil, err
	}

	var months []models.Month
	if err := s.db.Order("month_key asc").Find(&months).Error; err != nil {
		return nil, fmt.Errorf("failed to export months: %w", err)
	}

	snapshot := &dto.Snapshot{
		Version:    dto.SnapshotVersion,
		ExportedAt: time.Now().UTC(),
		Settings:   settings,
		Months:     make([]dto.MonthExport, 0, len(months)),
	}
	for _, m := range months {
		snapshot.Months = append(snapshot.Months, dto.MonthExport{
			MonthKey:  m.MonthKey,
			Data:      json.RawMessage(m.Data),
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		})
	}

	if includeUsers {
		var users []models.User
		if err := s.db.Order("created_at asc").Find(&users).Error; err != nil {
			return nil, fmt.Errorf("failed to export users: %w", err)
		}
		snapshot.Users = make([]dto.UserExport, 0, len(users))
		for _, u := range users {
			snapshot.Users = append(snapshot.Users, dto.UserExport{
				ID:           u.ID,
				Username:     u.Username,
				DisplayName:  u.DisplayName,
				AvatarPath:   u.AvatarPath,
				Theme:        u.Theme,
				PasswordHash: u.PasswordHash,
				Role:         u.Role,
				Active:       u.Active,
				LastLoginAt:  u.LastLoginAt,
				CreatedAt:    u.CreatedAt,
				UpdatedAt:    u.UpdatedAt,
			})
		}

		var links []models.IdentityLink
		if err := s.db.Order("created_at asc").Find(&links).Error; err != nil {
			return nil, fmt.Errorf("failed to export identity links: %w", err)
		}
		snapshot.IdentityLinks = make([]dto.IdentityLinkExport, 0, len(links))
		for _, l := range links {
			snapshot.IdentityLinks = append(snapshot.IdentityLinks, dto.IdentityLinkExport{
				ID:        l.ID,
				Issuer:    l.Issuer,
				Subject:   l.Subject,
				UserID:    l.UserID,
				CreatedAt: l.CreatedAt,
			})
		}
	}

	return snapshot, nil
}

// restoreStep is one (table, clear, insert) entry of the ordered restore
// plan. Steps are listed children before parents; the importer clears them
// front to back and inserts back to front.
type restoreStep struct {
	name   string
	clear  func(tx *gorm.DB) error
	insert func(tx *gorm.DB) error
}

// Import replaces the whole persisted state with the snapshot. Only full
// replace is supported. All validation happens before any mutation, and the
// replace itself runs in one database transaction.
func (s *BackupService) Import(snapshot *dto.Snapshot, mode string) (*dto.ImportResponse, error) {
	if mode != "replace" {
		return nil, ErrUnsupportedMode
	}
	if err := validateSnapshot(snapshot); err != nil {
		return nil, err
	}

	steps := s.buildPlan(snapshot)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, step := range steps {
			if err := step.clear(tx); err != nil {
				return fmt.Errorf("failed to clear %s: %w", step.name, err)
			}
		}
		for i := len(steps) - 1; i >= 0; i-- {
			step := steps[i]
			if step.insert == nil {
				continue
			}
			if err := step.insert(tx); err != nil {
				return fmt.Errorf("failed to restore %s: %w", step.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dto.ImportResponse{
		OK:            true,
		Months:        len(snapshot.Months),
		Users:         len(snapshot.Users),
		IdentityLinks: len(snapshot.IdentityLinks),
	}, nil
}

func (s *BackupService) buildPlan(snapshot *dto.Snapshot) []restoreStep {
	steps := []restoreStep{}

	// User-owned tables are touched only when the snapshot carries users.
	if snapshot.Users != nil {
		steps = append(steps,
			restoreStep{
				name:  "password reset tokens",
				clear: deleteAll(&models.PasswordResetToken{}),
			},
			restoreStep{
				name:  "identity links",
				clear: deleteAll(&models.IdentityLink{}),
				insert: func(tx *gorm.DB) error {
					for _, l := range snapshot.IdentityLinks {
						link := models.IdentityLink{
							ID:        l.ID,
							Issuer:    l.Issuer,
							Subject:   l.Subject,
							UserID:    l.UserID,
							CreatedAt: l.CreatedAt,
						}
						if err := tx.Create(&link).Error; err != nil {
							return err
						}
					}
					return nil
				},
			},
			restoreStep{
				name:  "users",
				clear: deleteAll(&models.User{}),
				insert: func(tx *gorm.DB) error {
					for _, u := range snapshot.Users {
						theme := u.Theme
						if theme == "" {
							theme = models.ThemeLight
						}
						user := models.User{
							ID:           u.ID,
							Username:     u.Username,
							DisplayName:  u.DisplayName,
							AvatarPath:   u.AvatarPath,
							Theme:        theme,
							PasswordHash: u.PasswordHash,
							Role:         u.Role,
							Active:       u.Active,
							LastLoginAt:  u.LastLoginAt,
							CreatedAt:    u.CreatedAt,
							UpdatedAt:    u.UpdatedAt,
						}
						if err := tx.Create(&user).Error; err != nil {
							return err
						}
					}
					return nil
				},
			},
		)
	}

	steps = append(steps,
		restoreStep{
			name:  "months",
			clear: deleteAll(&models.Month{}),
			insert: func(tx *gorm.DB) error {
				for _, m := range snapshot.Months {
					month := models.Month{
						MonthKey:  m.MonthKey,
						Data:      datatypes.JSON(m.Data),
						CreatedAt: m.CreatedAt,
						UpdatedAt: m.UpdatedAt,
					}
					if err := tx.Create(&month).Error; err != nil {
						return err
					}
				}
				return nil
			},
		},
		restoreStep{
			name:  "settings",
			clear: deleteAll(&models.AppSettings{}),
			insert: func(tx *gorm.DB) error {
				doc, err := json.Marshal(snapshot.Settings)
				if err != nil {
					return err
				}
				row := models.AppSettings{Doc: datatypes.JSON(doc)}
				return tx.Create(&row).Error
			},
		},
	)

	return steps
}

func deleteAll(model interface{}) func(tx *gorm.DB) error {
	return func(tx *gorm.DB) error {
		return tx.Where("1 = 1").Delete(model).Error
	}
}

// validateSnapshot runs every precondition before a single row is touched.
func validateSnapshot(snapshot *dto.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: empty document", ErrSnapshotInvalid)
	}
	if snapshot.Version > dto.SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrSnapshotInvalid, snapshot.Version)
	}
	if snapshot.Settings == nil {
		return fmt.Errorf("%w: settings block is missing", ErrSnapshotInvalid)
	}

	for _, m := range snapshot.Months {
		if !models.MonthKeyPattern.MatchString(m.MonthKey) {
			return fmt.Errorf("%w: month key %q is malformed", ErrSnapshotInvalid, m.MonthKey)
		}
		var obj map[string]interface{}
		if err := json.Unmarshal(m.Data, &obj); err != nil || obj == nil {
			return fmt.Errorf("%w: month %q payload is not an object", ErrSnapshotInvalid, m.MonthKey)
		}
	}

	if snapshot.Users != nil {
		admins := 0
		for _, u := range snapshot.Users {
			if u.ID == uuid.Nil || u.Username == "" || u.PasswordHash == "" {
				return fmt.Errorf("%w: user record %q is missing required fields", ErrSnapshotInvalid, u.Username)
			}
			if u.Role == models.RoleAdmin {
				admins++
			}
		}
		if admins == 0 {
			return fmt.Errorf("%w: snapshot contains no admin user", ErrSnapshotInvalid)
		}

		userIDs := make(map[uuid.UUID]bool, len(snapshot.Users))
		for _, u := range snapshot.Users {
			userIDs[u.ID] = true
		}
		for _, l := range snapshot.IdentityLinks {
			if !userIDs[l.UserID] {
				return fmt.Errorf("%w: identity link %s references unknown user", ErrSnapshotInvalid, l.Subject)
			}
		}
	}

	return nil
}
