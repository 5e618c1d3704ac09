package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"

	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNoUpdates = errors.New("no updates provided")

var (
	supportedLanguages  = map[string]bool{"en": true, "de": true, "fr": true, "es": true, "it": true}
	supportedCurrencies = map[string]bool{"EUR": true, "USD": true, "GBP": true, "CHF": true}
	hexColorPattern     = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

	// Positional fallback colors for invalid bank account colors.
	defaultPalette = []string{"#4e79a7", "#f28e2b", "#e15759"}
)

const (
	maxBankAccounts     = 3
	defaultSessionHours = 12
	minSessionHours     = 1
	maxSessionHours     = 24
)

type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

func DefaultSettings() dto.Settings {
	return dto.Settings{
		Language:             "en",
		CurrencyPreference:   "EUR",
		SessionDurationHours: defaultSessionHours,
		SortByCost:           false,
		ShowYearTotals:       true,
		UpdateCheckEnabled:   true,
		OIDC:                 &dto.OIDCSettings{},
		AccountsPerson1:      []dto.BankAccount{},
		AccountsPerson2:      []dto.BankAccount{},
	}
}

// Get returns the singleton settings document, creating it with defaults on
// first read.
func (s *SettingsService) Get() (*dto.Settings, error) {
	var row models.AppSettings
	err := s.db.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		defaults := DefaultSettings()
		if err := s.persist(&defaults); err != nil {
			return nil, err
		}
		return &defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(row.Doc, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings document: %w", err)
	}
	if settings.OIDC == nil {
		settings.OIDC = &dto.OIDCSettings{}
	}
	return &settings, nil
}

// SessionHours returns the configured session duration clamped to the
// allowed range. Settings load failures fall back to the default so login
// never breaks on a corrupt document.
func (s *SettingsService) SessionHours() int {
	settings, err := s.Get()
	if err != nil {
		return defaultSessionHours
	}
	return clampSessionHours(float64(settings.SessionDurationHours))
}

// View projects the document for the given caller role. Non-admins never see
// the OIDC block, on reads and on update responses alike.
func View(settings *dto.Settings, role string) *dto.Settings {
	out := *settings
	if role != models.RoleAdmin {
		out.OIDC = nil
	}
	return &out
}

// Update merges a validated partial document onto the current one. Invalid
// values of recognized fields are dropped silently; a request carrying
// nothing the caller may update is an error.
func (s *SettingsService) Update(upd *dto.SettingsUpdate, role string) (*dto.Settings, error) {
	current, err := s.Get()
	if err != nil {
		return nil, err
	}

	touched := 0

	if upd.Language != nil {
		touched++
		if supportedLanguages[*upd.Language] {
			current.Language = *upd.Language
		}
	}
	if upd.CurrencyPreference != nil {
		touched++
		if supportedCurrencies[*upd.CurrencyPreference] {
			current.CurrencyPreference = *upd.CurrencyPreference
		}
	}
	if upd.SessionDurationHours != nil {
		touched++
		current.SessionDurationHours = clampSessionHours(*upd.SessionDurationHours)
	}
	if upd.SortByCost != nil {
		touched++
		current.SortByCost = *upd.SortByCost
	}
	if upd.ShowYearTotals != nil {
		touched++
		current.ShowYearTotals = *upd.ShowYearTotals
	}
	if upd.UpdateCheckEnabled != nil {
		touched++
		current.UpdateCheckEnabled = *upd.UpdateCheckEnabled
	}
	if upd.AccountsPerson1 != nil {
		touched++
		current.AccountsPerson1 = normalizeAccounts(*upd.AccountsPerson1)
	}
	if upd.AccountsPerson2 != nil {
		touched++
		current.AccountsPerson2 = normalizeAccounts(*upd.AccountsPerson2)
	}
	if upd.OIDC != nil && role == models.RoleAdmin {
		touched++
		if current.OIDC == nil {
			current.OIDC = &dto.OIDCSettings{}
		}
		mergeOIDC(current.OIDC, upd.OIDC)
	}

	if touched == 0 {
		return nil, ErrNoUpdates
	}

	if err := s.persist(current); err != nil {
		return nil, err
	}
	return View(current, role), nil
}

func (s *SettingsService) persist(settings *dto.Settings) error {
	doc, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings document: %w", err)
	}

	var row models.AppSettings
	err = s.db.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.AppSettings{Doc: datatypes.JSON(doc)}
		if err := s.db.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create settings row: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load settings row: %w", err)
	}

	row.Doc = datatypes.JSON(doc)
	if err := s.db.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save settings row: %w", err)
	}
	return nil
}

func clampSessionHours(hours float64) int {
	rounded := int(math.Round(hours))
	if rounded < minSessionHours {
		return minSessionHours
	}
	if rounded > maxSessionHours {
		return maxSessionHours
	}
	return rounded
}

// normalizeAccounts enforces the per-person account rules: at most three
// entries, a non-empty name, a unique id, and a 6-digit hex color with a
// positional palette fallback.
func normalizeAccounts(accounts []dto.BankAccount) []dto.BankAccount {
	out := make([]dto.BankAccount, 0, maxBankAccounts)
	seen := make(map[string]bool)

	for _, acc := range accounts {
		if len(out) == maxBankAccounts {
			break
		}
		if acc.Name == "" {
			continue
		}
		if acc.ID == "" || seen[acc.ID] {
			acc.ID = uuid.NewString()
		}
		seen[acc.ID] = true
		if !hexColorPattern.MatchString(acc.Color) {
			acc.Color = defaultPalette[len(out)]
		}
		out = append(out, acc)
	}
	return out
}

func mergeOIDC(dst *dto.OIDCSettings, upd *dto.OIDCSettingsUpdate) {
	if upd.Enabled != nil {
		dst.Enabled = *upd.Enabled
	}
	if upd.Issuer != nil {
		dst.Issuer = *upd.Issuer
	}
	if upd.ClientID != nil {
		dst.ClientID = *upd.ClientID
	}
	if upd.ClientSecret != nil {
		dst.ClientSecret = *upd.ClientSecret
	}
	if upd.RedirectURI != nil {
		dst.RedirectURI = *upd.RedirectURI
	}
	if upd.ProviderName != nil {
		dst.ProviderName = *upd.ProviderName
	}
}
