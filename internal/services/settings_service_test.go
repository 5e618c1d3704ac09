package services

import (
	"testing"

	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string   { return &s }
func boolPtr(b bool) *bool      { return &b }
func f64Ptr(f float64) *float64 { return &f }

func TestGetCreatesDefaultsLazily(t *testing.T) {
	svc := NewSettingsService(newTestDB(t))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "en", settings.Language)
	assert.Equal(t, "EUR", settings.CurrencyPreference)
	assert.Equal(t, 12, settings.SessionDurationHours)

	// The document persists; a second read returns the same row.
	again, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, again)
}

func TestUpdateMergesSequentially(t *testing.T) {
	svc := NewSettingsService(newTestDB(t))

	_, err := svc.Update(&dto.SettingsUpdate{CurrencyPreference: strPtr("USD")}, models.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Update(&dto.SettingsUpdate{SortByCost: boolPtr(true)}, models.RoleAdmin)
	require.NoError(t, err)

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "USD", settings.CurrencyPreference)
	assert.True(t, settings.SortByCost)
	// Untouched fields keep their previous values.
	assert.Equal(t, "en", settings.Language)
}

func TestUpdateDropsInvalidValuesSilently(t *testing.T) {
	svc := NewSettingsService(newTestDB(t))

	settings, err := svc.Update(&dto.SettingsUpdate{Language: strPtr("klingon")}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "en", settings.Language)
}

func TestSessionDurationClampedAndRounded(t *testing.T) {
	svc := NewSettingsService(newTestDB(t))

	settings, err := svc.Update(&dto.SettingsUpdate{SessionDurationHours: f64Ptr(99)}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 24, settings.SessionDurationHours)

	settings, err = svc.Update(&dto.SettingsUpdate{SessionDurationHours: f64Ptr(0)}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, settings.SessionDurationHours)

	settings, err = svc.Update(&dto.SettingsUpdate{SessionDurationHours: f64Ptr(6.6)}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 7, settings.SessionDurationHours)
}

func TestBankAccountNormalization(t *testing.T) {
	svc := NewSettingsService(newTestDB(t))

	accounts := []dto.BankAccount{
		{ID: "a", Name: "Checking", Color: "#112233"},
		{Name: "Savings", Color: "blue"},
		{Name: "", Color: "#445566"},
		{ID: "a", Name: "Shared", Color: "#445566"},
		{Name: "Fourth", Color: "#778899"},
		{Name: "Fifth", Color: "#aabbcc"},
	}

	settings, err := svc.Update(&dto.SettingsUpdate{AccountsPerson1: &accounts}, models.RoleAdmin)
	require.NoError(t, err)

	got := settings.AccountsPerson1
	require.Len(t, got, 3)

	assert.Equal(t, "Checking", got[0].Name)
	assert.Equal(t, "#112233", got[0].Color)

	// Invalid color falls back to the palette entry for its position.
	assert.Equal(t, "Savings", got[1].Name)
	assert.Equal(t, defaultPalette[1], got[1].Color)
	assert.NotEmpty(t, got[1].ID)

	// The nameless entry is dropped entirely; the colliding id is regenerated.
	assert.Equal(t, "Shared", got[2].Name)
	assert.NotEqual(t, "a", got[2].ID)
}

func TestNonAdminRedaction(t *testing.T) {
	svc := NewSettingsService(newTestDB(t))

	settings, err := svc.Get()
	require.NoError(t, err)

	admin := View(settings, models.RoleAdmin)
	assert.NotNil(t, admin.OIDC)

	member := View(settings, models.RoleUser)
	assert.Nil(t, member.OIDC)
}

func TestNonAdminOIDCOnlyUpdateIsRejected(t *testing.T) {
	svc := NewSettingsService(newTestDB(t))

	upd := &dto.SettingsUpdate{
		OIDC: &dto.OIDCSettingsUpdate{Enabled: boolPtr(true)},
	}
	_, err := svc.Update(upd, models.RoleUser)
	assert.ErrorIs(t, err, ErrNoUpdates)

	// The same update from an admin sticks.
	settings, err := svc.Update(upd, models.RoleAdmin)
	require.NoError(t, err)
	require.NotNil(t, settings.OIDC)
	assert.True(t, settings.OIDC.Enabled)
}

func TestEmptyUpdateIsRejected(t *testing.T) {
	svc := NewSettingsService(newTestDB(t))

	_, err := svc.Update(&dto.SettingsUpdate{}, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrNoUpdates)
}

func TestUpdateResponseIsRedactedForRole(t *testing.T) {
	svc := NewSettingsService(newTestDB(t))

	settings, err := svc.Update(&dto.SettingsUpdate{SortByCost: boolPtr(true)}, models.RoleUser)
	require.NoError(t, err)
	assert.Nil(t, settings.OIDC)
}
