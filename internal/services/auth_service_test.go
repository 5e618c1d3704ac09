package services

import (
	"testing"
	"time"

	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapCreatesSoleAdmin(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	resp, err := auth.Bootstrap(&dto.BootstrapRequest{Username: "admin", Password: "change_me12"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.NotEmpty(t, resp.Token)

	_, err = auth.Bootstrap(&dto.BootstrapRequest{Username: "other", Password: "change_me12"})
	assert.ErrorIs(t, err, ErrBootstrapDone)
}

func TestBootstrapRejectsShortPassword(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	_, err := auth.Bootstrap(&dto.BootstrapRequest{Username: "admin", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestLoginReturnsTokenBoundToUser(t *testing.T) {
	auth, _, cfg := newTestAuth(t)

	created, err := auth.Bootstrap(&dto.BootstrapRequest{Username: "Maria", Password: "sunflower9"})
	require.NoError(t, err)

	// Username lookup is case-insensitive and trims whitespace.
	resp, err := auth.Login(&dto.LoginRequest{Username: "  maria ", Password: "sunflower9"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	token, err := jwt.Parse(resp.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, created.User.ID.String(), claims["sub"])
	assert.Equal(t, models.RoleAdmin, claims["role"])
}

func TestLoginWrongPassword(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	_, err := auth.Bootstrap(&dto.BootstrapRequest{Username: "maria", Password: "sunflower9"})
	require.NoError(t, err)

	_, err = auth.Login(&dto.LoginRequest{Username: "maria", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	_, err := auth.Bootstrap(&dto.BootstrapRequest{Username: "maria", Password: "sunflower9"})
	require.NoError(t, err)

	_, err = auth.Login(&dto.LoginRequest{Username: "nobody", Password: "whatever99"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginDisabledAccount(t *testing.T) {
	auth, db, _ := newTestAuth(t)

	resp, err := auth.Bootstrap(&dto.BootstrapRequest{Username: "maria", Password: "sunflower9"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", resp.User.ID).Update("active", false).Error)

	_, err = auth.Login(&dto.LoginRequest{Username: "maria", Password: "sunflower9"})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestEnvBootstrapOnFirstLogin(t *testing.T) {
	auth, db, cfg := newTestAuth(t)
	cfg.AdminUsername = "admin"
	cfg.AdminPassword = "change_me12"

	resp, err := auth.Login(&dto.LoginRequest{Username: "admin", Password: "change_me12"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// Second login hits the regular password path.
	_, err = auth.Login(&dto.LoginRequest{Username: "admin", Password: "change_me12"})
	require.NoError(t, err)
}

func TestEnvBootstrapRefusedOncePopulated(t *testing.T) {
	auth, _, cfg := newTestAuth(t)
	cfg.AdminUsername = "admin"
	cfg.AdminPassword = "change_me12"

	_, err := auth.Bootstrap(&dto.BootstrapRequest{Username: "maria", Password: "sunflower9"})
	require.NoError(t, err)

	_, err = auth.Login(&dto.LoginRequest{Username: "admin", Password: "change_me12"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnvBootstrapRequiresExactPair(t *testing.T) {
	auth, _, cfg := newTestAuth(t)
	cfg.AdminUsername = "admin"
	cfg.AdminPassword = "change_me12"

	_, err := auth.Login(&dto.LoginRequest{Username: "admin", Password: "not_the_pair"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIssueTokenWithoutSecret(t *testing.T) {
	auth, _, cfg := newTestAuth(t)

	resp, err := auth.Bootstrap(&dto.BootstrapRequest{Username: "maria", Password: "sunflower9"})
	require.NoError(t, err)

	cfg.JWTSecret = ""
	user := models.User{ID: resp.User.ID, Username: resp.User.Username, Role: resp.User.Role}
	_, err = auth.IssueToken(&user)
	assert.ErrorIs(t, err, ErrNoSigningSecret)
}

func TestRequestResetShapeIsIdentical(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	_, err := auth.Bootstrap(&dto.BootstrapRequest{Username: "maria", Password: "sunflower9"})
	require.NoError(t, err)

	known, err := auth.RequestReset("maria")
	require.NoError(t, err)
	unknown, err := auth.RequestReset("nobody")
	require.NoError(t, err)

	assert.True(t, known.OK)
	assert.True(t, unknown.OK)
	assert.NotEmpty(t, known.Token)
	assert.Empty(t, unknown.Token)
}

func TestResetTokenSingleUse(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	_, err := auth.Bootstrap(&dto.BootstrapRequest{Username: "maria", Password: "sunflower9"})
	require.NoError(t, err)

	reset, err := auth.RequestReset("maria")
	require.NoError(t, err)
	require.NotEmpty(t, reset.Token)

	require.NoError(t, auth.ConsumeReset(reset.Token, "newpassword1"))

	// The old password no longer works, the new one does.
	_, err = auth.Login(&dto.LoginRequest{Username: "maria", Password: "sunflower9"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(&dto.LoginRequest{Username: "maria", Password: "newpassword1"})
	require.NoError(t, err)

	// A consumed token can never be replayed.
	err = auth.ConsumeReset(reset.Token, "anotherpass2")
	assert.ErrorIs(t, err, ErrResetInvalid)
}

func TestResetTokenExpired(t *testing.T) {
	auth, db, _ := newTestAuth(t)

	resp, err := auth.Bootstrap(&dto.BootstrapRequest{Username: "maria", Password: "sunflower9"})
	require.NoError(t, err)

	reset, err := auth.RequestReset("maria")
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.PasswordResetToken{}).
		Where("user_id = ?", resp.User.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	err = auth.ConsumeReset(reset.Token, "newpassword1")
	assert.ErrorIs(t, err, ErrResetInvalid)
}

func TestResetForInactiveUserMintsNoToken(t *testing.T) {
	auth, db, _ := newTestAuth(t)

	resp, err := auth.Bootstrap(&dto.BootstrapRequest{Username: "maria", Password: "sunflower9"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", resp.User.ID).Update("active", false).Error)

	reset, err := auth.RequestReset("maria")
	require.NoError(t, err)
	assert.True(t, reset.OK)
	assert.Empty(t, reset.Token)
}

func TestChangePassword(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	resp, err := auth.Bootstrap(&dto.BootstrapRequest{Username: "maria", Password: "sunflower9"})
	require.NoError(t, err)

	err = auth.ChangePassword(resp.User.ID, "wrong", "newpassword1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = auth.ChangePassword(resp.User.ID, "sunflower9", "tiny")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	require.NoError(t, auth.ChangePassword(resp.User.ID, "sunflower9", "newpassword1"))
	_, err = auth.Login(&dto.LoginRequest{Username: "maria", Password: "newpassword1"})
	require.NoError(t, err)
}
