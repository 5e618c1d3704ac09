package handlers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal valid PNG header, enough for content-type sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13}

func uploadAvatar(t *testing.T, app *fiber.App, token string, content []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/api/users/me/avatar", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestProfileUpdate(t *testing.T) {
	app, _ := newTestApp(t)
	token := bootstrapAdmin(t, app)

	resp := doJSON(t, app, fiber.MethodPatch, "/api/users/me", token, fiber.Map{
		"displayName": "Admina",
		"theme":       "dark",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var me map[string]interface{}
	resp = doJSON(t, app, fiber.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &me)
	assert.Equal(t, "Admina", me["displayName"])
	assert.Equal(t, "dark", me["theme"])
}

func TestProfileUpdateRejectsUnknownTheme(t *testing.T) {
	app, _ := newTestApp(t)
	token := bootstrapAdmin(t, app)

	resp := doJSON(t, app, fiber.MethodPatch, "/api/users/me", token, fiber.Map{
		"theme": "sepia",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	app, _ := newTestApp(t)
	admin := bootstrapAdmin(t, app)
	member := createUserAndLogin(t, app, admin, "jonas", "riverbed88")

	resp := doJSON(t, app, fiber.MethodGet, "/api/users", member, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodPost, "/api/users", member, fiber.Map{
		"username": "intruder", "password": "whatever12",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodGet, "/api/backup/export", member, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	app, _ := newTestApp(t)
	admin := bootstrapAdmin(t, app)

	resp := doJSON(t, app, fiber.MethodPost, "/api/users", admin, fiber.Map{
		"username": "jonas", "password": "riverbed88",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// Uniqueness is case-insensitive.
	resp = doJSON(t, app, fiber.MethodPost, "/api/users", admin, fiber.Map{
		"username": "Jonas", "password": "riverbed88",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestAdminUpdateUserRole(t *testing.T) {
	app, _ := newTestApp(t)
	admin := bootstrapAdmin(t, app)

	var created struct {
		ID string `json:"id"`
	}
	resp := doJSON(t, app, fiber.MethodPost, "/api/users", admin, fiber.Map{
		"username": "jonas", "password": "riverbed88",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	decode(t, resp, &created)

	var updated struct {
		Role string `json:"role"`
	}
	resp = doJSON(t, app, fiber.MethodPatch, "/api/users/"+created.ID, admin, fiber.Map{
		"role": "admin",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &updated)
	assert.Equal(t, "admin", updated.Role)
}

func TestAvatarUpload(t *testing.T) {
	app, _ := newTestApp(t)
	token := bootstrapAdmin(t, app)

	resp := uploadAvatar(t, app, token, pngHeader)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		AvatarURL string `json:"avatarUrl"`
	}
	decode(t, resp, &body)
	assert.True(t, strings.HasPrefix(body.AvatarURL, "/avatars/"))
	assert.True(t, strings.HasSuffix(body.AvatarURL, ".png"))

	var me map[string]interface{}
	resp = doJSON(t, app, fiber.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &me)
	assert.Equal(t, body.AvatarURL, me["avatarUrl"])
}

func TestAvatarUploadRejectsNonImage(t *testing.T) {
	app, _ := newTestApp(t)
	token := bootstrapAdmin(t, app)

	resp := uploadAvatar(t, app, token, []byte("#!/bin/sh\necho pwned\n"))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
