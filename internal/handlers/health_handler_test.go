package handlers_test

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthIsPublic(t *testing.T) {
	app, _ := newTestApp(t)

	var body struct {
		Status string `json:"status"`
	}
	resp := doJSON(t, app, fiber.MethodGet, "/api/health", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &body)
	assert.Equal(t, "ok", body.Status)
}

func TestVersionWithoutRegistry(t *testing.T) {
	app, _ := newTestApp(t)

	var body struct {
		Current string  `json:"current"`
		Latest  *string `json:"latest"`
	}
	resp := doJSON(t, app, fiber.MethodGet, "/api/version", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &body)
	assert.Equal(t, "test", body.Current)
	assert.Nil(t, body.Latest)
}
