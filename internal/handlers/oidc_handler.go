package handlers

import (
	"errors"
	"log/slog"
	"net/url"

	"github.com/duospend/backend/internal/config"
	"github.com/duospend/backend/internal/dto"
	"github.com/duospend/backend/internal/middleware"
	"github.com/duospend/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type OIDCHandler struct {
	oidcService *services.OIDCService
	cfg         *config.Config
}

func NewOIDCHandler(oidcService *services.OIDCService, cfg *config.Config) *OIDCHandler {
	return &OIDCHandler{oidcService: oidcService, cfg: cfg}
}

func (h *OIDCHandler) Config(c *fiber.Ctx) error {
	enabled, providerName := h.oidcService.PublicConfig()
	return c.JSON(dto.OIDCConfigResponse{Enabled: enabled, ProviderName: providerName})
}

// Start begins an external login flow and redirects the browser to the
// provider.
func (h *OIDCHandler) Start(c *fiber.Ctx) error {
	authURL, err := h.oidcService.StartLogin(c.UserContext())
	if err != nil {
		if errors.Is(err, services.ErrOIDCNotConfigured) {
			return badRequest(c, "External login is not configured")
		}
		slog.Error("oidc start failed", "error", err)
		return internalError(c)
	}
	return c.Redirect(authURL, fiber.StatusFound)
}

// Link begins an account-linking flow for the authenticated caller and
// returns the authorization URL instead of redirecting.
func (h *OIDCHandler) Link(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	authURL, err := h.oidcService.StartLink(c.UserContext(), user.ID)
	if err != nil {
		if errors.Is(err, services.ErrOIDCNotConfigured) {
			return badRequest(c, "External login is not configured")
		}
		slog.Error("oidc link start failed", "error", err, "user_id", user.ID.String())
		return internalError(c)
	}
	return c.JSON(dto.OIDCLinkResponse{URL: authURL})
}

// Callback is a browser-facing redirect target, so every terminal branch
// answers with a redirect to the frontend carrying a query marker rather
// than a raw status code.
func (h *OIDCHandler) Callback(c *fiber.Ctx) error {
	state := c.Query("state")
	code := c.Query("code")

	result, err := h.oidcService.Callback(c.UserContext(), state, code)
	if err != nil {
		return h.redirectMarker(c, callbackMarker(err))
	}

	if result.Token != "" {
		return c.Redirect(h.cfg.FrontendURL+"?token="+url.QueryEscape(result.Token), fiber.StatusFound)
	}
	if result.Linked {
		return h.redirectMarker(c, "linked")
	}
	return h.redirectMarker(c, "failed")
}

func (h *OIDCHandler) redirectMarker(c *fiber.Ctx, marker string) error {
	return c.Redirect(h.cfg.FrontendURL+"?oidc="+marker, fiber.StatusFound)
}

func callbackMarker(err error) string {
	switch {
	case errors.Is(err, services.ErrStateExpired):
		return "expired"
	case errors.Is(err, services.ErrStateInvalid):
		return "invalid"
	case errors.Is(err, services.ErrIdentityUnlinked):
		return "unlinked"
	case errors.Is(err, services.ErrAccountDisabled):
		return "inactive"
	case errors.Is(err, services.ErrLinkConflict):
		return "linked_conflict"
	default:
		slog.Error("oidc callback failed", "error", err)
		return "failed"
	}
}
