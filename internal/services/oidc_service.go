package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/duospend/backend/internal/models"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

var (
	ErrOIDCNotConfigured = errors.New("oidc is not configured")
	ErrIdentityUnlinked  = errors.New("external identity is not linked to any account")
	ErrLinkConflict      = errors.New("external identity is linked to a different account")
)

const oidcStateTTL = 10 * time.Minute

// CallbackResult is the terminal outcome of a provider callback. Token is set
// for a successful login; Linked for a successful (or idempotent) link.
type CallbackResult struct {
	Token  string
	Linked bool
}

// OIDCService delegates authentication to one configured external provider
// using the authorization-code + PKCE flow and reconciles results against
// local identity links. Login never auto-provisions accounts; an explicit
// link step must have happened first.
type OIDCService struct {
	db       *gorm.DB
	auth     *AuthService
	settings *SettingsService
	states   *OIDCStateStore

	mu          sync.Mutex
	providerKey string
	provider    *oidc.Provider
	oauthCfg    *oauth2.Config
}

func NewOIDCService(db *gorm.DB, auth *AuthService, settings *SettingsService) *OIDCService {
	return &OIDCService{
		db:       db,
		auth:     auth,
		settings: settings,
		states:   NewOIDCStateStore(oidcStateTTL),
	}
}

// PublicConfig reports whether external login is available without exposing
// any provider credentials.
func (s *OIDCService) PublicConfig() (bool, string) {
	settings, err := s.settings.Get()
	if err != nil || settings.OIDC == nil {
		return false, ""
	}
	o := settings.OIDC
	configured := o.Enabled && o.Issuer != "" && o.ClientID != "" && o.RedirectURI != ""
	if !configured {
		return false, ""
	}
	return true, o.ProviderName
}

// StartLogin begins an external login flow and returns the provider
// authorization URL.
func (s *OIDCService) StartLogin(ctx context.Context) (string, error) {
	return s.start(ctx, OIDCPurposeLogin, nil)
}

// StartLink begins an account-linking flow bound to an authenticated user.
func (s *OIDCService) StartLink(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.start(ctx, OIDCPurposeLink, &userID)
}

func (s *OIDCService) start(ctx context.Context, purpose string, userID *uuid.UUID) (string, error) {
	_, conf, _, err := s.resolve(ctx)
	if err != nil {
		return "", err
	}

	state, tx, err := s.states.Create(purpose, userID)
	if err != nil {
		return "", err
	}

	url := conf.AuthCodeURL(state,
		oauth2.S256ChallengeOption(tx.Verifier),
		oidc.Nonce(tx.Nonce),
	)
	return url, nil
}

// Callback consumes the transaction for the returned state, exchanges the
// code, verifies the ID token and reconciles the asserted subject against
// local identity links. The transaction is gone after this call no matter
// which branch terminates it.
func (s *OIDCService) Callback(ctx context.Context, state, code string) (*CallbackResult, error) {
	tx, err := s.states.Consume(state)
	if err != nil {
		// Unknown or expired state never reaches the provider.
		return nil, err
	}

	provider, conf, issuer, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	oauthToken, err := conf.Exchange(ctx, code, oauth2.VerifierOption(tx.Verifier))
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	rawIDToken, ok := oauthToken.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("token response carried no id_token")
	}

	idToken, err := provider.Verifier(&oidc.Config{ClientID: conf.ClientID}).Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("id token verification failed: %w", err)
	}
	if idToken.Nonce != tx.Nonce {
		return nil, errors.New("nonce mismatch")
	}

	switch tx.Purpose {
	case OIDCPurposeLogin:
		return s.completeLogin(issuer, idToken.Subject)
	case OIDCPurposeLink:
		if tx.UserID == nil {
			return nil, errors.New("link transaction carried no user")
		}
		return s.completeLink(issuer, idToken.Subject, *tx.UserID)
	default:
		return nil, fmt.Errorf("unknown transaction purpose %q", tx.Purpose)
	}
}

func (s *OIDCService) completeLogin(issuer, subject string) (*CallbackResult, error) {
	var link models.IdentityLink
	err := s.db.Where("issuer = ? AND subject = ?", issuer, subject).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIdentityUnlinked
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load identity link: %w", err)
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", link.UserID).Error; err != nil {
		return nil, ErrIdentityUnlinked
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}

	resp, err := s.auth.finishLogin(&user)
	if err != nil {
		return nil, err
	}
	return &CallbackResult{Token: resp.Token}, nil
}

func (s *OIDCService) completeLink(issuer, subject string, userID uuid.UUID) (*CallbackResult, error) {
	var existing models.IdentityLink
	err := s.db.Where("issuer = ? AND subject = ?", issuer, subject).First(&existing).Error
	if err == nil {
		if existing.UserID == userID {
			// Relinking the same identity is a no-op.
			return &CallbackResult{Linked: true}, nil
		}
		return nil, ErrLinkConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load identity link: %w", err)
	}

	// One identity per issuer per user.
	err = s.db.Where("issuer = ? AND user_id = ?", issuer, userID).First(&existing).Error
	if err == nil {
		return nil, ErrLinkConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load identity link: %w", err)
	}

	link := models.IdentityLink{Issuer: issuer, Subject: subject, UserID: userID}
	if err := s.db.Create(&link).Error; err != nil {
		return nil, fmt.Errorf("failed to create identity link: %w", err)
	}
	return &CallbackResult{Linked: true}, nil
}

// resolve returns the cached provider handle, rebuilding it only when the
// admin-edited configuration tuple changes.
func (s *OIDCService) resolve(ctx context.Context) (*oidc.Provider, *oauth2.Config, string, error) {
	settings, err := s.settings.Get()
	if err != nil {
		return nil, nil, "", err
	}

	o := settings.OIDC
	if o == nil || !o.Enabled || o.Issuer == "" || o.ClientID == "" || o.RedirectURI == "" {
		return nil, nil, "", ErrOIDCNotConfigured
	}

	key := fmt.Sprintf("%s|%s|%t|%s", o.Issuer, o.ClientID, o.ClientSecret != "", o.RedirectURI)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provider == nil || s.providerKey != key {
		provider, err := oidc.NewProvider(ctx, o.Issuer)
		if err != nil {
			return nil, nil, "", fmt.Errorf("provider discovery failed: %w", err)
		}
		s.provider = provider
		s.oauthCfg = &oauth2.Config{
			ClientID:     o.ClientID,
			ClientSecret: o.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  o.RedirectURI,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		}
		s.providerKey = key
	}
	return s.provider, s.oauthCfg, o.Issuer, nil
}
