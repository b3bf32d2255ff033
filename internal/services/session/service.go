// Package session exposes the authentication facade consumed by the
// transport layer: login, logout, token status, and bearer credentials.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/flowmindhq/flowmind/internal/clients/tradestation"
	"github.com/flowmindhq/flowmind/internal/common"
	"github.com/flowmindhq/flowmind/internal/interfaces"
	"github.com/flowmindhq/flowmind/internal/models"
)

// needsRefreshWindow is the remaining lifetime below which Status flags
// a token as needing refresh.
const needsRefreshWindow = 60 * time.Second

// Service wraps the TradeStation auth client with user-facing session
// operations.
type Service struct {
	auth        *tradestation.AuthClient
	redirectURI string
	logger      *common.Logger
	now         func() time.Time
}

// NewService creates a session service. A nil logger falls back to the
// silent logger.
func NewService(auth *tradestation.AuthClient, redirectURI string, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		auth:        auth,
		redirectURI: redirectURI,
		logger:      logger,
		now:         time.Now,
	}
}

// NewState generates an opaque state value for the authorization
// redirect.
func (s *Service) NewState() string {
	return uuid.NewString()
}

// LoginURL returns the provider authorization URL for the configured
// redirect URI.
func (s *Service) LoginURL(state string) string {
	return s.auth.BuildAuthorizationURL(s.redirectURI, state)
}

// Login exchanges an authorization code and stores the resulting token
// for the user. An empty redirectURI falls back to the configured one.
func (s *Service) Login(ctx context.Context, userID, code, redirectURI string) error {
	if redirectURI == "" {
		redirectURI = s.redirectURI
	}

	tok, err := s.auth.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return err
	}

	s.auth.SetToken(userID, tok)
	s.logger.Info().Str("user_id", userID).Int64("expires_at", tok.ExpiresAt).Msg("User logged in")
	return nil
}

// Logout removes the stored token for the user.
func (s *Service) Logout(userID string) {
	s.auth.DeleteToken(userID)
	s.logger.Info().Str("user_id", userID).Msg("User logged out")
}

// BearerToken returns the access token for the user, refreshing if
// needed. Fails with ErrNotAuthenticated when no valid token is
// obtainable.
func (s *Service) BearerToken(ctx context.Context, userID string) (string, error) {
	tok := s.auth.GetValidToken(ctx, userID)
	if tok == nil {
		return "", tradestation.ErrNotAuthenticated
	}
	return tok.AccessToken, nil
}

// Status derives the read-only authentication summary for a user from
// the cached token. Never triggers network activity.
func (s *Service) Status(userID string) models.TokenStatus {
	tok := s.auth.GetCachedToken(userID)
	if tok == nil {
		return models.TokenStatus{}
	}

	remaining := tok.RemainingAt(s.now())
	return models.TokenStatus{
		Authenticated:    true,
		ExpiresAt:        tok.ExpiresAt,
		ExpiresInSeconds: remaining,
		NeedsRefresh:     remaining <= int64(needsRefreshWindow.Seconds()),
	}
}

// Identity extracts claims from the user's id_token. The signature is
// not verified; the result is for display and diagnostics only.
func (s *Service) Identity(userID string) (*models.Identity, error) {
	tok := s.auth.GetCachedToken(userID)
	if tok == nil {
		return nil, tradestation.ErrNotAuthenticated
	}
	if tok.IDToken == "" {
		return nil, fmt.Errorf("no id_token for user %s", userID)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok.IDToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse id_token: %w", err)
	}

	identity := &models.Identity{}
	if sub, ok := claims["sub"].(string); ok {
		identity.Subject = sub
	}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}

	return identity, nil
}

// Ensure Service implements SessionService
var _ interfaces.SessionService = (*Service)(nil)
