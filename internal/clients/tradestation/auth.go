// Package tradestation provides clients for the TradeStation OAuth
// provider and brokerage API.
package tradestation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flowmindhq/flowmind/internal/common"
	"github.com/flowmindhq/flowmind/internal/interfaces"
	"github.com/flowmindhq/flowmind/internal/models"
)

// AuthClient owns the per-user OAuth token lifecycle: authorization-code
// exchange, refresh-token exchange, the in-memory token cache, and the
// single-flight guarantee that concurrent callers trigger at most one
// network refresh per user.
type AuthClient struct {
	authURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	refreshSkew  time.Duration

	httpClient *http.Client
	logger     *common.Logger
	store      *tokenStore
	now        func() time.Time
}

// NewAuthClient creates an auth client from TradeStation configuration.
// A nil logger falls back to the silent logger.
func NewAuthClient(cfg common.TradeStationConfig, logger *common.Logger) *AuthClient {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &AuthClient{
		authURL:      cfg.AuthURL,
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		scope:        cfg.Scope,
		refreshSkew:  cfg.GetRefreshSkew(),
		httpClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
		logger: logger,
		store:  newTokenStore(),
		now:    time.Now,
	}
}

// BuildAuthorizationURL constructs the provider's /authorize URL for the
// browser-redirect step. Pure construction: an empty client id still
// yields a URL, which the provider will reject downstream.
func (c *AuthClient) BuildAuthorizationURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", c.scope)
	q.Set("state", state)
	return c.authURL + "?" + q.Encode()
}

// tokenResponse is the provider's token endpoint payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
	IDToken      string `json:"id_token"`
}

// ExchangeCode exchanges an authorization code for a token. The returned
// token is not stored; the caller persists it via SetToken.
func (c *AuthClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*models.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	return c.postToken(ctx, "exchange", form)
}

// Refresh exchanges a refresh token for a new token. Not retried on
// failure; the returned token is not stored.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*models.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	return c.postToken(ctx, "refresh", form)
}

func (c *AuthClient) postToken(ctx context.Context, op string, form url.Values) (*models.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug().Str("op", op).Msg("TradeStation token request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token %s response: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TokenError{Op: op, StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode token %s response: %w", op, err)
	}

	return c.normalize(tr, body), nil
}

// normalize turns a provider payload into a Token, converting the
// relative expires_in into an absolute deadline with the refresh skew
// already subtracted.
func (c *AuthClient) normalize(tr tokenResponse, raw []byte) *models.Token {
	tokenType := tr.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &models.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tokenType,
		Scope:        tr.Scope,
		IDToken:      tr.IDToken,
		ExpiresAt:    c.now().Unix() + tr.ExpiresIn - int64(c.refreshSkew.Seconds()),
		Raw:          json.RawMessage(raw),
	}
}

// SetToken unconditionally replaces the stored token for the user.
func (c *AuthClient) SetToken(userID string, tok *models.Token) {
	c.store.set(userID, tok)
}

// GetCachedToken returns the stored token only while it is still valid.
// Pure read, no network and no locking; the fast path for status
// endpoints.
func (c *AuthClient) GetCachedToken(userID string) *models.Token {
	return c.store.getValid(userID, c.now())
}

// DeleteToken removes the stored token for the user (logout).
func (c *AuthClient) DeleteToken(userID string) {
	c.store.delete(userID)
}

// GetValidToken returns a valid token for the user, refreshing at most
// once across all concurrent callers. It never returns an error: a nil
// result means no token is obtainable and the caller decides how to
// surface that.
func (c *AuthClient) GetValidToken(ctx context.Context, userID string) *models.Token {
	// Fast path, no locking.
	if tok := c.store.getValid(userID, c.now()); tok != nil {
		return tok
	}

	lk := c.store.refreshLock(userID)
	lk.Lock()
	defer lk.Unlock()

	// Another caller may have refreshed while this one waited.
	if tok := c.store.getValid(userID, c.now()); tok != nil {
		return tok
	}

	cur := c.store.get(userID)
	if cur == nil || cur.RefreshToken == "" {
		return nil
	}

	tok, err := c.Refresh(ctx, cur.RefreshToken)
	if err != nil {
		// Deliberately discarded: absence of a valid token is
		// signalled by nil, not by error.
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("Token refresh failed")
		return nil
	}

	c.store.set(userID, tok)
	c.logger.Debug().Str("user_id", userID).Int64("expires_at", tok.ExpiresAt).Msg("Token refreshed")
	return tok
}

// Ensure AuthClient implements TokenSource
var _ interfaces.TokenSource = (*AuthClient)(nil)
