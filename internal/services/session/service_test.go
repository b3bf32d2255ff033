package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmindhq/flowmind/internal/clients/tradestation"
	"github.com/flowmindhq/flowmind/internal/common"
	"github.com/flowmindhq/flowmind/internal/models"
)

func newTestAuth(tokenURL string) *tradestation.AuthClient {
	return tradestation.NewAuthClient(common.TradeStationConfig{
		AuthURL:      "https://signin.example.com/authorize",
		TokenURL:     tokenURL,
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		Scope:        "openid offline_access",
		Timeout:      "5s",
		RefreshSkew:  "60s",
	}, nil)
}

func TestStatus_Unauthenticated(t *testing.T) {
	svc := NewService(newTestAuth("https://unused.example.com"), "http://localhost/cb", nil)

	status := svc.Status("u1")
	assert.False(t, status.Authenticated)
	assert.False(t, status.NeedsRefresh)
	assert.Zero(t, status.ExpiresAt)
}

func TestStatus_Authenticated(t *testing.T) {
	auth := newTestAuth("https://unused.example.com")
	svc := NewService(auth, "http://localhost/cb", nil)

	now := time.Unix(5000, 0)
	svc.now = func() time.Time { return now }
	auth.SetToken("u1", &models.Token{AccessToken: "a1", ExpiresAt: 5600})

	status := svc.Status("u1")
	assert.True(t, status.Authenticated)
	assert.Equal(t, int64(5600), status.ExpiresAt)
	assert.Equal(t, int64(600), status.ExpiresInSeconds)
	assert.False(t, status.NeedsRefresh)
}

func TestStatus_NeedsRefreshInsideWindow(t *testing.T) {
	auth := newTestAuth("https://unused.example.com")
	svc := NewService(auth, "http://localhost/cb", nil)

	now := time.Unix(5000, 0)
	svc.now = func() time.Time { return now }
	auth.SetToken("u1", &models.Token{AccessToken: "a1", ExpiresAt: 5030})

	status := svc.Status("u1")
	assert.True(t, status.Authenticated)
	assert.True(t, status.NeedsRefresh)
	assert.Equal(t, int64(30), status.ExpiresInSeconds)
}

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.FormValue("grant_type"))
		assert.Equal(t, "http://localhost/cb", r.FormValue("redirect_uri"))
		w.Write([]byte(`{"access_token":"a1","refresh_token":"r1","expires_in":1200}`))
	}))
	defer srv.Close()

	svc := NewService(newTestAuth(srv.URL), "http://localhost/cb", nil)

	require.NoError(t, svc.Login(context.Background(), "u1", "code-abc", ""))

	token, err := svc.BearerToken(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a1", token)
}

func TestLogin_ProviderErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	svc := NewService(newTestAuth(srv.URL), "http://localhost/cb", nil)

	err := svc.Login(context.Background(), "u1", "used-code", "")
	var te *tradestation.TokenError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "exchange", te.Op)

	_, err = svc.BearerToken(context.Background(), "u1")
	assert.ErrorIs(t, err, tradestation.ErrNotAuthenticated)
}

func TestLogoutClearsToken(t *testing.T) {
	auth := newTestAuth("https://unused.example.com")
	svc := NewService(auth, "http://localhost/cb", nil)
	auth.SetToken("u1", &models.Token{AccessToken: "a1", ExpiresAt: time.Now().Unix() + 600})

	svc.Logout("u1")

	_, err := svc.BearerToken(context.Background(), "u1")
	assert.ErrorIs(t, err, tradestation.ErrNotAuthenticated)
	assert.False(t, svc.Status("u1").Authenticated)
}

func TestBearerToken_NotAuthenticated(t *testing.T) {
	svc := NewService(newTestAuth("https://unused.example.com"), "http://localhost/cb", nil)

	_, err := svc.BearerToken(context.Background(), "u1")
	assert.ErrorIs(t, err, tradestation.ErrNotAuthenticated)
}

func TestLoginURL(t *testing.T) {
	svc := NewService(newTestAuth("https://unused.example.com"), "http://localhost/cb", nil)

	url := svc.LoginURL("state-1")
	assert.Contains(t, url, "https://signin.example.com/authorize?")
	assert.Contains(t, url, "state=state-1")
	assert.Contains(t, url, "client_id=test-client")
}

func TestNewState_Unique(t *testing.T) {
	svc := NewService(newTestAuth("https://unused.example.com"), "http://localhost/cb", nil)

	a := svc.NewState()
	b := svc.NewState()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestIdentity_ExtractsClaims(t *testing.T) {
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "ts-user-42",
		"email": "trader@example.com",
		"name":  "Test Trader",
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	auth := newTestAuth("https://unused.example.com")
	svc := NewService(auth, "http://localhost/cb", nil)
	auth.SetToken("u1", &models.Token{
		AccessToken: "a1",
		IDToken:     idToken,
		ExpiresAt:   time.Now().Unix() + 600,
	})

	identity, err := svc.Identity("u1")
	require.NoError(t, err)
	assert.Equal(t, "ts-user-42", identity.Subject)
	assert.Equal(t, "trader@example.com", identity.Email)
	assert.Equal(t, "Test Trader", identity.Name)
}

func TestIdentity_NoIDToken(t *testing.T) {
	auth := newTestAuth("https://unused.example.com")
	svc := NewService(auth, "http://localhost/cb", nil)
	auth.SetToken("u1", &models.Token{AccessToken: "a1", ExpiresAt: time.Now().Unix() + 600})

	_, err := svc.Identity("u1")
	assert.Error(t, err)
}

func TestIdentity_NotAuthenticated(t *testing.T) {
	svc := NewService(newTestAuth("https://unused.example.com"), "http://localhost/cb", nil)

	_, err := svc.Identity("u1")
	assert.ErrorIs(t, err, tradestation.ErrNotAuthenticated)
}
