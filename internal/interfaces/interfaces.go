// Package interfaces defines the contracts between Flowmind components.
package interfaces

import (
	"context"
	"net/url"

	"github.com/flowmindhq/flowmind/internal/models"
)

// TokenSource owns per-user OAuth token state. GetValidToken coordinates
// concurrent callers so at most one refresh is in flight per user; a nil
// result means no valid token is obtainable.
type TokenSource interface {
	GetValidToken(ctx context.Context, userID string) *models.Token
	GetCachedToken(userID string) *models.Token
	SetToken(userID string, tok *models.Token)
	DeleteToken(userID string)
}

// BrokerageClient performs authenticated calls to the brokerage API.
type BrokerageClient interface {
	Call(ctx context.Context, userID, method, path string, params url.Values, body, result interface{}) error
	GetAccounts(ctx context.Context, userID string) ([]*models.Account, error)
	GetBalances(ctx context.Context, userID, accountID string) ([]*models.Balance, error)
	GetPositions(ctx context.Context, userID, accountID string) ([]*models.Position, error)
	GetQuotes(ctx context.Context, userID string, symbols []string) ([]*models.Quote, error)
}

// SessionService is the authentication facade consumed by the transport
// layer.
type SessionService interface {
	NewState() string
	LoginURL(state string) string
	Login(ctx context.Context, userID, code, redirectURI string) error
	Logout(userID string)
	BearerToken(ctx context.Context, userID string) (string, error)
	Status(userID string) models.TokenStatus
	Identity(userID string) (*models.Identity, error)
}
