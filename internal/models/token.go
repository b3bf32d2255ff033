package models

import (
	"encoding/json"
	"time"
)

// Token is an OAuth token issued by the brokerage provider. It is
// immutable once constructed; a refresh produces a new Token that fully
// replaces the old one.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`

	// ExpiresAt is an absolute unix timestamp with the refresh skew
	// already subtracted, so the token reads as expired before the
	// provider actually invalidates it.
	ExpiresAt int64 `json:"expires_at"`

	// Raw is the original provider response, retained for diagnostics only.
	Raw json.RawMessage `json:"-"`
}

// ValidAt reports whether the token is still usable at the given time.
func (t *Token) ValidAt(now time.Time) bool {
	return t != nil && now.Unix() < t.ExpiresAt
}

// RemainingAt returns the number of seconds of usable lifetime left at
// the given time. Negative once the token has expired.
func (t *Token) RemainingAt(now time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.ExpiresAt - now.Unix()
}

// TokenStatus is the read-only authentication summary for a user,
// derived from the cached token without any network activity.
type TokenStatus struct {
	Authenticated    bool  `json:"authenticated"`
	ExpiresAt        int64 `json:"expires_at,omitempty"`
	ExpiresInSeconds int64 `json:"expires_in_seconds,omitempty"`
	NeedsRefresh     bool  `json:"needs_refresh"`
}

// Identity holds claims extracted from a token's id_token. The claims
// are not signature-verified and are for display/diagnostics only.
type Identity struct {
	Subject string `json:"subject"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}
