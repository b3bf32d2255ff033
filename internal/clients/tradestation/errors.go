package tradestation

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when no usable token exists for a user
// and no refresh was possible.
var ErrNotAuthenticated = errors.New("tradestation: not authenticated")

// maxErrorBody caps the provider/API response body attached to errors.
const maxErrorBody = 500

// TokenError is a provider rejection of a code or refresh-token
// exchange. Op is "exchange" or "refresh".
type TokenError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("TradeStation token %s failed (status: %d): %s", e.Op, e.StatusCode, e.Body)
}

// APIError represents a brokerage API error unrelated to authentication,
// or a 401 that survived the single refresh-and-retry.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("TradeStation API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}
