package tradestation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/flowmindhq/flowmind/internal/common"
	"github.com/flowmindhq/flowmind/internal/interfaces"
	"github.com/flowmindhq/flowmind/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a
// string; TradeStation reports most monetary figures as strings.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://api.tradestation.com/v3"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client performs authenticated calls to the TradeStation brokerage API
// on behalf of a user, transparently handling a single expired-token
// case via refresh-and-retry on 401.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	auth       *AuthClient
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new brokerage API client backed by the given auth
// client.
func NewClient(auth *AuthClient, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		auth:    auth,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// do issues a single HTTP attempt with the given bearer credentials.
func (c *Client) do(ctx context.Context, method, reqURL, authz string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", authz)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// Call performs one authenticated request. A nil token from the auth
// client fails immediately with ErrNotAuthenticated, before any HTTP
// activity. A 401 response triggers exactly one refresh-and-retry; if
// that refresh fails, the failure is logged and the original 401
// becomes the result. Non-2xx responses map to APIError; transport
// errors are wrapped and never converted into authentication failures.
func (c *Client) Call(ctx context.Context, userID, method, path string, params url.Values, body, result interface{}) error {
	tok := c.auth.GetValidToken(ctx, userID)
	if tok == nil {
		return ErrNotAuthenticated
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("TradeStation API request")

	resp, err := c.do(ctx, method, reqURL, tok.TokenType+" "+tok.AccessToken, payload)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	status := resp.StatusCode

	// The access token can expire between the GetValidToken check and
	// the upstream call. One corrective refresh, never more.
	if status == http.StatusUnauthorized && tok.RefreshToken != "" {
		fresh, rerr := c.auth.Refresh(ctx, tok.RefreshToken)
		if rerr != nil {
			// Keep the original 401 rather than masking it with a
			// secondary refresh error.
			c.logger.Warn().Err(rerr).Str("user_id", userID).Msg("Refresh after 401 failed")
		} else {
			c.auth.SetToken(userID, fresh)

			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}
			retry, err := c.do(ctx, method, reqURL, fresh.TokenType+" "+fresh.AccessToken, payload)
			if err != nil {
				return fmt.Errorf("failed to execute request: %w", err)
			}
			retryBody, err := io.ReadAll(retry.Body)
			retry.Body.Close()
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}
			status = retry.StatusCode
			respBody = retryBody
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return &APIError{
			StatusCode: status,
			Message:    truncateBody(respBody),
			Endpoint:   path,
		}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// GetAccounts retrieves the brokerage accounts visible to the user
func (c *Client) GetAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	var resp accountsResponse
	if err := c.Call(ctx, userID, http.MethodGet, "/brokerage/accounts", nil, nil, &resp); err != nil {
		return nil, err
	}

	accounts := make([]*models.Account, len(resp.Accounts))
	for i, a := range resp.Accounts {
		accounts[i] = &models.Account{
			ID:       a.AccountID,
			Alias:    a.Alias,
			Type:     a.AccountType,
			Currency: a.Currency,
			Status:   a.Status,
		}
	}

	return accounts, nil
}

type accountsResponse struct {
	Accounts []struct {
		AccountID   string `json:"AccountID"`
		Alias       string `json:"Alias"`
		AccountType string `json:"AccountType"`
		Currency    string `json:"Currency"`
		Status      string `json:"Status"`
	} `json:"Accounts"`
}

// GetBalances retrieves balances for an account
func (c *Client) GetBalances(ctx context.Context, userID, accountID string) ([]*models.Balance, error) {
	var resp balancesResponse
	path := fmt.Sprintf("/brokerage/accounts/%s/balances", accountID)
	if err := c.Call(ctx, userID, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}

	balances := make([]*models.Balance, len(resp.Balances))
	for i, b := range resp.Balances {
		balances[i] = &models.Balance{
			AccountID:   b.AccountID,
			CashBalance: float64(b.CashBalance),
			Equity:      float64(b.Equity),
			MarketValue: float64(b.MarketValue),
			BuyingPower: float64(b.BuyingPower),
		}
	}

	return balances, nil
}

type balancesResponse struct {
	Balances []struct {
		AccountID   string      `json:"AccountID"`
		CashBalance flexFloat64 `json:"CashBalance"`
		Equity      flexFloat64 `json:"Equity"`
		MarketValue flexFloat64 `json:"MarketValue"`
		BuyingPower flexFloat64 `json:"BuyingPower"`
	} `json:"Balances"`
}

// GetPositions retrieves open positions for an account
func (c *Client) GetPositions(ctx context.Context, userID, accountID string) ([]*models.Position, error) {
	var resp positionsResponse
	path := fmt.Sprintf("/brokerage/accounts/%s/positions", accountID)
	if err := c.Call(ctx, userID, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}

	positions := make([]*models.Position, len(resp.Positions))
	for i, p := range resp.Positions {
		positions[i] = &models.Position{
			AccountID:    p.AccountID,
			Symbol:       p.Symbol,
			Quantity:     float64(p.Quantity),
			AveragePrice: float64(p.AveragePrice),
			Last:         float64(p.Last),
			MarketValue:  float64(p.MarketValue),
			TotalCost:    float64(p.TotalCost),
			UnrealizedPL: float64(p.UnrealizedProfitLoss),
			LongShort:    p.LongShort,
		}
	}

	return positions, nil
}

type positionsResponse struct {
	Positions []struct {
		AccountID            string      `json:"AccountID"`
		Symbol               string      `json:"Symbol"`
		Quantity             flexFloat64 `json:"Quantity"`
		AveragePrice         flexFloat64 `json:"AveragePrice"`
		Last                 flexFloat64 `json:"Last"`
		MarketValue          flexFloat64 `json:"MarketValue"`
		TotalCost            flexFloat64 `json:"TotalCost"`
		UnrealizedProfitLoss flexFloat64 `json:"UnrealizedProfitLoss"`
		LongShort            string      `json:"LongShort"`
	} `json:"Positions"`
}

// GetQuotes retrieves market data snapshots for the given symbols
func (c *Client) GetQuotes(ctx context.Context, userID string, symbols []string) ([]*models.Quote, error) {
	var resp quotesResponse
	path := "/marketdata/quotes/" + url.PathEscape(strings.Join(symbols, ","))
	if err := c.Call(ctx, userID, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}

	quotes := make([]*models.Quote, len(resp.Quotes))
	for i, q := range resp.Quotes {
		quotes[i] = &models.Quote{
			Symbol:        q.Symbol,
			Last:          float64(q.Last),
			Bid:           float64(q.Bid),
			Ask:           float64(q.Ask),
			High:          float64(q.High),
			Low:           float64(q.Low),
			PreviousClose: float64(q.PreviousClose),
			Volume:        float64(q.Volume),
			NetChange:     float64(q.NetChange),
			NetChangePct:  float64(q.NetChangePct),
		}
	}

	return quotes, nil
}

type quotesResponse struct {
	Quotes []struct {
		Symbol        string      `json:"Symbol"`
		Last          flexFloat64 `json:"Last"`
		Bid           flexFloat64 `json:"Bid"`
		Ask           flexFloat64 `json:"Ask"`
		High          flexFloat64 `json:"High"`
		Low           flexFloat64 `json:"Low"`
		PreviousClose flexFloat64 `json:"PreviousClose"`
		Volume        flexFloat64 `json:"Volume"`
		NetChange     flexFloat64 `json:"NetChange"`
		NetChangePct  flexFloat64 `json:"NetChangePercent"`
	} `json:"Quotes"`
}

// Ensure Client implements BrokerageClient
var _ interfaces.BrokerageClient = (*Client)(nil)
