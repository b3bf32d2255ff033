package models

// Account is a brokerage account visible to the authenticated user.
type Account struct {
	ID       string `json:"id"`
	Alias    string `json:"alias,omitempty"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// Balance holds the cash and equity figures for one account.
type Balance struct {
	AccountID   string  `json:"account_id"`
	CashBalance float64 `json:"cash_balance"`
	Equity      float64 `json:"equity"`
	MarketValue float64 `json:"market_value"`
	BuyingPower float64 `json:"buying_power"`
}

// Position is an open holding in a brokerage account.
type Position struct {
	AccountID    string  `json:"account_id"`
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	Last         float64 `json:"last"`
	MarketValue  float64 `json:"market_value"`
	TotalCost    float64 `json:"total_cost"`
	UnrealizedPL float64 `json:"unrealized_pl"`
	LongShort    string  `json:"long_short"`
}

// Quote is a market data snapshot for one symbol.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Last          float64 `json:"last"`
	Bid           float64 `json:"bid"`
	Ask           float64 `json:"ask"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	PreviousClose float64 `json:"previous_close"`
	Volume        float64 `json:"volume"`
	NetChange     float64 `json:"net_change"`
	NetChangePct  float64 `json:"net_change_pct"`
}
