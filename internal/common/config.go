// Package common provides shared utilities for Flowmind
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Flowmind
type Config struct {
	Environment string        `toml:"environment"`
	Clients     ClientsConfig `toml:"clients"`
	Logging     LoggingConfig `toml:"logging"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	TradeStation TradeStationConfig `toml:"tradestation"`
}

// TradeStationConfig holds TradeStation OAuth and API configuration
type TradeStationConfig struct {
	BaseURL      string `toml:"base_url"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	Scope        string `toml:"scope"`
	Timeout      string `toml:"timeout"`
	RateLimit    int    `toml:"rate_limit"`
	RefreshSkew  string `toml:"refresh_skew"`
}

// GetTimeout parses and returns the HTTP timeout duration
func (c *TradeStationConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// GetRefreshSkew parses and returns the expiry safety margin. Tokens are
// treated as expired this long before the provider actually invalidates
// them, leaving headroom for a refresh round-trip.
func (c *TradeStationConfig) GetRefreshSkew() time.Duration {
	d, err := time.ParseDuration(c.RefreshSkew)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Clients: ClientsConfig{
			TradeStation: TradeStationConfig{
				BaseURL:     "https://api.tradestation.com/v3",
				AuthURL:     "https://signin.tradestation.com/authorize",
				TokenURL:    "https://signin.tradestation.com/oauth/token",
				RedirectURI: "http://localhost:3000/callback",
				Scope:       "openid offline_access profile MarketData ReadAccount",
				Timeout:     "15s",
				RateLimit:   5,
				RefreshSkew: "60s",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FLOWMIND_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("FLOWMIND_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	ts := &config.Clients.TradeStation
	if v := os.Getenv("TRADESTATION_CLIENT_ID"); v != "" {
		ts.ClientID = v
	}
	if v := os.Getenv("TRADESTATION_CLIENT_SECRET"); v != "" {
		ts.ClientSecret = v
	}
	if v := os.Getenv("TRADESTATION_REDIRECT_URI"); v != "" {
		ts.RedirectURI = v
	}
	if v := os.Getenv("TRADESTATION_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			ts.RateLimit = n
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
