package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "https://api.tradestation.com/v3", config.Clients.TradeStation.BaseURL)
	assert.Equal(t, "https://signin.tradestation.com/oauth/token", config.Clients.TradeStation.TokenURL)
	assert.Equal(t, 5, config.Clients.TradeStation.RateLimit)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flowmind.toml")
	data := `
environment = "production"

[clients.tradestation]
client_id = "file-client"
rate_limit = 12

[logging]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.True(t, config.IsProduction())
	assert.Equal(t, "file-client", config.Clients.TradeStation.ClientID)
	assert.Equal(t, 12, config.Clients.TradeStation.RateLimit)
	assert.Equal(t, "debug", config.Logging.Level)

	// Untouched fields keep defaults.
	assert.Equal(t, "https://api.tradestation.com/v3", config.Clients.TradeStation.BaseURL)
}

func TestLoadConfig_MissingFileSkipped(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "development", config.Environment)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("FLOWMIND_ENV", "prod")
	t.Setenv("FLOWMIND_LOG_LEVEL", "warn")
	t.Setenv("TRADESTATION_CLIENT_ID", "env-client")
	t.Setenv("TRADESTATION_CLIENT_SECRET", "env-secret")
	t.Setenv("TRADESTATION_REDIRECT_URI", "https://flowmind.example.com/callback")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, config.IsProduction())
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, "env-client", config.Clients.TradeStation.ClientID)
	assert.Equal(t, "env-secret", config.Clients.TradeStation.ClientSecret)
	assert.Equal(t, "https://flowmind.example.com/callback", config.Clients.TradeStation.RedirectURI)
}

func TestTradeStationConfig_DurationFallbacks(t *testing.T) {
	cfg := TradeStationConfig{Timeout: "bogus", RefreshSkew: ""}
	assert.Equal(t, 15*time.Second, cfg.GetTimeout())
	assert.Equal(t, 60*time.Second, cfg.GetRefreshSkew())

	cfg = TradeStationConfig{Timeout: "2s", RefreshSkew: "90s"}
	assert.Equal(t, 2*time.Second, cfg.GetTimeout())
	assert.Equal(t, 90*time.Second, cfg.GetRefreshSkew())
}
