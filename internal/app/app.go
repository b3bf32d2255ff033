// Package app wires configuration, logging, clients, and services into
// a single explicitly-constructed unit.
package app

import (
	"fmt"
	"os"
	"time"

	"github.com/flowmindhq/flowmind/internal/clients/tradestation"
	"github.com/flowmindhq/flowmind/internal/common"
	"github.com/flowmindhq/flowmind/internal/services/session"
)

// App holds all initialized clients and services. Token state lives
// inside the auth client for the lifetime of the App; there is no
// module-level state anywhere.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Auth        *tradestation.AuthClient
	Brokerage   *tradestation.Client
	Session     *session.Service
	StartupTime time.Time
}

// NewApp initializes configuration, logging, the TradeStation clients,
// and the session service. configPath may be empty, in which case
// FLOWMIND_CONFIG and then the default path are used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	if configPath == "" {
		configPath = os.Getenv("FLOWMIND_CONFIG")
	}
	if configPath == "" {
		configPath = "config/flowmind.toml"
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	ts := config.Clients.TradeStation
	if ts.ClientID == "" {
		logger.Warn().Msg("TradeStation client id not configured - login will fail at the provider")
	}

	auth := tradestation.NewAuthClient(ts, logger)
	brokerage := tradestation.NewClient(auth,
		tradestation.WithBaseURL(ts.BaseURL),
		tradestation.WithLogger(logger),
		tradestation.WithRateLimit(ts.RateLimit),
		tradestation.WithTimeout(ts.GetTimeout()),
	)
	sess := session.NewService(auth, ts.RedirectURI, logger)

	a := &App{
		Config:      config,
		Logger:      logger,
		Auth:        auth,
		Brokerage:   brokerage,
		Session:     sess,
		StartupTime: startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}
