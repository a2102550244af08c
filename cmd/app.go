package cmd

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/teemow/calgateway/internal/calendar"
	"github.com/teemow/calgateway/internal/config"
	"github.com/teemow/calgateway/internal/instrumentation"
	"github.com/teemow/calgateway/internal/token"
)

// loadConfig resolves the configuration for cmd: the config file, then
// CALENDAR_* variables, then any persistent flag set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, path, err := config.Resolve(globals.configPath)
	if err != nil {
		return nil, err
	}
	if path != "" {
		slog.Debug("loaded config file", "path", path)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	applyFlagOverrides(cmd, cfg)
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = globals.baseURL
	}
	if cmd.Flags().Changed("client-id") {
		cfg.ClientID = globals.clientID
	}
	if cmd.Flags().Changed("client-secret") {
		cfg.ClientSecret = globals.clientSecret
	}
}

// clients bundles the credential cache and the gateway built on it.
type clients struct {
	tokens  *token.Cache
	gateway *calendar.Gateway
}

// newClients wires one token cache and one gateway for cfg. metrics may be nil.
func newClients(cfg *config.Config, metrics *instrumentation.Metrics, logger *slog.Logger) *clients {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	auth := &token.ClientCredentials{
		BaseURL:      cfg.BaseURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		HTTPClient:   httpClient,
		Metrics:      metrics,
		Logger:       logger,
	}
	tokens := token.New(auth,
		token.WithMetrics(metrics),
		token.WithLogger(logger),
	)

	gateway := calendar.NewGateway(cfg.BaseURL, tokens,
		calendar.WithHTTPClient(httpClient),
		calendar.WithMetrics(metrics),
		calendar.WithLogger(logger),
	)

	return &clients{tokens: tokens, gateway: gateway}
}

// clientsForCommand loads the configuration and wires clients without
// instrumentation, as used by the one-shot commands.
func clientsForCommand(cmd *cobra.Command) (*config.Config, *clients, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	return cfg, newClients(cfg, nil, nil), nil
}
