// Package clients builds the external clients a sync needs from configuration.
package clients

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/eshaffer321/itemize/internal/adapters/ledger/monarch"
	"github.com/eshaffer321/itemize/internal/adapters/providers"
	"github.com/eshaffer321/itemize/internal/adapters/providers/amazon"
	"github.com/eshaffer321/itemize/internal/adapters/providers/costco"
	"github.com/eshaffer321/itemize/internal/adapters/providers/walmart"
	"github.com/eshaffer321/itemize/internal/infrastructure/config"
)

// ErrNoLedgerKey is returned when no Monarch API key is configured anywhere
var ErrNoLedgerKey = errors.New("monarch API key not configured (set ledger.api_key or MONARCH_TOKEN)")

// Clients holds the ledger client and every enabled order source
type Clients struct {
	Ledger   *monarch.Client
	Registry *providers.Registry
}

func NewClients(cfg *config.Config, logger *slog.Logger) (*Clients, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Get API keys with fallback to alternative env var names
	monarchToken := cfg.GetAPIKey(cfg.Ledger.APIKey, "MONARCH_TOKEN", "MONARCH_API_KEY")
	if monarchToken == "" {
		return nil, ErrNoLedgerKey
	}

	ledger := monarch.NewClient(monarch.Config{
		APIKey:  monarchToken,
		BaseURL: cfg.Ledger.BaseURL,
	}, logger)

	registry, err := NewRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Clients{
		Ledger:   ledger,
		Registry: registry,
	}, nil
}

// NewRegistry registers a source for each enabled provider, in sync order
func NewRegistry(cfg *config.Config, logger *slog.Logger) (*providers.Registry, error) {
	registry := providers.NewRegistry(logger)
	p := cfg.Providers

	var sources []providers.OrderSource
	if p.Amazon.Enabled {
		sources = append(sources, amazon.NewProvider(logger, &amazon.ProviderConfig{
			Profile:  p.Amazon.Profile,
			Headless: p.Amazon.Headless,
		}))
	}
	if p.Walmart.Enabled {
		sources = append(sources, walmart.NewProvider(walmart.Config{
			BaseURL:     p.Walmart.BaseURL,
			Cookie:      cfg.GetAPIKey(p.Walmart.Cookie, "WALMART_COOKIE"),
			Concurrency: p.Walmart.Concurrency,
		}, logger))
	}
	if p.Costco.Enabled {
		sources = append(sources, costco.NewProvider(costco.Config{
			Endpoint:        p.Costco.Endpoint,
			Token:           cfg.GetAPIKey(p.Costco.Token, "COSTCO_TOKEN"),
			WarehouseNumber: p.Costco.WarehouseNumber,
			Concurrency:     p.Costco.Concurrency,
		}, logger))
	}

	for _, source := range sources {
		if err := registry.Register(source); err != nil {
			return nil, fmt.Errorf("register %s: %w", source.Name(), err)
		}
	}
	return registry, nil
}
