package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/eshaffer321/itemize/internal/adapters/clients"
	"github.com/eshaffer321/itemize/internal/application/service"
	appsync "github.com/eshaffer321/itemize/internal/application/sync"
	"github.com/eshaffer321/itemize/internal/domain/matcher"
	"github.com/eshaffer321/itemize/internal/infrastructure/config"
	"github.com/eshaffer321/itemize/internal/infrastructure/storage"
)

// Runtime bundles everything a command needs to run a sync
type Runtime struct {
	Config       *config.Config
	Logger       *slog.Logger
	Store        *storage.Storage
	Clients      *clients.Clients
	Orchestrator *appsync.Orchestrator
	Service      *service.SyncService
}

// LoadConfig loads path when given, otherwise config.yaml with an
// environment fallback, and validates the result.
func LoadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	if path == "" {
		cfg = config.LoadOrEnv()
	} else {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// NewRuntime opens storage and builds the clients, orchestrator and service.
// Call Close when done.
func NewRuntime(cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	store, err := storage.NewStorageWithLogger(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	c, err := clients.NewClients(cfg, logger)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	orch := appsync.NewOrchestrator(c.Registry, c.Ledger, store, SyncConfig(cfg), logger.With("system", "sync"))

	return &Runtime{
		Config:       cfg,
		Logger:       logger,
		Store:        store,
		Clients:      c,
		Orchestrator: orch,
		Service:      service.NewSyncService(orch, c.Registry, logger),
	}, nil
}

// Close releases the database
func (r *Runtime) Close() error {
	return r.Store.Close()
}

// SyncConfig maps application config onto the orchestrator's settings
func SyncConfig(cfg *config.Config) appsync.Config {
	return appsync.Config{
		Matching: matcher.Config{
			WindowDays:    cfg.Matching.WindowDays,
			OverrideNotes: cfg.Matching.OverrideNotes,
		},
		WriteDelay:     cfg.Sync.WriteDelay,
		LookbackMonths: cfg.Sync.LookbackMonths,
		Concurrency:    cfg.Sync.Concurrency,
		Merchants:      cfg.Merchants(),
		MaxOrders: map[string]int{
			"amazon":  cfg.Providers.Amazon.MaxOrders,
			"walmart": cfg.Providers.Walmart.MaxOrders,
			"costco":  cfg.Providers.Costco.MaxOrders,
		},
	}
}
