package cli

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/itemize/internal/api"
	"github.com/eshaffer321/itemize/internal/application/scheduler"
	"github.com/eshaffer321/itemize/internal/application/service"
	"github.com/eshaffer321/itemize/internal/infrastructure/config"
	"github.com/eshaffer321/itemize/internal/infrastructure/logging"
)

const (
	jobCleanupInterval = 5 * time.Minute
	shutdownTimeout    = 30 * time.Second
)

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	ConfigPath string
	Port       int
	NoSchedule bool
	Verbose    bool
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags(args []string, output io.Writer) (*ServeFlags, error) {
	flags := &ServeFlags{}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&flags.ConfigPath, "config", "", "Configuration file path (default: config.yaml, then environment)")
	fs.IntVar(&flags.Port, "port", 0, "Port to listen on (default: api.port)")
	fs.BoolVar(&flags.NoSchedule, "no-schedule", false, "Disable the scheduled sync even if configured")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// APIConfig applies flag overrides on top of the configured API settings.
func (f *ServeFlags) APIConfig(cfg *config.Config) api.Config {
	apiCfg := api.DefaultConfig()
	apiCfg.Port = cfg.API.Port
	if f.Port > 0 {
		apiCfg.Port = f.Port
	}
	if len(cfg.API.AllowedOrigins) > 0 {
		apiCfg.AllowedOrigins = cfg.API.AllowedOrigins
	}
	return apiCfg
}

// SchedulerConfig returns the schedule the server should run.
func (f *ServeFlags) SchedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Enabled:  cfg.Sync.ScheduleEnabled && !f.NoSchedule,
		Interval: cfg.Sync.Interval,
		Request:  service.SyncRequest{},
	}
}

// RunServe runs the API server and the sync scheduler until SIGINT/SIGTERM.
func RunServe(cfg *config.Config, flags *ServeFlags) error {
	// Set up logging
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	rt, err := NewRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	rt.Service.StartBackgroundCleanup(jobCleanupInterval)
	defer rt.Service.StopBackgroundCleanup()

	server := api.NewServer(flags.APIConfig(cfg), rt.Store, rt.Service, rt.Clients.Registry, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(flags.SchedulerConfig(cfg), rt.Service, rt.Store, logging.NewLoggerWithSystem(loggingCfg, "scheduler"))
	schedDone := make(chan error, 1)
	go func() { schedDone <- sched.Run(ctx) }()

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()

	select {
	case err = <-serveErr:
		stop()
	case <-ctx.Done():
		logger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("server shutdown error", slog.Any("error", shutdownErr))
		}
		err = <-serveErr
	}

	if schedErr := <-schedDone; schedErr != nil && !errors.Is(schedErr, context.Canceled) {
		logger.Error("scheduler stopped", slog.Any("error", schedErr))
	}

	logger.Info("server stopped")
	return err
}
