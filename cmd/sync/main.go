// Command sync runs one itemize sync: it pulls orders from the enabled
// retailers, matches them to Monarch transactions and writes itemized notes.
//
//	sync -dry-run                 # preview the recent lookback window
//	sync -year 2024 -providers amazon -csv amazon-2024.csv
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/itemize/internal/application/service"
	"github.com/eshaffer321/itemize/internal/cli"
	"github.com/eshaffer321/itemize/internal/export"
	"github.com/eshaffer321/itemize/internal/infrastructure/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := cli.ParseSyncFlags(os.Args[1:], os.Stderr)
	if err != nil {
		return err
	}
	req, err := flags.ToSyncRequest()
	if err != nil {
		return err
	}

	cfg, err := cli.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}

	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "sync")

	rt, err := cli.NewRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.PrintHeader(os.Stdout, req.Providers, req.DryRun)

	result, syncErr := rt.Service.RunSync(ctx, req, service.TriggerManual)
	if result == nil {
		return syncErr
	}

	stats, err := rt.Store.GetStats()
	if err != nil {
		logger.Warn("Failed to load stats", slog.Any("error", err))
	}
	cli.PrintSyncSummary(os.Stdout, result, stats)

	if flags.ExportCSV != "" && len(result.Pairs) > 0 {
		w := &export.CSVWriter{IncludeHeader: true}
		if err := w.WriteToFile(flags.ExportCSV, result); err != nil {
			return errors.Join(syncErr, err)
		}
		fmt.Printf("Wrote %d pairs to %s\n", len(result.Pairs), flags.ExportCSV)
	}

	return syncErr
}
