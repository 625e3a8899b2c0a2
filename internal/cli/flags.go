package cli

import (
	"errors"
	"flag"
	"io"

	"github.com/eshaffer321/itemize/internal/application/service"
)

// SyncFlags are the flags of the one-shot sync command
type SyncFlags struct {
	ConfigPath string
	DryRun     bool
	Year       int
	Providers  string
	MaxOrders  int
	ExportCSV  string
	Verbose    bool
}

// ParseSyncFlags parses sync flags from args (without the program name)
func ParseSyncFlags(args []string, output io.Writer) (SyncFlags, error) {
	var flags SyncFlags
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&flags.ConfigPath, "config", "", "Configuration file path (default: config.yaml, then environment)")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "Match and report without writing notes")
	fs.IntVar(&flags.Year, "year", 0, "Calendar year to sync (0 = recent lookback)")
	fs.StringVar(&flags.Providers, "providers", "", "Comma-separated providers to sync (empty = all enabled)")
	fs.IntVar(&flags.MaxOrders, "max", 0, "Maximum orders per provider (0 = all)")
	fs.StringVar(&flags.ExportCSV, "csv", "", "Write matched pairs to this CSV file")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return SyncFlags{}, err
	}
	if flags.Year < 0 || flags.MaxOrders < 0 {
		return SyncFlags{}, errors.New("-year and -max must not be negative")
	}
	return flags, nil
}

// ToSyncRequest converts SyncFlags to a service.SyncRequest
func (f SyncFlags) ToSyncRequest() (service.SyncRequest, error) {
	names, err := ParseProviders(f.Providers)
	if err != nil {
		return service.SyncRequest{}, err
	}
	return service.SyncRequest{
		Providers: names,
		DryRun:    f.DryRun,
		Year:      f.Year,
		MaxOrders: f.MaxOrders,
	}, nil
}
