// Package amazon provides an OrderSource that fetches Amazon orders
// by shelling out to the amazon-order-scraper CLI (npm package).
//
// The CLI must be installed globally or available via npx:
//
//	npm install -g amazon-order-scraper
//
// Authentication is managed by the CLI - run `amazon-scraper --login` to authenticate.
package amazon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"time"

	"github.com/eshaffer321/itemize/internal/adapters/providers"
	"github.com/eshaffer321/itemize/internal/domain/matcher"
)

// ErrLoginRequired is returned when the CLI exits with its "not logged in" status
var ErrLoginRequired = errors.New("amazon login required: run 'amazon-scraper --login' to authenticate")

// exitLoginRequired is the CLI's exit status for a missing session
const exitLoginRequired = 2

// defaultLookbackDays applies when neither a date range nor a year is given
const defaultLookbackDays = "14"

// validProfilePattern matches alphanumeric, dash, and underscore characters only
var validProfilePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func isValidProfile(profile string) bool {
	if profile == "" {
		return true
	}
	return validProfilePattern.MatchString(profile)
}

// runFunc executes a command and returns its stdout
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Provider implements providers.OrderSource for Amazon
type Provider struct {
	logger   *slog.Logger
	profile  string
	headless bool
	run      runFunc
}

// ProviderConfig holds configuration for the Amazon provider
type ProviderConfig struct {
	Profile  string // Profile name for multi-account support
	Headless bool   // Run in headless mode (for scheduled runs)
}

// NewProvider creates a new Amazon provider
func NewProvider(logger *slog.Logger, cfg *ProviderConfig) *Provider {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{
		logger: logger.With(slog.String("provider", providers.Amazon)),
		run:    runCommand,
	}
	if cfg != nil {
		// Profile names end up on a command line
		if cfg.Profile != "" {
			if isValidProfile(cfg.Profile) {
				p.profile = cfg.Profile
			} else {
				logger.Warn("invalid profile name ignored (must be alphanumeric, dash, or underscore)",
					slog.String("profile", cfg.Profile))
			}
		}
		p.headless = cfg.Headless
	}
	return p
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return providers.Amazon
}

// DisplayName returns the human-readable provider name
func (p *Provider) DisplayName() string {
	return "Amazon"
}

// CheckAuth verifies the CLI is installed. Session problems surface as
// ErrLoginRequired from FetchOrders, since the CLI has no status command.
func (p *Provider) CheckAuth(ctx context.Context) providers.AuthResult {
	name, args := p.command("--help")
	if _, err := p.run(ctx, name, args...); err != nil {
		if errors.Is(err, ErrLoginRequired) {
			return providers.AuthResult{Status: providers.AuthNotLoggedIn, Message: err.Error()}
		}
		return providers.AuthResult{
			Status:  providers.AuthFailure,
			Message: fmt.Sprintf("amazon-order-scraper CLI not available: %v", err),
		}
	}
	return providers.AuthResult{Status: providers.AuthSuccess}
}

// FetchOrders fetches orders within the requested range
func (p *Provider) FetchOrders(ctx context.Context, opts providers.FetchOptions) ([]matcher.Order, error) {
	opts = withYearRange(opts)

	p.logger.Info("fetching orders",
		slog.Time("start_date", opts.StartDate),
		slog.Time("end_date", opts.EndDate),
		slog.Int("max_orders", opts.MaxOrders),
	)

	name, args := p.command(p.buildCLIArgs(opts)...)
	out, err := p.run(ctx, name, args...)
	if err != nil {
		return nil, err
	}

	cliOutput, err := ParseCLIOutput(bytes.NewReader(out))
	if err != nil {
		return nil, err
	}

	p.logger.Info("fetched orders from CLI", slog.Int("count", len(cliOutput.Orders)))

	orders := make([]matcher.Order, 0, len(cliOutput.Orders))
	for _, cliOrder := range cliOutput.Orders {
		parsed, err := ConvertCLIOrder(cliOrder)
		if err != nil {
			p.logger.Warn("failed to parse order, skipping",
				slog.String("order_id", cliOrder.OrderID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if !opts.StartDate.IsZero() && parsed.Date.Before(opts.StartDate) {
			continue
		}
		if !opts.EndDate.IsZero() && parsed.Date.After(opts.EndDate) {
			continue
		}

		orders = append(orders, ToOrder(parsed, p.logger))
	}

	if opts.MaxOrders > 0 && len(orders) > opts.MaxOrders {
		orders = orders[:opts.MaxOrders]
	}

	p.logger.Info("processed orders", slog.Int("count", len(orders)))

	return orders, nil
}

// MerchantSearchTerms returns the merchant names to search for in the ledger
func (p *Provider) MerchantSearchTerms() []string {
	return []string{
		"Amazon",
		"AMZN",
		"Amzn Mktp",
		"Amazon.com",
	}
}

// buildCLIArgs builds the command line arguments for amazon-order-scraper
func (p *Provider) buildCLIArgs(opts providers.FetchOptions) []string {
	var args []string

	if !opts.StartDate.IsZero() {
		args = append(args, "--since", opts.StartDate.Format(isoDate))
	}
	if !opts.EndDate.IsZero() {
		args = append(args, "--until", opts.EndDate.Format(isoDate))
	}
	if opts.StartDate.IsZero() && opts.EndDate.IsZero() {
		args = append(args, "--days", defaultLookbackDays)
	}

	if p.profile != "" {
		args = append(args, "--profile", p.profile)
	}
	if p.headless {
		args = append(args, "--headless")
	}

	args = append(args, "--stdout")

	return args
}

// command resolves the CLI binary, falling back to npx
func (p *Provider) command(args ...string) (string, []string) {
	if path, err := exec.LookPath("amazon-scraper"); err == nil {
		return path, args
	}

	npx := "npx"
	if path, err := exec.LookPath("npx"); err == nil {
		npx = path
	}
	return npx, append([]string{"amazon-order-scraper"}, args...)
}

// withYearRange turns a Year option into a calendar-year date range
func withYearRange(opts providers.FetchOptions) providers.FetchOptions {
	if opts.Year == 0 || !opts.StartDate.IsZero() || !opts.EndDate.IsZero() {
		return opts
	}
	opts.StartDate = time.Date(opts.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	opts.EndDate = time.Date(opts.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return opts
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() == exitLoginRequired {
				return nil, ErrLoginRequired
			}
			return nil, fmt.Errorf("CLI failed (exit %d): %s", exitErr.ExitCode(), stderr.String())
		}
		return nil, fmt.Errorf("failed to execute CLI: %w", err)
	}

	return stdout.Bytes(), nil
}

var _ providers.OrderSource = (*Provider)(nil)
