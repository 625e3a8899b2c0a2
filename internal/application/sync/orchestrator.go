package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eshaffer321/itemize/internal/adapters/ledger/monarch"
	"github.com/eshaffer321/itemize/internal/adapters/providers"
	"github.com/eshaffer321/itemize/internal/domain/matcher"
	"github.com/eshaffer321/itemize/internal/infrastructure/storage"
	"github.com/eshaffer321/itemize/internal/infrastructure/workerpool"
)

// ledgerSlackDays widens the ledger search so charges posted a few days
// after the order range still match
const ledgerSlackDays = 8

// Orchestrator runs the sync process: fetch orders from every selected
// provider, fetch the matching ledger transactions, pair them, then write
// itemized notes back to the ledger.
type Orchestrator struct {
	registry *providers.Registry
	ledger   LedgerClient
	storage  storage.Repository
	matcher  *matcher.Matcher
	cfg      Config
	logger   *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates a new sync orchestrator. repo may be nil, in
// which case nothing is recorded.
func NewOrchestrator(
	registry *providers.Registry,
	ledger LedgerClient,
	repo storage.Repository,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LookbackMonths <= 0 {
		cfg.LookbackMonths = 3
	}

	return &Orchestrator{
		registry: registry,
		ledger:   ledger,
		storage:  repo,
		matcher:  matcher.New(cfg.Matching),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Run executes one sync. On failure the returned Result is still populated
// with whatever was gathered, and the error is a *SyncError.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	sources, err := o.registry.Select(opts.Providers)
	if err != nil {
		return nil, fmt.Errorf("invalid provider selection: %w", err)
	}

	result := &Result{
		DryRun:           opts.DryRun,
		StartedAt:        o.now(),
		SkippedProviders: make(map[string]providers.AuthResult),
		ProviderOrders:   make(map[string]int),
	}

	o.logger.Info("Starting sync",
		"providers", sourceNames(sources),
		"dry_run", opts.DryRun,
		"year", opts.Year,
		"max_orders", opts.MaxOrders,
	)

	result.RunID = o.startRun(sourceNames(sources), opts)

	err = o.run(ctx, opts, sources, result)
	result.CompletedAt = o.now()

	if err != nil {
		var syncErr *SyncError
		if !errors.As(err, &syncErr) {
			syncErr = failure(ReasonUnknown, "", err)
		}
		result.FailureReason = syncErr.Reason
		result.Err = syncErr

		o.report(opts, Progress{Phase: PhaseFailed})
		o.logger.Error("Sync failed",
			"reason", syncErr.Reason,
			"provider", syncErr.Provider,
			"error", syncErr.Err,
		)
		o.completeRun(result)
		return result, syncErr
	}

	o.report(opts, Progress{Phase: PhaseCompleted})
	o.logger.Info("Sync complete", "result", result)
	o.completeRun(result)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, opts Options, sources []providers.OrderSource, result *Result) error {
	// 1. Auth checks
	o.report(opts, Progress{Phase: PhaseCheckingAuth})

	if err := o.ledger.CheckAuth(ctx); err != nil {
		if errors.Is(err, monarch.ErrUnauthorized) {
			return failure(ReasonNoLedgerAuth, "", err)
		}
		return failure(ReasonLedgerError, "", err)
	}

	ready, err := o.authenticatedSources(ctx, sources, result)
	if err != nil {
		return err
	}

	// 2. Orders
	orderStart, orderEnd := o.orderRange(opts.Year)
	result.StartDate, result.EndDate = o.ledgerRange(opts.Year)

	orders, orderProviders, err := o.fetchOrders(ctx, ready, providers.FetchOptions{
		StartDate: orderStart,
		EndDate:   orderEnd,
		Year:      opts.Year,
		MaxOrders: opts.MaxOrders,
	}, opts, result)
	if err != nil {
		return err
	}
	result.OrdersFound = len(orders)
	if len(orders) == 0 {
		return failure(ReasonNoProviderOrders, "", errors.New("no orders found"))
	}

	// 3. Ledger transactions
	o.report(opts, Progress{Phase: PhaseFetchingTransactions})

	transactions, err := o.fetchLedgerTransactions(ctx, ready, result.StartDate, result.EndDate)
	if err != nil {
		return failure(ReasonLedgerError, "", err)
	}
	result.TransactionsFound = len(transactions)
	if len(transactions) == 0 {
		return failure(ReasonNoLedgerTransactions, "", errors.New("no ledger transactions found"))
	}

	// 4. Match
	o.report(opts, Progress{Phase: PhaseMatching})

	matched := o.matcher.Match(transactions, matcher.Flatten(orders))
	result.Pairs = matched.Pairs
	result.MatchesFound = len(matched.Pairs)

	o.logger.Info("Matched transactions",
		"matched", matched.Count(matcher.OutcomeMatched),
		"notes_present", matched.Count(matcher.OutcomeNotesPresent),
		"no_eligible_charge", matched.Count(matcher.OutcomeNoEligibleCharge),
		"invalid_date", matched.Count(matcher.OutcomeInvalidDate),
	)

	// 5. Annotate
	return o.annotate(ctx, opts, orderProviders, result)
}

// authenticatedSources drops sources that fail their auth check. It is an
// error only when none are left.
func (o *Orchestrator) authenticatedSources(ctx context.Context, sources []providers.OrderSource, result *Result) ([]providers.OrderSource, error) {
	checks, err := workerpool.Map(ctx, o.cfg.Concurrency, sources,
		func(ctx context.Context, s providers.OrderSource) (providers.AuthResult, error) {
			return s.CheckAuth(ctx), nil
		})
	if err != nil {
		return nil, failure(ReasonUnknown, "", err)
	}

	var ready []providers.OrderSource
	var skipped []string
	for i, source := range sources {
		auth := checks[i].Value
		if checks[i].Err != nil {
			auth = providers.AuthResult{Status: providers.AuthFailure, Message: checks[i].Err.Error()}
		}
		if !auth.OK() {
			o.logger.Warn("Skipping provider that is not signed in",
				"provider", source.Name(),
				"status", auth.Status,
				"message", auth.Message,
			)
			result.SkippedProviders[source.Name()] = auth
			skipped = append(skipped, source.Name())
			continue
		}
		ready = append(ready, source)
	}

	if len(ready) == 0 {
		return nil, failure(ReasonNoProviderAuth, strings.Join(skipped, ","),
			errors.New("no provider is signed in"))
	}

	result.Providers = sourceNames(ready)
	return ready, nil
}

// orderRange is the order date range passed to providers
func (o *Orchestrator) orderRange(year int) (time.Time, time.Time) {
	if year > 0 {
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	end := o.now()
	return end.AddDate(0, -o.cfg.LookbackMonths, 0), end
}

// ledgerRange is the transaction search range. Year mode runs from Dec 23
// of the previous year to Jan 8 of the next one.
func (o *Orchestrator) ledgerRange(year int) (time.Time, time.Time) {
	if year > 0 {
		return time.Date(year-1, time.December, 23, 0, 0, 0, 0, time.UTC),
			time.Date(year+1, time.January, 8, 0, 0, 0, 0, time.UTC)
	}
	end := o.now()
	return end.AddDate(0, -o.cfg.LookbackMonths, -ledgerSlackDays), end
}

func (o *Orchestrator) report(opts Options, p Progress) {
	if opts.Progress != nil {
		opts.Progress(p)
	}
}

func sourceNames(sources []providers.OrderSource) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name()
	}
	return names
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
