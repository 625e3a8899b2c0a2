package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/itemize/internal/adapters/ledger/monarch"
	"github.com/eshaffer321/itemize/internal/adapters/providers"
	"github.com/eshaffer321/itemize/internal/domain/matcher"
	"github.com/eshaffer321/itemize/internal/infrastructure/storage"
)

// LedgerClient is the budgeting-service side of a sync
type LedgerClient interface {
	CheckAuth(ctx context.Context) error
	GetTransactions(ctx context.Context, q monarch.Query) ([]matcher.LedgerTransaction, error)
	UpdateNotes(ctx context.Context, id, notes string) error
}

// FailureReason explains why a sync stopped early
type FailureReason string

const (
	ReasonNoLedgerAuth         FailureReason = "no_ledger_auth"
	ReasonNoProviderAuth       FailureReason = "no_provider_auth"
	ReasonProviderError        FailureReason = "provider_error"
	ReasonNoProviderOrders     FailureReason = "no_provider_orders"
	ReasonLedgerError          FailureReason = "ledger_error"
	ReasonNoLedgerTransactions FailureReason = "no_ledger_transactions"
	ReasonUnknown              FailureReason = "unknown"
)

// SyncError is returned when a sync cannot complete
type SyncError struct {
	Reason   FailureReason
	Provider string // set when a single provider caused the failure
	Err      error
}

func (e *SyncError) Error() string {
	msg := string(e.Reason)
	if e.Provider != "" {
		msg += " (" + e.Provider + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func failure(reason FailureReason, provider string, err error) *SyncError {
	return &SyncError{Reason: reason, Provider: provider, Err: err}
}

// Phase names a stage of the sync pipeline
type Phase string

const (
	PhaseCheckingAuth         Phase = "checking_auth"
	PhaseFetchingOrders       Phase = "fetching_orders"
	PhaseFetchingTransactions Phase = "fetching_transactions"
	PhaseMatching             Phase = "matching"
	PhaseUpdatingNotes        Phase = "updating_notes"
	PhaseCompleted            Phase = "completed"
	PhaseFailed               Phase = "failed"
)

// Progress is reported as the sync moves through its phases
type Progress struct {
	Phase    Phase  `json:"phase"`
	Provider string `json:"provider,omitempty"`
	Complete int    `json:"complete"`
	Total    int    `json:"total"`
}

// ProgressFunc receives progress updates; it must not block
type ProgressFunc func(Progress)

// Options holds per-run sync settings
type Options struct {
	DryRun bool
	// Year selects a calendar year with a few days of slack on either side.
	// Zero means the rolling lookback window.
	Year      int
	Providers []string // empty = every registered provider
	MaxOrders int
	Progress  ProgressFunc
}

// Config holds settings that stay fixed across runs
type Config struct {
	Matching       matcher.Config
	WriteDelay     time.Duration
	LookbackMonths int
	Concurrency    int
	// Merchants overrides a provider's ledger merchant search terms.
	Merchants map[string]string
	// MaxOrders caps each provider's orders when a run sets no cap of its own.
	MaxOrders map[string]int
}

// AnnotationOutcome is what happened to one matched transaction
type AnnotationOutcome string

const (
	AnnotationUpdated   AnnotationOutcome = storage.OutcomeUpdated
	AnnotationUnchanged AnnotationOutcome = storage.OutcomeUnchanged
	AnnotationNoItems   AnnotationOutcome = storage.OutcomeNoItems
	AnnotationFailed    AnnotationOutcome = storage.OutcomeFailed
	AnnotationDryRun    AnnotationOutcome = storage.OutcomeDryRun
)

// Annotation is the per-pair result of the annotation pass
type Annotation struct {
	Pair     matcher.MatchedPair
	Provider string
	Note     string
	Outcome  AnnotationOutcome
	Err      error
}

// Result holds sync results
type Result struct {
	RunID       int64
	DryRun      bool
	StartedAt   time.Time
	CompletedAt time.Time
	StartDate   time.Time
	EndDate     time.Time

	Providers        []string                        // providers that were fetched
	SkippedProviders map[string]providers.AuthResult // providers skipped for auth
	ProviderOrders   map[string]int

	OrdersFound         int
	TransactionsFound   int
	MatchesFound        int
	TransactionsUpdated int

	Pairs       []matcher.MatchedPair
	Annotations []Annotation

	FailureReason FailureReason // empty on success
	Err           error
}

// Success reports whether the run completed
func (r *Result) Success() bool {
	return r.FailureReason == ""
}

// Count returns how many annotations ended with the given outcome
func (r *Result) Count(o AnnotationOutcome) int {
	n := 0
	for _, a := range r.Annotations {
		if a.Outcome == o {
			n++
		}
	}
	return n
}

// LogValue summarizes the result for structured logs
func (r *Result) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Bool("dry_run", r.DryRun),
		slog.Int("orders", r.OrdersFound),
		slog.Int("transactions", r.TransactionsFound),
		slog.Int("matches", r.MatchesFound),
		slog.Int("updated", r.TransactionsUpdated),
	}
	if r.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", string(r.FailureReason)))
	}
	return slog.GroupValue(attrs...)
}

// String renders a one-line summary
func (r *Result) String() string {
	if !r.Success() {
		return fmt.Sprintf("sync failed: %s", r.FailureReason)
	}
	return fmt.Sprintf("orders=%d transactions=%d matches=%d updated=%d",
		r.OrdersFound, r.TransactionsFound, r.MatchesFound, r.TransactionsUpdated)
}
