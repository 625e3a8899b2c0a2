package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("storage: not found")

// Sync run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Annotation outcomes, mirrored from the sync package
const (
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeNoItems   = "no_items"
	OutcomeFailed    = "failed"
	OutcomeDryRun    = "dry_run"
)

// SyncRun is the persisted record of one sync attempt
type SyncRun struct {
	ID                  int64      `json:"id"`
	Providers           []string   `json:"providers"`
	Year                int        `json:"year,omitempty"`
	DryRun              bool       `json:"dry_run"`
	StartedAt           time.Time  `json:"started_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	RangeStart          string     `json:"range_start,omitempty"`
	RangeEnd            string     `json:"range_end,omitempty"`
	OrdersFound         int        `json:"orders_found"`
	TransactionsFound   int        `json:"transactions_found"`
	MatchesFound        int        `json:"matches_found"`
	TransactionsUpdated int        `json:"transactions_updated"`
	Success             bool       `json:"success"`
	FailureReason       string     `json:"failure_reason,omitempty"`
	ErrorMessage        string     `json:"error_message,omitempty"`
	Status              string     `json:"status"`
}

// RunSummary carries the final counts of a sync run
type RunSummary struct {
	RangeStart          string
	RangeEnd            string
	OrdersFound         int
	TransactionsFound   int
	MatchesFound        int
	TransactionsUpdated int
	Success             bool
	FailureReason       string
	ErrorMessage        string
}

// Annotation records what happened to one matched ledger transaction
type Annotation struct {
	ID              int64     `json:"id"`
	RunID           int64     `json:"run_id"`
	TransactionID   string    `json:"transaction_id"`
	OrderID         string    `json:"order_id"`
	Provider        string    `json:"provider,omitempty"`
	Amount          float64   `json:"amount"`
	TransactionDate string    `json:"transaction_date"`
	ChargeDate      string    `json:"charge_date"`
	ItemCount       int       `json:"item_count"`
	Note            string    `json:"note"`
	Outcome         string    `json:"outcome"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// AnnotationFilters narrows an annotation listing
type AnnotationFilters struct {
	RunID         int64  // 0 = all runs
	TransactionID string // empty = all
	Provider      string // empty = all
	Outcome       string // empty = all
	Limit         int    // 0 = default 50
	Offset        int
}

// AnnotationListResult contains paginated annotations
type AnnotationListResult struct {
	Annotations []Annotation `json:"annotations"`
	TotalCount  int          `json:"total_count"`
	Limit       int          `json:"limit"`
	Offset      int          `json:"offset"`
}

// Stats aggregates sync history
type Stats struct {
	TotalRuns           int                      `json:"total_runs"`
	SuccessfulRuns      int                      `json:"successful_runs"`
	FailedRuns          int                      `json:"failed_runs"`
	DryRuns             int                      `json:"dry_runs"`
	TransactionsUpdated int                      `json:"transactions_updated"`
	LastRunAt           *time.Time               `json:"last_run_at,omitempty"`
	Outcomes            map[string]int           `json:"outcomes"`
	ProviderStats       map[string]ProviderStats `json:"provider_stats"`
}

// ProviderStats contains per-provider annotation statistics
type ProviderStats struct {
	Annotations int     `json:"annotations"`
	Updated     int     `json:"updated"`
	TotalAmount float64 `json:"total_amount"`
}

// APICall represents a logged ledger API call
type APICall struct {
	RunID         int64     `json:"run_id"`
	TransactionID string    `json:"transaction_id"`
	Method        string    `json:"method"`
	RequestJSON   string    `json:"request_json"`
	ResponseJSON  string    `json:"response_json"`
	Error         string    `json:"error,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	Timestamp     time.Time `json:"timestamp"`
}

const defaultListLimit = 50
