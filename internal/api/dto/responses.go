package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// SyncRunResponse represents a sync run in API responses.
type SyncRunResponse struct {
	ID                  int64    `json:"id"`
	Providers           []string `json:"providers"`
	Year                int      `json:"year,omitempty"`
	DryRun              bool     `json:"dry_run"`
	StartedAt           string   `json:"started_at"`
	CompletedAt         string   `json:"completed_at,omitempty"`
	RangeStart          string   `json:"range_start,omitempty"`
	RangeEnd            string   `json:"range_end,omitempty"`
	OrdersFound         int      `json:"orders_found"`
	TransactionsFound   int      `json:"transactions_found"`
	MatchesFound        int      `json:"matches_found"`
	TransactionsUpdated int      `json:"transactions_updated"`
	Success             bool     `json:"success"`
	FailureReason       string   `json:"failure_reason,omitempty"`
	ErrorMessage        string   `json:"error_message,omitempty"`
	Status              string   `json:"status"`
}

// SyncRunListResponse is returned when listing sync runs.
type SyncRunListResponse struct {
	Runs  []SyncRunResponse `json:"runs"`
	Count int               `json:"count"`
}

// AnnotationResponse represents the outcome for one matched transaction.
type AnnotationResponse struct {
	ID              int64   `json:"id"`
	RunID           int64   `json:"run_id"`
	TransactionID   string  `json:"transaction_id"`
	OrderID         string  `json:"order_id"`
	Provider        string  `json:"provider,omitempty"`
	Amount          float64 `json:"amount"`
	TransactionDate string  `json:"transaction_date"`
	ChargeDate      string  `json:"charge_date"`
	ItemCount       int     `json:"item_count"`
	Note            string  `json:"note"`
	Outcome         string  `json:"outcome"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// AnnotationListResponse is returned when listing annotations.
type AnnotationListResponse struct {
	Annotations []AnnotationResponse `json:"annotations"`
	TotalCount  int                  `json:"total_count"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

// APICallResponse represents a logged ledger API call.
type APICallResponse struct {
	RunID         int64  `json:"run_id"`
	TransactionID string `json:"transaction_id"`
	Method        string `json:"method"`
	Request       string `json:"request"`
	Response      string `json:"response,omitempty"`
	Error         string `json:"error,omitempty"`
	DurationMs    int64  `json:"duration_ms"`
	Timestamp     string `json:"timestamp"`
}

// APICallListResponse is returned when listing API calls.
type APICallListResponse struct {
	Calls []APICallResponse `json:"calls"`
	Count int               `json:"count"`
}

// StatsResponse aggregates sync history.
type StatsResponse struct {
	TotalRuns           int                     `json:"total_runs"`
	SuccessfulRuns      int                     `json:"successful_runs"`
	FailedRuns          int                     `json:"failed_runs"`
	DryRuns             int                     `json:"dry_runs"`
	TransactionsUpdated int                     `json:"transactions_updated"`
	LastRunAt           string                  `json:"last_run_at,omitempty"`
	Outcomes            map[string]int          `json:"outcomes"`
	ProviderStats       []ProviderStatsResponse `json:"provider_stats"`
}

// ProviderStatsResponse contains per-provider annotation statistics.
type ProviderStatsResponse struct {
	Provider    string  `json:"provider"`
	Annotations int     `json:"annotations"`
	Updated     int     `json:"updated"`
	TotalAmount float64 `json:"total_amount"`
}

// ProviderStatusResponse reports whether a provider is signed in.
type ProviderStatusResponse struct {
	Provider     string `json:"provider"`
	Status       string `json:"status"`
	StartingYear int    `json:"starting_year,omitempty"`
	Message      string `json:"message,omitempty"`
}

// ProviderListResponse is returned when listing providers.
type ProviderListResponse struct {
	Providers []ProviderStatusResponse `json:"providers"`
	Count     int                      `json:"count"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
