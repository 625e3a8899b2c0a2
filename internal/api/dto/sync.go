package dto

// StartSyncRequest is the request body for starting a sync.
type StartSyncRequest struct {
	Providers []string `json:"providers"`  // empty = every enabled provider
	DryRun    bool     `json:"dry_run"`    // Preview mode
	Year      int      `json:"year"`       // Calendar year to sync (0 = recent lookback)
	MaxOrders int      `json:"max_orders"` // Max orders per provider (0 = all)
}

// StartSyncResponse is returned when a sync is started.
type StartSyncResponse struct {
	JobID     string   `json:"job_id"`
	Providers []string `json:"providers,omitempty"`
	Status    string   `json:"status"`
}

// SyncJobResponse represents a sync job's status.
type SyncJobResponse struct {
	JobID       string               `json:"job_id"`
	Trigger     string               `json:"trigger"`
	Providers   []string             `json:"providers,omitempty"`
	Status      string               `json:"status"`
	DryRun      bool                 `json:"dry_run"`
	Year        int                  `json:"year,omitempty"`
	StartedAt   string               `json:"started_at"`
	CompletedAt *string              `json:"completed_at,omitempty"`
	Progress    SyncProgressResponse `json:"progress"`
	Result      *SyncResultResponse  `json:"result,omitempty"`
	Error       *string              `json:"error,omitempty"`
}

// SyncProgressResponse represents real-time progress.
type SyncProgressResponse struct {
	Phase      string `json:"phase"`
	Provider   string `json:"provider,omitempty"`
	Complete   int    `json:"complete"`
	Total      int    `json:"total"`
	LastUpdate string `json:"last_update"`
}

// SyncResultResponse represents the final result.
type SyncResultResponse struct {
	RunID               int64          `json:"run_id,omitempty"`
	OrdersFound         int            `json:"orders_found"`
	TransactionsFound   int            `json:"transactions_found"`
	MatchesFound        int            `json:"matches_found"`
	TransactionsUpdated int            `json:"transactions_updated"`
	FailureReason       string         `json:"failure_reason,omitempty"`
	SkippedProviders    []string       `json:"skipped_providers,omitempty"`
	Outcomes            map[string]int `json:"outcomes,omitempty"`
}

// ActiveSyncsResponse lists active sync jobs.
type ActiveSyncsResponse struct {
	Jobs  []SyncJobResponse `json:"jobs"`
	Count int               `json:"count"`
}

// AllSyncsResponse lists all sync jobs (including completed).
type AllSyncsResponse struct {
	Jobs  []SyncJobResponse `json:"jobs"`
	Count int               `json:"count"`
}

// MessageResponse is a generic message response.
type MessageResponse struct {
	Message string `json:"message"`
}
