package storage

// Repository defines the complete storage interface.
// This interface allows swapping implementations and makes testing with
// mocks straightforward.
type Repository interface {
	SyncRunRepository
	AnnotationRepository
	APICallRepository
	Close() error
}

// SyncRunRepository handles sync run tracking
type SyncRunRepository interface {
	// StartSyncRun records the start of a sync run and returns the run ID
	StartSyncRun(providers []string, year int, dryRun bool) (int64, error)

	// CompleteSyncRun records the outcome of a sync run
	CompleteSyncRun(runID int64, summary RunSummary) error

	// ListSyncRuns returns recent sync runs, newest first
	ListSyncRuns(limit int) ([]SyncRun, error)

	// GetSyncRun retrieves a sync run by ID
	GetSyncRun(runID int64) (*SyncRun, error)

	// GetLastSyncRun returns the most recent finished run, or ErrNotFound
	GetLastSyncRun() (*SyncRun, error)
}

// AnnotationRepository handles per-transaction annotation records
type AnnotationRepository interface {
	// SaveAnnotation stores one annotation outcome
	SaveAnnotation(a *Annotation) error

	// ListAnnotations returns annotations matching the filters, newest first
	ListAnnotations(filters AnnotationFilters) (*AnnotationListResult, error)

	// GetStats returns aggregate statistics
	GetStats() (*Stats, error)
}

// APICallRepository handles API call logging
type APICallRepository interface {
	// LogAPICall logs an API call to the database
	LogAPICall(call *APICall) error

	// GetAPICallsByTransactionID retrieves all API calls for a ledger transaction
	GetAPICallsByTransactionID(transactionID string) ([]APICall, error)

	// GetAPICallsByRunID retrieves all API calls for a specific sync run
	GetAPICallsByRunID(runID int64) ([]APICall, error)
}
