package dto

// AnnotationListParams represents query parameters for listing annotations.
type AnnotationListParams struct {
	RunID         int64  `json:"run_id"`
	TransactionID string `json:"transaction_id"`
	Provider      string `json:"provider"`
	Outcome       string `json:"outcome"`
	Limit         int    `json:"limit"`
	Offset        int    `json:"offset"`
}

// SyncRunListParams represents query parameters for listing sync runs.
type SyncRunListParams struct {
	Limit int `json:"limit"`
}

// DefaultAnnotationListParams returns default values for annotation list params.
func DefaultAnnotationListParams() AnnotationListParams {
	return AnnotationListParams{
		Limit:  50,
		Offset: 0,
	}
}

// DefaultSyncRunListParams returns default values for sync run list params.
func DefaultSyncRunListParams() SyncRunListParams {
	return SyncRunListParams{
		Limit: 20,
	}
}
