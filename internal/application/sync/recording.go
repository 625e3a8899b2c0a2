package sync

import (
	"encoding/json"
	"fmt"

	"github.com/eshaffer321/itemize/internal/infrastructure/storage"
)

// Recording and audit trail functions for the sync orchestrator.
// Storage failures are logged and never fail a sync.

// startRun records the start of a run, returning 0 when nothing was stored
func (o *Orchestrator) startRun(providerNames []string, opts Options) int64 {
	if o.storage == nil {
		return 0
	}

	runID, err := o.storage.StartSyncRun(providerNames, opts.Year, opts.DryRun)
	if err != nil {
		o.logger.Warn("Failed to start sync run tracking", "error", err)
		return 0
	}
	return runID
}

// completeRun stores the run outcome, the equivalent of a "last sync" record
func (o *Orchestrator) completeRun(result *Result) {
	if o.storage == nil || result.RunID == 0 {
		return
	}

	summary := storage.RunSummary{
		OrdersFound:         result.OrdersFound,
		TransactionsFound:   result.TransactionsFound,
		MatchesFound:        result.MatchesFound,
		TransactionsUpdated: result.TransactionsUpdated,
		Success:             result.Success(),
		FailureReason:       string(result.FailureReason),
	}
	if !result.StartDate.IsZero() {
		summary.RangeStart = result.StartDate.Format("2006-01-02")
		summary.RangeEnd = result.EndDate.Format("2006-01-02")
	}
	if result.Err != nil {
		summary.ErrorMessage = result.Err.Error()
	}

	if err := o.storage.CompleteSyncRun(result.RunID, summary); err != nil {
		o.logger.Warn("Failed to complete sync run tracking", "run_id", result.RunID, "error", err)
	}
}

// recordAnnotation stores the outcome for one matched pair
func (o *Orchestrator) recordAnnotation(runID int64, a Annotation) {
	if o.storage == nil || runID == 0 {
		return
	}

	record := &storage.Annotation{
		RunID:           runID,
		TransactionID:   a.Pair.Ledger.ID,
		OrderID:         a.Pair.Charge.OrderID,
		Provider:        a.Provider,
		Amount:          a.Pair.Ledger.Amount,
		TransactionDate: a.Pair.Ledger.Date,
		ChargeDate:      a.Pair.Charge.Date,
		ItemCount:       len(a.Pair.Charge.Items),
		Note:            a.Note,
		Outcome:         string(a.Outcome),
	}
	if a.Err != nil {
		record.ErrorMessage = a.Err.Error()
	}

	if err := o.storage.SaveAnnotation(record); err != nil {
		o.logger.Error("Failed to save annotation", "transaction_id", a.Pair.Ledger.ID, "error", err)
	}
}

// logAPICall logs a ledger API call to the database for audit trail
func (o *Orchestrator) logAPICall(runID int64, transactionID, method string, request, response interface{}, err error, durationMs int64) {
	if o.storage == nil || runID == 0 {
		return // No storage or no run ID, skip logging
	}

	requestJSON, marshalErr := json.Marshal(request)
	if marshalErr != nil {
		o.logger.Warn("Failed to marshal request for API log", "method", method, "error", marshalErr)
		requestJSON = []byte(fmt.Sprintf(`{"error": "failed to marshal: %v"}`, marshalErr))
	}

	responseJSON, marshalErr := json.Marshal(response)
	if marshalErr != nil {
		o.logger.Warn("Failed to marshal response for API log", "method", method, "error", marshalErr)
		responseJSON = []byte(fmt.Sprintf(`{"error": "failed to marshal: %v"}`, marshalErr))
	}

	errStr := ""
	if err != nil {
		errStr = err.Error()
	}

	call := &storage.APICall{
		RunID:         runID,
		TransactionID: transactionID,
		Method:        method,
		RequestJSON:   string(requestJSON),
		ResponseJSON:  string(responseJSON),
		Error:         errStr,
		DurationMs:    durationMs,
	}

	if err := o.storage.LogAPICall(call); err != nil {
		o.logger.Warn("Failed to log API call", "method", method, "error", err)
	}
}
