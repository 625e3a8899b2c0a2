package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/itemize/internal/api/dto"
	"github.com/eshaffer321/itemize/internal/infrastructure/storage"
)

// RunsHandler handles sync run-related HTTP requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns list of sync runs.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", dto.DefaultSyncRunListParams().Limit)

	runs, err := h.repo.ListSyncRuns(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.SyncRunListResponse{
		Runs:  make([]dto.SyncRunResponse, 0, len(runs)),
		Count: len(runs),
	}

	for _, run := range runs {
		response.Runs = append(response.Runs, toSyncRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a single sync run by ID.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.runID(w, r)
	if !ok {
		return
	}

	run, err := h.repo.GetSyncRun(id)
	h.writeRun(w, run, err)
}

// Latest handles GET /api/runs/latest - returns the last finished run.
func (h *RunsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	run, err := h.repo.GetLastSyncRun()
	h.writeRun(w, run, err)
}

// APICalls handles GET /api/runs/{id}/api-calls - returns the ledger
// writes made during a run.
func (h *RunsHandler) APICalls(w http.ResponseWriter, r *http.Request) {
	id, ok := h.runID(w, r)
	if !ok {
		return
	}

	calls, err := h.repo.GetAPICallsByRunID(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toAPICallListResponse(calls))
}

func (h *RunsHandler) runID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return 0, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid run ID"))
		return 0, false
	}
	return id, true
}

func (h *RunsHandler) writeRun(w http.ResponseWriter, run *storage.SyncRun, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("sync run"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toSyncRunResponse(*run))
}

// toSyncRunResponse converts a storage SyncRun to an API response.
func toSyncRunResponse(run storage.SyncRun) dto.SyncRunResponse {
	response := dto.SyncRunResponse{
		ID:                  run.ID,
		Providers:           run.Providers,
		Year:                run.Year,
		DryRun:              run.DryRun,
		StartedAt:           formatTime(run.StartedAt),
		RangeStart:          run.RangeStart,
		RangeEnd:            run.RangeEnd,
		OrdersFound:         run.OrdersFound,
		TransactionsFound:   run.TransactionsFound,
		MatchesFound:        run.MatchesFound,
		TransactionsUpdated: run.TransactionsUpdated,
		Success:             run.Success,
		FailureReason:       run.FailureReason,
		ErrorMessage:        run.ErrorMessage,
		Status:              run.Status,
	}
	if response.Providers == nil {
		response.Providers = []string{}
	}
	if run.CompletedAt != nil {
		response.CompletedAt = formatTime(*run.CompletedAt)
	}
	return response
}

func toAPICallListResponse(calls []storage.APICall) dto.APICallListResponse {
	response := dto.APICallListResponse{
		Calls: make([]dto.APICallResponse, 0, len(calls)),
		Count: len(calls),
	}
	for _, c := range calls {
		response.Calls = append(response.Calls, dto.APICallResponse{
			RunID:         c.RunID,
			TransactionID: c.TransactionID,
			Method:        c.Method,
			Request:       c.RequestJSON,
			Response:      c.ResponseJSON,
			Error:         c.Error,
			DurationMs:    c.DurationMs,
			Timestamp:     formatTime(c.Timestamp),
		})
	}
	return response
}
