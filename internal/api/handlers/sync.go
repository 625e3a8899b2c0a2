package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/itemize/internal/api/dto"
	"github.com/eshaffer321/itemize/internal/application/service"
)

// SyncHandler handles sync-related HTTP requests.
type SyncHandler struct {
	*Base
	syncService *service.SyncService
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{
		Base:        &Base{},
		syncService: syncService,
	}
}

// StartSync handles POST /api/sync - starts a new sync job.
// An empty body starts a full sync of every enabled provider.
func (h *SyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req dto.StartSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	if req.Year < 0 || req.MaxOrders < 0 {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("year and max_orders must not be negative"))
		return
	}

	serviceReq := service.SyncRequest{
		Providers: req.Providers,
		DryRun:    req.DryRun,
		Year:      req.Year,
		MaxOrders: req.MaxOrders,
	}

	jobID, err := h.syncService.StartSync(r.Context(), serviceReq)
	switch {
	case errors.Is(err, service.ErrSyncInProgress):
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	case err != nil:
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	response := dto.StartSyncResponse{
		JobID:     jobID,
		Providers: req.Providers,
		Status:    string(service.StatusPending),
	}

	h.WriteJSON(w, http.StatusAccepted, response)
}

// GetSyncStatus handles GET /api/sync/{jobId} - gets sync job status.
func (h *SyncHandler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	job, err := h.syncService.GetSyncJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("sync job"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toSyncJobResponse(job))
}

// ListActiveSyncs handles GET /api/sync/active - lists active sync jobs.
func (h *SyncHandler) ListActiveSyncs(w http.ResponseWriter, r *http.Request) {
	jobs := h.syncService.ListActiveSyncJobs()

	h.WriteJSON(w, http.StatusOK, dto.ActiveSyncsResponse{
		Jobs:  toSyncJobResponses(jobs),
		Count: len(jobs),
	})
}

// ListAllSyncs handles GET /api/sync - lists all sync jobs, newest first.
func (h *SyncHandler) ListAllSyncs(w http.ResponseWriter, r *http.Request) {
	jobs := h.syncService.ListAllSyncJobs()

	h.WriteJSON(w, http.StatusOK, dto.AllSyncsResponse{
		Jobs:  toSyncJobResponses(jobs),
		Count: len(jobs),
	})
}

// CancelSync handles DELETE /api/sync/{jobId} - cancels a sync job.
func (h *SyncHandler) CancelSync(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	err := h.syncService.CancelSync(jobID)
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("sync job"))
		return
	case err != nil:
		h.WriteError(w, http.StatusConflict, dto.APIError{
			Code:    "cancel_failed",
			Message: err.Error(),
		})
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "Sync job cancelled successfully",
	})
}

func toSyncJobResponses(jobs []*service.SyncJob) []dto.SyncJobResponse {
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.After(jobs[j].StartedAt) })

	responses := make([]dto.SyncJobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, toSyncJobResponse(job))
	}
	return responses
}

// toSyncJobResponse converts a service model to an API response.
func toSyncJobResponse(job *service.SyncJob) dto.SyncJobResponse {
	response := dto.SyncJobResponse{
		JobID:     job.ID,
		Trigger:   string(job.Trigger),
		Providers: job.Request.Providers,
		Status:    string(job.Status),
		DryRun:    job.Request.DryRun,
		Year:      job.Request.Year,
		StartedAt: job.StartedAt.Format(time.RFC3339),
		Progress: dto.SyncProgressResponse{
			Phase:      job.Progress.Phase,
			Provider:   job.Progress.Provider,
			Complete:   job.Progress.Complete,
			Total:      job.Progress.Total,
			LastUpdate: job.Progress.LastUpdate.Format(time.RFC3339),
		},
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	if res := job.Result; res != nil {
		result := &dto.SyncResultResponse{
			RunID:               res.RunID,
			OrdersFound:         res.OrdersFound,
			TransactionsFound:   res.TransactionsFound,
			MatchesFound:        res.MatchesFound,
			TransactionsUpdated: res.TransactionsUpdated,
			FailureReason:       string(res.FailureReason),
		}
		for name := range res.SkippedProviders {
			result.SkippedProviders = append(result.SkippedProviders, name)
		}
		sort.Strings(result.SkippedProviders)
		if len(res.Annotations) > 0 {
			result.Outcomes = make(map[string]int)
			for _, a := range res.Annotations {
				result.Outcomes[string(a.Outcome)]++
			}
		}
		response.Result = result
	}

	if job.Error != nil {
		errMsg := job.Error.Error()
		response.Error = &errMsg
	}

	return response
}
