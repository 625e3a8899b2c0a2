package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/itemize/internal/api/dto"
	"github.com/eshaffer321/itemize/internal/infrastructure/storage"
)

// AnnotationsHandler serves the per-transaction annotation history.
type AnnotationsHandler struct {
	*Base
}

// NewAnnotationsHandler creates a new annotations handler.
func NewAnnotationsHandler(repo storage.Repository) *AnnotationsHandler {
	return &AnnotationsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/annotations with optional run_id, transaction_id,
// provider, outcome, limit and offset filters.
func (h *AnnotationsHandler) List(w http.ResponseWriter, r *http.Request) {
	params := h.parseListParams(r)

	result, err := h.repo.ListAnnotations(storage.AnnotationFilters{
		RunID:         params.RunID,
		TransactionID: params.TransactionID,
		Provider:      params.Provider,
		Outcome:       params.Outcome,
		Limit:         params.Limit,
		Offset:        params.Offset,
	})
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.AnnotationListResponse{
		Annotations: make([]dto.AnnotationResponse, 0, len(result.Annotations)),
		TotalCount:  result.TotalCount,
		Limit:       result.Limit,
		Offset:      result.Offset,
	}
	for _, a := range result.Annotations {
		response.Annotations = append(response.Annotations, toAnnotationResponse(a))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// TransactionAPICalls handles GET /api/transactions/{id}/api-calls.
func (h *AnnotationsHandler) TransactionAPICalls(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("transaction ID is required"))
		return
	}

	calls, err := h.repo.GetAPICallsByTransactionID(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toAPICallListResponse(calls))
}

func (h *AnnotationsHandler) parseListParams(r *http.Request) dto.AnnotationListParams {
	params := dto.DefaultAnnotationListParams()
	q := r.URL.Query()

	params.RunID = ParseInt64Param(r, "run_id", 0)
	params.TransactionID = q.Get("transaction_id")
	params.Provider = q.Get("provider")
	params.Outcome = q.Get("outcome")
	params.Limit = ParseIntParam(r, "limit", params.Limit)
	params.Offset = ParseIntParam(r, "offset", params.Offset)

	if params.Limit > 500 {
		params.Limit = 500
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return params
}

func toAnnotationResponse(a storage.Annotation) dto.AnnotationResponse {
	return dto.AnnotationResponse{
		ID:              a.ID,
		RunID:           a.RunID,
		TransactionID:   a.TransactionID,
		OrderID:         a.OrderID,
		Provider:        a.Provider,
		Amount:          a.Amount,
		TransactionDate: a.TransactionDate,
		ChargeDate:      a.ChargeDate,
		ItemCount:       a.ItemCount,
		Note:            a.Note,
		Outcome:         a.Outcome,
		ErrorMessage:    a.ErrorMessage,
		CreatedAt:       formatTime(a.CreatedAt),
	}
}
