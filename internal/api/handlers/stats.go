package handlers

import (
	"net/http"
	"sort"

	"github.com/eshaffer321/itemize/internal/api/dto"
	"github.com/eshaffer321/itemize/internal/infrastructure/storage"
)

// StatsHandler handles stats-related HTTP requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(repo),
	}
}

// Get handles GET /api/stats - returns aggregate statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	// Convert provider stats map to slice for easier frontend consumption
	providers := make([]dto.ProviderStatsResponse, 0, len(stats.ProviderStats))
	for provider, pStats := range stats.ProviderStats {
		providers = append(providers, dto.ProviderStatsResponse{
			Provider:    provider,
			Annotations: pStats.Annotations,
			Updated:     pStats.Updated,
			TotalAmount: pStats.TotalAmount,
		})
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i].Provider < providers[j].Provider })

	response := dto.StatsResponse{
		TotalRuns:           stats.TotalRuns,
		SuccessfulRuns:      stats.SuccessfulRuns,
		FailedRuns:          stats.FailedRuns,
		DryRuns:             stats.DryRuns,
		TransactionsUpdated: stats.TransactionsUpdated,
		Outcomes:            stats.Outcomes,
		ProviderStats:       providers,
	}
	if stats.LastRunAt != nil {
		response.LastRunAt = formatTime(*stats.LastRunAt)
	}

	h.WriteJSON(w, http.StatusOK, response)
}
