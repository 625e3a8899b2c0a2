package handlers

import (
	"context"
	"net/http"

	"github.com/eshaffer321/itemize/internal/adapters/providers"
	"github.com/eshaffer321/itemize/internal/api/dto"
)

// ProviderChecker lists the enabled providers and checks their sessions.
// *providers.Registry satisfies it.
type ProviderChecker interface {
	List() []string
	CheckAuth(ctx context.Context) map[string]providers.AuthResult
}

// ProvidersHandler reports provider connection info.
type ProvidersHandler struct {
	*Base
	checker ProviderChecker
}

// NewProvidersHandler creates a new providers handler.
func NewProvidersHandler(checker ProviderChecker) *ProvidersHandler {
	return &ProvidersHandler{
		Base:    &Base{},
		checker: checker,
	}
}

// List handles GET /api/providers - runs every provider's auth check.
func (h *ProvidersHandler) List(w http.ResponseWriter, r *http.Request) {
	results := h.checker.CheckAuth(r.Context())
	names := h.checker.List()

	response := dto.ProviderListResponse{
		Providers: make([]dto.ProviderStatusResponse, 0, len(names)),
		Count:     len(names),
	}
	for _, name := range names {
		auth := results[name]
		response.Providers = append(response.Providers, dto.ProviderStatusResponse{
			Provider:     name,
			Status:       string(auth.Status),
			StartingYear: auth.StartingYear,
			Message:      auth.Message,
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}
