package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/itemize/internal/adapters/providers"
	"github.com/eshaffer321/itemize/internal/api"
	"github.com/eshaffer321/itemize/internal/api/dto"
	"github.com/eshaffer321/itemize/internal/application/service"
	appsync "github.com/eshaffer321/itemize/internal/application/sync"
	"github.com/eshaffer321/itemize/internal/infrastructure/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T) (*api.Server, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	server := api.NewServer(api.DefaultConfig(), repo, nil, nil, testLogger()) // read-only routes
	return server, repo
}

func serve(server *api.Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec := serve(server, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.HealthResponse
	err := json.NewDecoder(rec.Body).Decode(&response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response.Status)
	assert.NotEmpty(t, response.Timestamp)
}

func TestServer_RunsEndpoints(t *testing.T) {
	server, repo := newTestServer(t)
	runID, err := repo.StartSyncRun([]string{"amazon"}, 2024, false)
	require.NoError(t, err)
	require.NoError(t, repo.CompleteSyncRun(runID, storage.RunSummary{Success: true, TransactionsUpdated: 2}))

	t.Run("GET /api/runs", func(t *testing.T) {
		rec := serve(server, http.MethodGet, "/api/runs")

		assert.Equal(t, http.StatusOK, rec.Code)
		var response dto.SyncRunListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 1, response.Count)
		assert.Equal(t, 2024, response.Runs[0].Year)
	})

	t.Run("GET /api/runs/latest is not shadowed by {id}", func(t *testing.T) {
		rec := serve(server, http.MethodGet, "/api/runs/latest")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("GET /api/runs/{id}", func(t *testing.T) {
		rec := serve(server, http.MethodGet, "/api/runs/1")

		assert.Equal(t, http.StatusOK, rec.Code)
		var response dto.SyncRunResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, runID, response.ID)
	})

	t.Run("GET /api/runs/{id}/api-calls", func(t *testing.T) {
		rec := serve(server, http.MethodGet, "/api/runs/1/api-calls")

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServer_AnnotationsAndStats(t *testing.T) {
	server, repo := newTestServer(t)
	require.NoError(t, repo.SaveAnnotation(&storage.Annotation{
		RunID: 1, TransactionID: "t1", Provider: "walmart", Amount: -12, Outcome: storage.OutcomeUpdated,
	}))

	rec := serve(server, http.MethodGet, "/api/annotations?provider=walmart")
	assert.Equal(t, http.StatusOK, rec.Code)
	var annotations dto.AnnotationListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&annotations))
	assert.Equal(t, 1, annotations.TotalCount)

	rec = serve(server, http.MethodGet, "/api/transactions/t1/api-calls")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(server, http.MethodGet, "/api/stats")
	assert.Equal(t, http.StatusOK, rec.Code)
	var stats dto.StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Outcomes["updated"])
}

func TestServer_OptionalRoutes(t *testing.T) {
	t.Run("sync and providers routes are absent without dependencies", func(t *testing.T) {
		server, _ := newTestServer(t)

		assert.Equal(t, http.StatusNotFound, serve(server, http.MethodGet, "/api/providers").Code)
		assert.Equal(t, http.StatusNotFound, serve(server, http.MethodGet, "/api/sync/active").Code)
	})

	t.Run("sync and providers routes are mounted when configured", func(t *testing.T) {
		svc := service.NewSyncService(noopRunner{}, nil, testLogger())
		server := api.NewServer(api.DefaultConfig(), storage.NewMockRepository(), svc, emptyChecker{}, testLogger())

		assert.Equal(t, http.StatusOK, serve(server, http.MethodGet, "/api/providers").Code)
		assert.Equal(t, http.StatusOK, serve(server, http.MethodGet, "/api/sync/active").Code)
		assert.Equal(t, http.StatusOK, serve(server, http.MethodGet, "/api/sync").Code)
		assert.Equal(t, http.StatusNotFound, serve(server, http.MethodGet, "/api/sync/missing").Code)
	})
}

func TestServer_CORSPreflight(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/runs", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_UnknownRoute(t *testing.T) {
	server, _ := newTestServer(t)

	rec := serve(server, http.MethodGet, "/api/orders")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type noopRunner struct{}

func (noopRunner) Run(context.Context, appsync.Options) (*appsync.Result, error) {
	return &appsync.Result{}, nil
}

type emptyChecker struct{}

func (emptyChecker) List() []string { return nil }

func (emptyChecker) CheckAuth(context.Context) map[string]providers.AuthResult {
	return map[string]providers.AuthResult{}
}
