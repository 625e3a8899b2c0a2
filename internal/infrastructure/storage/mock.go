package storage

import (
	"math"
	"sort"
	"sync"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu          sync.Mutex
	syncRuns    map[int64]*SyncRun
	annotations []Annotation
	apiCalls    []APICall
	nextRunID   int64
	nextAnnID   int64

	// Hooks for test assertions
	StartSyncRunCalled    bool
	CompleteSyncRunCalled bool
	LastSummary           *RunSummary
	LogAPICallCalled      bool

	// Error injection for testing error paths
	StartSyncRunErr    error
	CompleteSyncRunErr error
	SaveAnnotationErr  error
	LogAPICallErr      error
	ListErr            error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		syncRuns:  make(map[int64]*SyncRun),
		nextRunID: 1,
		nextAnnID: 1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close is a no-op
func (m *MockRepository) Close() error {
	return nil
}

// StartSyncRun records a run in memory
func (m *MockRepository) StartSyncRun(providers []string, year int, dryRun bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartSyncRunCalled = true
	if m.StartSyncRunErr != nil {
		return 0, m.StartSyncRunErr
	}

	id := m.nextRunID
	m.nextRunID++
	m.syncRuns[id] = &SyncRun{
		ID:        id,
		Providers: append([]string{}, providers...),
		Year:      year,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
		Status:    RunStatusRunning,
	}
	return id, nil
}

// CompleteSyncRun marks an in-memory run as finished
func (m *MockRepository) CompleteSyncRun(runID int64, summary RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteSyncRunCalled = true
	m.LastSummary = &summary
	if m.CompleteSyncRunErr != nil {
		return m.CompleteSyncRunErr
	}

	run, ok := m.syncRuns[runID]
	if !ok {
		return ErrNotFound
	}

	now := time.Now().UTC()
	run.CompletedAt = &now
	run.RangeStart = summary.RangeStart
	run.RangeEnd = summary.RangeEnd
	run.OrdersFound = summary.OrdersFound
	run.TransactionsFound = summary.TransactionsFound
	run.MatchesFound = summary.MatchesFound
	run.TransactionsUpdated = summary.TransactionsUpdated
	run.Success = summary.Success
	run.FailureReason = summary.FailureReason
	run.ErrorMessage = summary.ErrorMessage
	run.Status = RunStatusCompleted
	if !summary.Success {
		run.Status = RunStatusFailed
	}
	return nil
}

// ListSyncRuns returns runs newest first
func (m *MockRepository) ListSyncRuns(limit int) ([]SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	runs := make([]SyncRun, 0, len(m.syncRuns))
	for _, run := range m.syncRuns {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })

	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetSyncRun returns a run by ID
func (m *MockRepository) GetSyncRun(runID int64) (*SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.syncRuns[runID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *run
	return &cp, nil
}

// GetLastSyncRun returns the newest finished run
func (m *MockRepository) GetLastSyncRun() (*SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var last *SyncRun
	for _, run := range m.syncRuns {
		if run.Status == RunStatusRunning {
			continue
		}
		if last == nil || run.ID > last.ID {
			last = run
		}
	}
	if last == nil {
		return nil, ErrNotFound
	}
	cp := *last
	return &cp, nil
}

// SaveAnnotation appends an annotation
func (m *MockRepository) SaveAnnotation(a *Annotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveAnnotationErr != nil {
		return m.SaveAnnotationErr
	}

	a.ID = m.nextAnnID
	m.nextAnnID++
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.annotations = append(m.annotations, *a)
	return nil
}

// ListAnnotations filters annotations newest first
func (m *MockRepository) ListAnnotations(filters AnnotationFilters) (*AnnotationListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if filters.Limit <= 0 {
		filters.Limit = defaultListLimit
	}

	var matched []Annotation
	for i := len(m.annotations) - 1; i >= 0; i-- {
		a := m.annotations[i]
		if filters.RunID > 0 && a.RunID != filters.RunID {
			continue
		}
		if filters.TransactionID != "" && a.TransactionID != filters.TransactionID {
			continue
		}
		if filters.Provider != "" && a.Provider != filters.Provider {
			continue
		}
		if filters.Outcome != "" && a.Outcome != filters.Outcome {
			continue
		}
		matched = append(matched, a)
	}

	result := &AnnotationListResult{
		Annotations: make([]Annotation, 0),
		TotalCount:  len(matched),
		Limit:       filters.Limit,
		Offset:      filters.Offset,
	}
	if filters.Offset < len(matched) {
		end := min(filters.Offset+filters.Limit, len(matched))
		result.Annotations = append(result.Annotations, matched[filters.Offset:end]...)
	}
	return result, nil
}

// GetStats computes statistics from memory
func (m *MockRepository) GetStats() (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &Stats{
		Outcomes:      make(map[string]int),
		ProviderStats: make(map[string]ProviderStats),
	}

	var lastID int64
	for _, run := range m.syncRuns {
		stats.TotalRuns++
		if run.Success {
			stats.SuccessfulRuns++
		}
		if run.Status == RunStatusFailed {
			stats.FailedRuns++
		}
		if run.DryRun {
			stats.DryRuns++
		} else {
			stats.TransactionsUpdated += run.TransactionsUpdated
		}
		if run.ID > lastID {
			lastID = run.ID
			started := run.StartedAt
			stats.LastRunAt = &started
		}
	}

	for _, a := range m.annotations {
		stats.Outcomes[a.Outcome]++
		ps := stats.ProviderStats[a.Provider]
		ps.Annotations++
		if a.Outcome == OutcomeUpdated {
			ps.Updated++
		}
		ps.TotalAmount += math.Abs(a.Amount)
		stats.ProviderStats[a.Provider] = ps
	}

	return stats, nil
}

// LogAPICall records an API call
func (m *MockRepository) LogAPICall(call *APICall) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LogAPICallCalled = true
	if m.LogAPICallErr != nil {
		return m.LogAPICallErr
	}
	m.apiCalls = append(m.apiCalls, *call)
	return nil
}

// GetAPICallsByTransactionID filters calls by transaction
func (m *MockRepository) GetAPICallsByTransactionID(transactionID string) ([]APICall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var calls []APICall
	for _, c := range m.apiCalls {
		if c.TransactionID == transactionID {
			calls = append(calls, c)
		}
	}
	return calls, nil
}

// GetAPICallsByRunID filters calls by run
func (m *MockRepository) GetAPICallsByRunID(runID int64) ([]APICall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var calls []APICall
	for _, c := range m.apiCalls {
		if c.RunID == runID {
			calls = append(calls, c)
		}
	}
	return calls, nil
}

// ================================================================
// TEST HELPERS
// ================================================================

// AddSyncRun seeds a finished run
func (m *MockRepository) AddSyncRun(run SyncRun) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run.ID == 0 {
		run.ID = m.nextRunID
	}
	if run.ID >= m.nextRunID {
		m.nextRunID = run.ID + 1
	}
	m.syncRuns[run.ID] = &run
}

// Annotations returns every saved annotation in insertion order
func (m *MockRepository) Annotations() []Annotation {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Annotation{}, m.annotations...)
}

// APICalls returns every logged call in insertion order
func (m *MockRepository) APICalls() []APICall {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]APICall{}, m.apiCalls...)
}

// Reset clears all data
func (m *MockRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.syncRuns = make(map[int64]*SyncRun)
	m.annotations = nil
	m.apiCalls = nil
	m.nextRunID = 1
	m.nextAnnID = 1
	m.StartSyncRunCalled = false
	m.CompleteSyncRunCalled = false
	m.LastSummary = nil
	m.LogAPICallCalled = false
}
