package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for sync history.
// It implements the Repository interface.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	return NewStorageWithLogger(dbPath, slog.Default())
}

// NewStorageWithLogger is NewStorage with an explicit logger for migrations
func NewStorageWithLogger(dbPath string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// ================================================================
// SYNC RUNS
// ================================================================

// StartSyncRun records the start of a sync run
func (s *Storage) StartSyncRun(providers []string, year int, dryRun bool) (int64, error) {
	query := `
		INSERT INTO sync_runs (providers, year, dry_run, started_at, status)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query, strings.Join(providers, ","), year, dryRun, s.now(), RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to start sync run: %w", err)
	}

	return result.LastInsertId()
}

// CompleteSyncRun records the outcome of a sync run
func (s *Storage) CompleteSyncRun(runID int64, summary RunSummary) error {
	status := RunStatusCompleted
	if !summary.Success {
		status = RunStatusFailed
	}

	query := `
		UPDATE sync_runs
		SET completed_at = ?,
		    range_start = ?,
		    range_end = ?,
		    orders_found = ?,
		    transactions_found = ?,
		    matches_found = ?,
		    transactions_updated = ?,
		    success = ?,
		    failure_reason = ?,
		    error_message = ?,
		    status = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(query,
		s.now(),
		summary.RangeStart,
		summary.RangeEnd,
		summary.OrdersFound,
		summary.TransactionsFound,
		summary.MatchesFound,
		summary.TransactionsUpdated,
		summary.Success,
		summary.FailureReason,
		summary.ErrorMessage,
		status,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete sync run %d: %w", runID, err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("sync run %d: %w", runID, ErrNotFound)
	}
	return nil
}

const syncRunColumns = `
	id, providers, year, dry_run, started_at, completed_at, range_start, range_end,
	orders_found, transactions_found, matches_found, transactions_updated,
	success, failure_reason, error_message, status
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(row rowScanner) (*SyncRun, error) {
	var run SyncRun
	var providers string
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&providers,
		&run.Year,
		&run.DryRun,
		&run.StartedAt,
		&completedAt,
		&run.RangeStart,
		&run.RangeEnd,
		&run.OrdersFound,
		&run.TransactionsFound,
		&run.MatchesFound,
		&run.TransactionsUpdated,
		&run.Success,
		&run.FailureReason,
		&run.ErrorMessage,
		&run.Status,
	)
	if err != nil {
		return nil, err
	}

	run.Providers = []string{}
	if providers != "" {
		run.Providers = strings.Split(providers, ",")
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return &run, nil
}

// ListSyncRuns returns recent sync runs, newest first
func (s *Storage) ListSyncRuns(limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.Query(`SELECT `+syncRunColumns+` FROM sync_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]SyncRun, 0)
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetSyncRun retrieves a sync run by ID
func (s *Storage) GetSyncRun(runID int64) (*SyncRun, error) {
	run, err := scanSyncRun(s.db.QueryRow(`SELECT `+syncRunColumns+` FROM sync_runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// GetLastSyncRun returns the most recent finished run
func (s *Storage) GetLastSyncRun() (*SyncRun, error) {
	run, err := scanSyncRun(s.db.QueryRow(
		`SELECT `+syncRunColumns+` FROM sync_runs WHERE status != ? ORDER BY id DESC LIMIT 1`,
		RunStatusRunning,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// ================================================================
// ANNOTATIONS
// ================================================================

// SaveAnnotation stores one annotation outcome
func (s *Storage) SaveAnnotation(a *Annotation) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}

	query := `
		INSERT INTO annotations
		(run_id, transaction_id, order_id, provider, amount, transaction_date,
		 charge_date, item_count, note, outcome, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		a.RunID,
		a.TransactionID,
		a.OrderID,
		a.Provider,
		a.Amount,
		a.TransactionDate,
		a.ChargeDate,
		a.ItemCount,
		a.Note,
		a.Outcome,
		a.ErrorMessage,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save annotation for %s: %w", a.TransactionID, err)
	}

	a.ID, _ = result.LastInsertId()
	return nil
}

// ListAnnotations returns annotations matching the filters, newest first
func (s *Storage) ListAnnotations(filters AnnotationFilters) (*AnnotationListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultListLimit
	}

	var where []string
	var args []any
	if filters.RunID > 0 {
		where = append(where, "run_id = ?")
		args = append(args, filters.RunID)
	}
	if filters.TransactionID != "" {
		where = append(where, "transaction_id = ?")
		args = append(args, filters.TransactionID)
	}
	if filters.Provider != "" {
		where = append(where, "provider = ?")
		args = append(args, filters.Provider)
	}
	if filters.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, filters.Outcome)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	result := &AnnotationListResult{
		Annotations: make([]Annotation, 0),
		Limit:       filters.Limit,
		Offset:      filters.Offset,
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM annotations`+clause, args...).Scan(&result.TotalCount); err != nil {
		return nil, fmt.Errorf("failed to count annotations: %w", err)
	}

	query := `
		SELECT id, run_id, transaction_id, order_id, provider, amount, transaction_date,
		       charge_date, item_count, note, outcome, error_message, created_at
		FROM annotations` + clause + `
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, append(args, filters.Limit, filters.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var a Annotation
		err := rows.Scan(
			&a.ID,
			&a.RunID,
			&a.TransactionID,
			&a.OrderID,
			&a.Provider,
			&a.Amount,
			&a.TransactionDate,
			&a.ChargeDate,
			&a.ItemCount,
			&a.Note,
			&a.Outcome,
			&a.ErrorMessage,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		result.Annotations = append(result.Annotations, a)
	}

	return result, rows.Err()
}

// GetStats returns aggregate statistics over all sync runs
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{
		Outcomes:      make(map[string]int),
		ProviderStats: make(map[string]ProviderStats),
	}

	query := `
	SELECT
		COUNT(*) as total,
		COUNT(CASE WHEN success = 1 THEN 1 END) as succeeded,
		COUNT(CASE WHEN status = 'failed' THEN 1 END) as failed,
		COUNT(CASE WHEN dry_run = 1 THEN 1 END) as dry_runs,
		COALESCE(SUM(CASE WHEN dry_run = 0 THEN transactions_updated ELSE 0 END), 0) as updated
	FROM sync_runs
	`

	err := s.db.QueryRow(query).Scan(
		&stats.TotalRuns,
		&stats.SuccessfulRuns,
		&stats.FailedRuns,
		&stats.DryRuns,
		&stats.TransactionsUpdated,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sync runs: %w", err)
	}

	var lastRun time.Time
	err = s.db.QueryRow(`SELECT started_at FROM sync_runs ORDER BY id DESC LIMIT 1`).Scan(&lastRun)
	switch {
	case err == nil:
		stats.LastRunAt = &lastRun
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	rows, err := s.db.Query(`SELECT outcome, COUNT(*) FROM annotations GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate annotations: %w", err)
	}
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err == nil {
			stats.Outcomes[outcome] = count
		}
	}
	_ = rows.Close()

	provQuery := `
	SELECT
		provider,
		COUNT(*) as count,
		COUNT(CASE WHEN outcome = 'updated' THEN 1 END) as updated,
		COALESCE(SUM(ABS(amount)), 0) as total
	FROM annotations
	GROUP BY provider
	`

	rows, err = s.db.Query(provQuery)
	if err == nil {
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var provider string
			var ps ProviderStats
			if err := rows.Scan(&provider, &ps.Annotations, &ps.Updated, &ps.TotalAmount); err == nil {
				stats.ProviderStats[provider] = ps
			}
		}
	}

	return stats, nil
}

// ================================================================
// API CALLS
// ================================================================

// LogAPICall logs an API call to the database
func (s *Storage) LogAPICall(call *APICall) error {
	if call.Timestamp.IsZero() {
		call.Timestamp = s.now()
	}

	query := `
		INSERT INTO api_calls
		(run_id, transaction_id, method, request_json, response_json, error, duration_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		call.RunID,
		call.TransactionID,
		call.Method,
		call.RequestJSON,
		call.ResponseJSON,
		call.Error,
		call.DurationMs,
		call.Timestamp,
	)

	return err
}

// GetAPICallsByTransactionID retrieves all API calls for a ledger transaction
func (s *Storage) GetAPICallsByTransactionID(transactionID string) ([]APICall, error) {
	return s.queryAPICalls(`WHERE transaction_id = ?`, transactionID)
}

// GetAPICallsByRunID retrieves all API calls for a specific sync run
func (s *Storage) GetAPICallsByRunID(runID int64) ([]APICall, error) {
	return s.queryAPICalls(`WHERE run_id = ?`, runID)
}

func (s *Storage) queryAPICalls(where string, arg any) ([]APICall, error) {
	query := `
		SELECT run_id, transaction_id, method, request_json, response_json, error, duration_ms, timestamp
		FROM api_calls
		` + where + `
		ORDER BY id ASC
	`

	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var calls []APICall
	for rows.Next() {
		var call APICall
		err := rows.Scan(
			&call.RunID,
			&call.TransactionID,
			&call.Method,
			&call.RequestJSON,
			&call.ResponseJSON,
			&call.Error,
			&call.DurationMs,
			&call.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}

	return calls, rows.Err()
}
