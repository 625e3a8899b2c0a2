package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/itemize/internal/adapters/providers"
	appsync "github.com/eshaffer321/itemize/internal/application/sync"
)

// SyncStatus represents the current state of a sync job.
type SyncStatus string

const (
	StatusPending   SyncStatus = "pending"
	StatusRunning   SyncStatus = "running"
	StatusCompleted SyncStatus = "completed"
	StatusFailed    SyncStatus = "failed"
	StatusCancelled SyncStatus = "cancelled"
)

// Trigger records what started a job.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// Job staleness thresholds
const (
	// DefaultJobStaleThreshold is how long a job can go without progress updates
	// before being considered stale.
	DefaultJobStaleThreshold = 30 * time.Minute

	// DefaultJobMaxDuration is the maximum time a job can run before being
	// forcefully marked as failed.
	DefaultJobMaxDuration = 2 * time.Hour
)

var (
	// ErrSyncInProgress is returned when a sync is requested while another runs.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrJobNotFound is returned for unknown job IDs.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotCancellable is returned when cancelling a finished job.
	ErrJobNotCancellable = errors.New("job cannot be cancelled")
)

// Runner executes one sync. *appsync.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, opts appsync.Options) (*appsync.Result, error)
}

// SyncRequest holds parameters for starting a sync.
type SyncRequest struct {
	Providers []string // empty = all registered
	DryRun    bool
	Year      int
	MaxOrders int
}

// SyncProgress holds real-time progress information.
type SyncProgress struct {
	Phase      string
	Provider   string
	Complete   int
	Total      int
	LastUpdate time.Time
}

// SyncJob represents a running or completed sync job.
type SyncJob struct {
	ID          string
	Trigger     Trigger
	Status      SyncStatus
	Request     SyncRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	Progress    SyncProgress
	Result      *appsync.Result
	Error       error
	cancelFunc  context.CancelFunc
}

// SyncService manages sync operations. Only one sync runs at a time,
// whether it was started from the API, the scheduler or the CLI.
type SyncService struct {
	runner   Runner
	registry *providers.Registry
	logger   *slog.Logger

	// Job management
	jobs      map[string]*SyncJob
	jobsMutex sync.RWMutex
	activeJob string // guarded by jobsMutex

	// Background cleanup
	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// NewSyncService creates a new sync service. registry is used to validate
// requested providers and may be nil.
func NewSyncService(runner Runner, registry *providers.Registry, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		runner:   runner,
		registry: registry,
		logger:   logger,
		jobs:     make(map[string]*SyncJob),
	}
}

// StartSync starts a new sync job asynchronously and returns its ID.
// Background jobs use context.Background() so they outlive the HTTP request
// that started them. Use CancelSync() to cancel a running job.
func (s *SyncService) StartSync(_ context.Context, req SyncRequest) (string, error) {
	jobCtx, cancel := context.WithCancel(context.Background())
	job, err := s.beginJob(req, TriggerManual, cancel)
	if err != nil {
		cancel()
		return "", err
	}

	go s.runSyncJob(jobCtx, job)

	s.logger.Info("sync job started",
		"job_id", job.ID,
		"providers", req.Providers,
		"dry_run", req.DryRun,
		"year", req.Year,
	)

	return job.ID, nil
}

// RunSync runs a sync in the caller's goroutine and returns its result.
// The job is tracked like any other, so it shows up in job listings.
func (s *SyncService) RunSync(ctx context.Context, req SyncRequest, trigger Trigger) (*appsync.Result, error) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	job, err := s.beginJob(req, trigger, cancel)
	if err != nil {
		return nil, err
	}

	return s.runSyncJob(jobCtx, job)
}

// GetSyncJob returns a snapshot of a sync job by ID.
func (s *SyncService) GetSyncJob(jobID string) (*SyncJob, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	return job.snapshot(), nil
}

// ListActiveSyncJobs returns all running or pending jobs.
func (s *SyncService) ListActiveSyncJobs() []*SyncJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	var active []*SyncJob
	for _, job := range s.jobs {
		if job.active() {
			active = append(active, job.snapshot())
		}
	}
	return active
}

// ListAllSyncJobs returns all jobs (for debugging/monitoring).
func (s *SyncService) ListAllSyncJobs() []*SyncJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*SyncJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.snapshot())
	}
	return jobs
}

// IsRunning reports whether a sync currently holds the lock.
func (s *SyncService) IsRunning() bool {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	return s.activeJob != ""
}

// CancelSync cancels a running sync job.
func (s *SyncService) CancelSync(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if !job.active() {
		return fmt.Errorf("%w: status=%s", ErrJobNotCancellable, job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	now := time.Now()
	job.CompletedAt = &now
	job.Progress.Phase = "cancelled"
	job.Progress.LastUpdate = now

	// The slot stays taken until the runner goroutine returns.
	s.logger.Info("sync job cancelled", "job_id", jobID)
	return nil
}

// beginJob validates the request, takes the single sync slot and records the job.
func (s *SyncService) beginJob(req SyncRequest, trigger Trigger, cancel context.CancelFunc) (*SyncJob, error) {
	if err := s.validateProviders(req.Providers); err != nil {
		return nil, err
	}

	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if s.activeJob != "" {
		return nil, fmt.Errorf("%w: job %s", ErrSyncInProgress, s.activeJob)
	}

	now := time.Now()
	job := &SyncJob{
		ID:         uuid.NewString(),
		Trigger:    trigger,
		Status:     StatusPending,
		Request:    req,
		StartedAt:  now,
		cancelFunc: cancel,
		Progress:   SyncProgress{Phase: "pending", LastUpdate: now},
	}
	s.jobs[job.ID] = job
	s.activeJob = job.ID
	return job, nil
}

// runSyncJob executes the sync and records its outcome.
func (s *SyncService) runSyncJob(ctx context.Context, job *SyncJob) (*appsync.Result, error) {
	defer s.release(job.ID)

	s.updateJobProgress(job.ID, appsync.Progress{Phase: "initializing"})

	opts := appsync.Options{
		DryRun:    job.Request.DryRun,
		Year:      job.Request.Year,
		Providers: job.Request.Providers,
		MaxOrders: job.Request.MaxOrders,
		Progress: func(p appsync.Progress) {
			s.updateJobProgress(job.ID, p)
		},
	}

	result, err := s.runner.Run(ctx, opts)
	if err != nil {
		if ctx.Err() == context.Canceled && s.status(job.ID) == StatusCancelled {
			// Already marked as cancelled in CancelSync
			return result, err
		}
		s.failJob(job.ID, result, err)
		return result, err
	}

	s.completeJob(job.ID, result)
	return result, nil
}

// updateJobProgress updates job progress from the orchestrator callback.
func (s *SyncService) updateJobProgress(jobID string, p appsync.Progress) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || !job.active() {
		return
	}
	job.Status = StatusRunning
	job.Progress = SyncProgress{
		Phase:      string(p.Phase),
		Provider:   p.Provider,
		Complete:   p.Complete,
		Total:      p.Total,
		LastUpdate: time.Now(),
	}
}

// completeJob marks a job as completed with results.
func (s *SyncService) completeJob(jobID string, result *appsync.Result) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || !job.active() {
		return
	}

	now := time.Now()
	job.Status = StatusCompleted
	job.CompletedAt = &now
	job.Result = result
	job.Progress.Phase = string(appsync.PhaseCompleted)
	job.Progress.LastUpdate = now

	s.logger.Info("sync job completed",
		"job_id", jobID,
		"orders", result.OrdersFound,
		"matches", result.MatchesFound,
		"updated", result.TransactionsUpdated,
	)
}

// failJob marks a job as failed. result may carry partial counts.
func (s *SyncService) failJob(jobID string, result *appsync.Result, err error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || !job.active() {
		return
	}

	now := time.Now()
	job.Status = StatusFailed
	job.CompletedAt = &now
	job.Result = result
	job.Error = err
	job.Progress = SyncProgress{
		Phase:      string(appsync.PhaseFailed),
		LastUpdate: now,
	}
	s.logger.Error("sync job failed", "job_id", jobID, "error", err)
}

func (s *SyncService) status(jobID string) SyncStatus {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	if job, ok := s.jobs[jobID]; ok {
		return job.Status
	}
	return ""
}

// release frees the sync slot if jobID still holds it. Only runSyncJob
// calls it, once the runner has returned.
func (s *SyncService) release(jobID string) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()
	if s.activeJob == jobID {
		s.activeJob = ""
	}
}

func (s *SyncService) validateProviders(names []string) error {
	for _, name := range names {
		if !providers.IsKnown(name) {
			return fmt.Errorf("invalid provider: %s", name)
		}
		if s.registry != nil {
			if _, err := s.registry.Get(name); err != nil {
				return fmt.Errorf("provider not enabled: %s", name)
			}
		}
	}
	return nil
}

// CleanupOldJobs removes finished jobs older than the specified duration.
func (s *SyncService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range s.jobs {
		if job.active() {
			continue
		}
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old sync jobs", "removed", removed)
	}

	return removed
}

// MarkStaleJobsAsFailed finds jobs that appear to be stuck and marks them as failed.
// A job is considered stale if it has been running longer than maxDuration,
// or its Progress.LastUpdate is older than staleThreshold.
func (s *SyncService) MarkStaleJobsAsFailed(staleThreshold, maxDuration time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	now := time.Now()
	marked := 0

	for id, job := range s.jobs {
		if !job.active() {
			continue
		}

		reason := staleReason(job, now, staleThreshold, maxDuration)
		if reason == "" {
			continue
		}

		if job.cancelFunc != nil {
			job.cancelFunc()
		}

		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = fmt.Errorf("job marked as stale: %s", reason)
		job.Progress.Phase = string(appsync.PhaseFailed)
		job.Progress.LastUpdate = now

		s.logger.Warn("marked stale job as failed",
			"job_id", id,
			"reason", reason,
			"started_at", job.StartedAt,
		)

		marked++
	}

	return marked
}

// IsJobStale checks if a specific job is considered stale.
func (s *SyncService) IsJobStale(jobID string, staleThreshold, maxDuration time.Duration) bool {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists || !job.active() {
		return false
	}

	return staleReason(job, time.Now(), staleThreshold, maxDuration) != ""
}

func staleReason(job *SyncJob, now time.Time, staleThreshold, maxDuration time.Duration) string {
	if running := now.Sub(job.StartedAt); running > maxDuration {
		return fmt.Sprintf("exceeded max duration of %v (started %v ago)", maxDuration, running.Round(time.Second))
	}
	if idle := now.Sub(job.Progress.LastUpdate); idle > staleThreshold {
		return fmt.Sprintf("no progress update for %v (threshold: %v)", idle.Round(time.Second), staleThreshold)
	}
	return ""
}

// StartBackgroundCleanup starts a goroutine that periodically fails stale
// jobs and drops finished jobs older than a day. Call StopBackgroundCleanup
// to stop it.
func (s *SyncService) StartBackgroundCleanup(checkInterval time.Duration) {
	s.cleanupStop = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		s.logger.Info("background job cleanup started",
			"check_interval", checkInterval,
			"stale_threshold", DefaultJobStaleThreshold,
			"max_duration", DefaultJobMaxDuration,
		)

		for {
			select {
			case <-s.cleanupStop:
				s.logger.Info("background job cleanup stopped")
				return
			case <-ticker.C:
				if n := s.MarkStaleJobsAsFailed(DefaultJobStaleThreshold, DefaultJobMaxDuration); n > 0 {
					s.logger.Info("marked stale jobs as failed", "count", n)
				}
				s.CleanupOldJobs(24 * time.Hour)
			}
		}
	}()
}

// StopBackgroundCleanup stops the background cleanup goroutine and waits
// for it to exit.
func (s *SyncService) StopBackgroundCleanup() {
	if s.cleanupStop == nil {
		return
	}

	close(s.cleanupStop)
	<-s.cleanupDone
}

func (j *SyncJob) active() bool {
	return j.Status == StatusPending || j.Status == StatusRunning
}

func (j *SyncJob) snapshot() *SyncJob {
	cp := *j
	cp.cancelFunc = nil
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	cp.Request.Providers = append([]string(nil), j.Request.Providers...)
	return &cp
}
