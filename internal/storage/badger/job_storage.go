package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	// claimMu serializes ClaimNextPending so the pending -> processing
	// transition is an atomic compare-and-swap in the single-process model
	claimMu sync.Mutex
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) CreateJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if err := s.db.Store().Insert(job.ID, job); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("job not found: %s", jobID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	// Terminal states are final: refuse to overwrite a terminal job with a
	// different status. A cancel flag set by a concurrent RequestCancel is
	// never lost to a stale in-memory copy.
	var existing models.Job
	if err := s.db.Store().Get(job.ID, &existing); err == nil {
		if existing.IsTerminal() && existing.Status != job.Status {
			return fmt.Errorf("job %s is terminal (%s); transition to %s rejected",
				job.ID, existing.Status, job.Status)
		}
		if existing.CancelRequested {
			job.CancelRequested = true
		}
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) ClaimNextPending(ctx context.Context) (*models.Job, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	var jobs []models.Job
	query := badgerhold.Where("Status").Eq(models.JobStatusPending).
		SortBy("CreatedAt").Limit(1)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	job := jobs[0]

	// A cancel requested while still pending short-circuits to cancelled
	if job.CancelRequested {
		if err := job.MarkCancelled(nil); err != nil {
			return nil, err
		}
		if err := s.db.Store().Upsert(job.ID, &job); err != nil {
			return nil, fmt.Errorf("failed to cancel pending job: %w", err)
		}
		return s.claimNextLocked(ctx)
	}

	if err := job.MarkProcessing(); err != nil {
		return nil, err
	}
	if err := s.db.Store().Upsert(job.ID, &job); err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	return &job, nil
}

// claimNextLocked retries the claim after a pending job was cancelled.
// Caller must hold claimMu.
func (s *JobStorage) claimNextLocked(ctx context.Context) (*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("Status").Eq(models.JobStatusPending).
		SortBy("CreatedAt").Limit(1)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	job := jobs[0]
	if err := job.MarkProcessing(); err != nil {
		return nil, err
	}
	if err := s.db.Store().Upsert(job.ID, &job); err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) RequestCancel(ctx context.Context, jobID string) error {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("job not found: %s", jobID)
		}
		return fmt.Errorf("failed to get job: %w", err)
	}

	if job.IsTerminal() {
		return nil
	}

	job.CancelRequested = true

	// Pending jobs have no worker to observe the flag; cancel immediately
	if job.Status == models.JobStatusPending {
		if err := job.MarkCancelled(nil); err != nil {
			return err
		}
	}

	if err := s.db.Store().Upsert(job.ID, &job); err != nil {
		return fmt.Errorf("failed to save cancel request: %w", err)
	}

	s.logger.Debug().Str("job_id", jobID).Str("status", string(job.Status)).Msg("Cancel requested")
	return nil
}

func (s *JobStorage) IsCancelRequested(ctx context.Context, jobID string) (bool, error) {
	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return false, fmt.Errorf("job not found: %s", jobID)
		}
		return false, fmt.Errorf("failed to get job: %w", err)
	}
	return job.CancelRequested, nil
}

func (s *JobStorage) ListActiveJobs(ctx context.Context, userID string) ([]*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("UserID").Eq(userID).
		And("Status").In(models.JobStatusPending, models.JobStatusProcessing).
		SortBy("CreatedAt")
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list active jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var jobs []models.Job
	query := badgerhold.Where("Status").In(
		models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return 0, fmt.Errorf("failed to list terminal jobs: %w", err)
	}

	deleted := 0
	for i := range jobs {
		if jobs[i].FinishedAt == nil || jobs[i].FinishedAt.After(cutoff) {
			continue
		}
		if err := s.db.Store().Delete(jobs[i].ID, &models.Job{}); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobs[i].ID).Msg("Failed to delete terminal job")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Debug().Int("deleted", deleted).Msg("Terminal job retention sweep completed")
	}
	return deleted, nil
}
