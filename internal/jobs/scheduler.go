// -----------------------------------------------------------------------
// Scheduler - cron-driven refresh enqueue and retention sweep
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
)

// Scheduler enqueues refresh_prices jobs on a cron schedule and sweeps
// terminal jobs past the retention window
type Scheduler struct {
	jobs      interfaces.JobStorage
	items     interfaces.ItemDirectory
	scheduler *common.SchedulerConfig
	workers   *common.WorkersConfig
	logger    arbor.ILogger

	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewScheduler creates the refresh scheduler
func NewScheduler(jobStorage interfaces.JobStorage, items interfaces.ItemDirectory, schedulerConfig *common.SchedulerConfig, workersConfig *common.WorkersConfig, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		jobs:      jobStorage,
		items:     items,
		scheduler: schedulerConfig,
		workers:   workersConfig,
		logger:    logger,
	}
}

// Start registers the cron entries and begins scheduling. Disabled
// schedulers start nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.scheduler.Enabled {
		s.logger.Info().Msg("Scheduler disabled")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.cron = cron.New()

	if _, err := s.cron.AddFunc(s.scheduler.RefreshSchedule, func() {
		s.enqueueRefreshes(runCtx)
	}); err != nil {
		cancel()
		return err
	}

	// Retention runs hourly; the window itself comes from worker config
	if _, err := s.cron.AddFunc("@hourly", func() {
		s.sweepRetention(runCtx)
	}); err != nil {
		cancel()
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.scheduler.RefreshSchedule).Msg("Scheduler started")
	return nil
}

// Stop halts scheduling and waits for running entries to return
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
	}
	s.logger.Info().Msg("Scheduler stopped")
}

// enqueueRefreshes creates one refresh_prices job per eligible tracked
// item, staggered so a large list does not stampede the providers
func (s *Scheduler) enqueueRefreshes(ctx context.Context) {
	targets, err := s.items.ListRefreshTargets(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to enumerate refresh targets")
		return
	}
	if len(targets) == 0 {
		s.logger.Debug().Msg("No items eligible for refresh")
		return
	}

	s.logger.Info().Int("items", len(targets)).Msg("Enqueueing scheduled refreshes")

	stagger := s.scheduler.EnqueueStaggerDuration()
	for i, item := range targets {
		if i > 0 && stagger > 0 {
			if !sleepCtx(ctx, stagger) {
				return
			}
		}

		job, err := models.NewJob(item.UserID, models.JobTypeRefreshPrices, models.RefreshPricesInput{
			ItemID:    item.ID,
			Query:     item.Query,
			ShopLocal: item.ShopLocal,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("item_id", item.ID).Msg("Failed to build refresh job")
			continue
		}
		job.RelatedItemID = item.ID
		job.RelatedListID = item.ListID

		if err := s.jobs.CreateJob(ctx, job); err != nil {
			s.logger.Error().Err(err).Str("item_id", item.ID).Msg("Failed to enqueue refresh job")
		}
	}
}

// sweepRetention deletes terminal jobs older than the retention window
func (s *Scheduler) sweepRetention(ctx context.Context) {
	cutoff := time.Now().Add(-s.workers.RetentionAgeDuration())
	removed, err := s.jobs.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("Retention sweep failed")
		return
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Str("cutoff", cutoff.Format(time.RFC3339)).Msg("Retention sweep completed")
	}
}
