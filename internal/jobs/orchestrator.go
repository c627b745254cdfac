// -----------------------------------------------------------------------
// Job orchestrator - worker pool, claim loop, lifecycle transitions
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
)

const (
	idleBackoffMin = 100 * time.Millisecond
	idleBackoffMax = 5 * time.Second
)

// Orchestrator runs the worker pool that claims and executes pending jobs.
// Each worker claims atomically, so a job is never executed twice.
type Orchestrator struct {
	storage  interfaces.JobStorage
	registry *HandlerRegistry
	config   *common.WorkersConfig
	logger   arbor.ILogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the job orchestrator
func NewOrchestrator(storage interfaces.JobStorage, registry *HandlerRegistry, config *common.WorkersConfig, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		storage:  storage,
		registry: registry,
		config:   config,
		logger:   logger,
	}
}

// Start launches the worker pool. Workers poll for pending jobs with
// exponential backoff while idle and stop when Stop is called.
func (o *Orchestrator) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.config.Concurrency; i++ {
		o.wg.Add(1)
		go o.workerLoop(runCtx, i)
	}

	o.logger.Info().Int("workers", o.config.Concurrency).Msg("Job orchestrator started")
}

// Stop signals all workers and waits for in-flight jobs to finish their
// current checkpoint-to-checkpoint stretch
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	o.logger.Info().Msg("Job orchestrator stopped")
}

// workerLoop claims and executes jobs until the context is cancelled
func (o *Orchestrator) workerLoop(ctx context.Context, workerID int) {
	defer o.wg.Done()

	logger := o.logger.WithCorrelationId(fmt.Sprintf("worker-%d", workerID))
	backoff := idleBackoffMin

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := o.storage.ClaimNextPending(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to claim next job")
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		if job == nil {
			if !sleepCtx(ctx, o.pollDelay(backoff)) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = idleBackoffMin
		o.process(ctx, job, logger)
	}
}

// pollDelay caps the idle backoff at the configured poll interval when
// that is longer, so the queue is checked at a predictable cadence
func (o *Orchestrator) pollDelay(backoff time.Duration) time.Duration {
	poll := o.config.PollIntervalDuration()
	if backoff > poll {
		return backoff
	}
	return poll
}

// process executes one claimed job through its handler and records the
// terminal transition. Handler panics fail the job, never the worker.
func (o *Orchestrator) process(ctx context.Context, job *models.Job, logger arbor.ILogger) {
	jobLogger := logger.WithCorrelationId(job.ID)
	jobLogger.Info().Str("type", string(job.Type)).Str("user_id", job.UserID).Msg("Job claimed")

	jc := newJobContext(job, o.storage, jobLogger)

	// Hard ceiling on execution; a handler stuck past it fails the job
	jobCtx, cancel := context.WithTimeout(ctx, o.config.JobTimeoutDuration())
	defer cancel()

	output, err := o.executeGuarded(jobCtx, jc)

	switch {
	case err == nil:
		if markErr := job.MarkCompleted(output); markErr != nil {
			jobLogger.Error().Err(markErr).Msg("Failed to mark job completed")
			return
		}
		jobLogger.Info().Int("progress", job.Progress).Msg("Job completed")

	case errors.Is(err, common.ErrCancelled):
		job.AppendLog(models.LogLevelWarn, "Job cancelled")
		if markErr := job.MarkCancelled(output); markErr != nil {
			jobLogger.Error().Err(markErr).Msg("Failed to mark job cancelled")
			return
		}
		jobLogger.Info().Msg("Job cancelled")

	case errors.Is(err, common.ErrJobTimeout) || errors.Is(jobCtx.Err(), context.DeadlineExceeded):
		job.AppendLog(models.LogLevelError, "Job exceeded its execution deadline")
		if markErr := job.MarkFailed(common.UserMessage(common.ErrJobTimeout)); markErr != nil {
			jobLogger.Error().Err(markErr).Msg("Failed to mark job failed")
			return
		}
		jobLogger.Warn().Str("timeout", o.config.JobTimeoutDuration().String()).Msg("Job timed out")

	default:
		job.AppendLog(models.LogLevelError, err.Error())
		if markErr := job.MarkFailed(common.UserMessage(err)); markErr != nil {
			jobLogger.Error().Err(markErr).Msg("Failed to mark job failed")
			return
		}
		jobLogger.Warn().Err(err).Msg("Job failed")
	}

	if saveErr := o.storage.SaveJob(ctx, job); saveErr != nil {
		jobLogger.Error().Err(saveErr).Msg("Failed to persist terminal job state")
	}
}

// executeGuarded resolves the handler and runs it with panic recovery
func (o *Orchestrator) executeGuarded(ctx context.Context, jc *JobContext) (output interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			jc.Logger().Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Job handler panicked")
			output = nil
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()

	handler, err := o.registry.Resolve(jc.Job().Type)
	if err != nil {
		return nil, err
	}
	return handler.Execute(ctx, jc)
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > idleBackoffMax {
		return idleBackoffMax
	}
	return next
}

// sleepCtx sleeps for d or until the context is done; reports whether the
// context is still live
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
