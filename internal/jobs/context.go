// -----------------------------------------------------------------------
// JobContext - execution-scoped progress, logging and cancellation
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
)

// JobContext carries one running job through its handler. Handlers report
// progress and logs through it and poll it at checkpoints for cooperative
// cancellation; every mutation is persisted so observers see live state.
type JobContext struct {
	job     *models.Job
	storage interfaces.JobStorage
	logger  arbor.ILogger
}

func newJobContext(job *models.Job, storage interfaces.JobStorage, logger arbor.ILogger) *JobContext {
	return &JobContext{
		job:     job,
		storage: storage,
		logger:  logger.WithCorrelationId(job.ID),
	}
}

// Job returns the job being executed
func (jc *JobContext) Job() *models.Job {
	return jc.job
}

// Logger returns the job-correlated logger
func (jc *JobContext) Logger() arbor.ILogger {
	return jc.logger
}

// ReportProgress records a progress checkpoint with a log line. Progress
// never decreases; stale updates are dropped.
func (jc *JobContext) ReportProgress(ctx context.Context, percent int, message string) {
	jc.job.UpdateProgress(percent)
	if message != "" {
		jc.job.AppendLog(models.LogLevelInfo, message)
		jc.logger.Info().Int("progress", jc.job.Progress).Msg(message)
	}
	if err := jc.storage.SaveJob(ctx, jc.job); err != nil {
		jc.logger.Warn().Err(err).Msg("Failed to persist job progress")
	}
}

// Log appends a structured entry to the job log
func (jc *JobContext) Log(ctx context.Context, level models.LogLevel, message string) {
	jc.job.AppendLog(level, message)
	if err := jc.storage.SaveJob(ctx, jc.job); err != nil {
		jc.logger.Warn().Err(err).Msg("Failed to persist job log")
	}
}

// Checkpoint returns ErrCancelled when cancellation was requested or the
// job's context expired. Handlers call it between units of work.
func (jc *JobContext) Checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: job %s exceeded its deadline", common.ErrJobTimeout, jc.job.ID)
		}
		return fmt.Errorf("%w: job %s context done", common.ErrCancelled, jc.job.ID)
	}

	cancelled, err := jc.storage.IsCancelRequested(ctx, jc.job.ID)
	if err != nil {
		jc.logger.Warn().Err(err).Msg("Failed to read cancellation flag")
		return nil
	}
	if cancelled {
		return fmt.Errorf("%w: job %s cancelled by request", common.ErrCancelled, jc.job.ID)
	}
	return nil
}
