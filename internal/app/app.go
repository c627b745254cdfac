// -----------------------------------------------------------------------
// App - public facade over jobs, prices and stores
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/jobs"
	"github.com/ternarybob/merx/internal/models"
	"github.com/ternarybob/merx/internal/services/discovery"
	"github.com/ternarybob/merx/internal/services/prices"
	"github.com/ternarybob/merx/internal/services/stores"
)

// App exposes the operations callers use: enqueue and observe jobs, read
// reconciled prices and query ranked stores. Everything long-running goes
// through the job queue; App methods themselves return quickly.
type App struct {
	storage      interfaces.StorageManager
	registry     *stores.Registry
	engine       *discovery.Engine
	orchestrator *jobs.Orchestrator
	scheduler    *jobs.Scheduler
	logger       arbor.ILogger
}

// New assembles the facade over already-wired services
func New(storage interfaces.StorageManager, registry *stores.Registry, engine *discovery.Engine, orchestrator *jobs.Orchestrator, scheduler *jobs.Scheduler, logger arbor.ILogger) *App {
	return &App{
		storage:      storage,
		registry:     registry,
		engine:       engine,
		orchestrator: orchestrator,
		scheduler:    scheduler,
		logger:       logger,
	}
}

// Start launches the worker pool and scheduler
func (a *App) Start(ctx context.Context) error {
	a.orchestrator.Start(ctx)
	if err := a.scheduler.Start(ctx); err != nil {
		a.orchestrator.Stop()
		return fmt.Errorf("start scheduler: %w", err)
	}
	return nil
}

// Stop shuts down scheduling and workers, then closes storage
func (a *App) Stop() error {
	a.scheduler.Stop()
	a.orchestrator.Stop()
	return a.storage.Close()
}

// CreateJob validates and enqueues a job of the given type
func (a *App) CreateJob(ctx context.Context, userID string, jobType models.JobType, input interface{}) (*models.Job, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: missing user id", common.ErrInvalidInput)
	}

	if err := validateJobInput(jobType, input); err != nil {
		return nil, err
	}

	job, err := models.NewJob(userID, jobType, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	if d, ok := input.(models.DiscoverPricesInput); ok {
		job.RelatedItemID = d.ItemID
	}
	if r, ok := input.(models.RefreshPricesInput); ok {
		job.RelatedItemID = r.ItemID
	}

	if err := a.storage.JobStorage().CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	a.logger.Info().Str("job_id", job.ID).Str("type", string(jobType)).Msg("Job enqueued")
	return job, nil
}

// GetJob returns a job with its live progress and logs
func (a *App) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return a.storage.JobStorage().GetJob(ctx, jobID)
}

// CancelJob requests cooperative cancellation. Pending jobs cancel
// immediately; processing jobs observe the request at their next
// checkpoint. Cancelling a terminal job is a no-op.
func (a *App) CancelJob(ctx context.Context, jobID string) error {
	return a.storage.JobStorage().RequestCancel(ctx, jobID)
}

// ListActiveJobs returns a user's pending and processing jobs
func (a *App) ListActiveJobs(ctx context.Context, userID string) ([]*models.Job, error) {
	return a.storage.JobStorage().ListActiveJobs(ctx, userID)
}

// VendorPrices returns the reconciled per-vendor records for an item
func (a *App) VendorPrices(ctx context.Context, itemID string) ([]*models.VendorPriceRecord, error) {
	return a.storage.PriceStorage().ListVendorRecords(ctx, itemID)
}

// HeadlinePrice returns the record representing an item's current best
// price, or nil when no vendor has been discovered yet
func (a *App) HeadlinePrice(ctx context.Context, itemID string) (*models.VendorPriceRecord, error) {
	records, err := a.storage.PriceStorage().ListVendorRecords(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return prices.HeadlineRecord(records), nil
}

// PriceHistory returns an item's most recent snapshots, newest first
func (a *App) PriceHistory(ctx context.Context, itemID string, limit int) ([]*models.PriceSnapshot, error) {
	return a.storage.PriceStorage().ListPriceHistory(ctx, itemID, limit)
}

// RankedStores returns the user's stores ordered by effective priority
func (a *App) RankedStores(ctx context.Context, userID string, filter stores.CandidateFilter) ([]models.StoreCandidate, error) {
	return a.registry.RankedCandidates(ctx, userID, filter)
}

// SaveStorePreference records a user's per-store priority, favorite flag
// or disablement
func (a *App) SaveStorePreference(ctx context.Context, pref *models.UserStorePreference) error {
	if pref.UserID == "" || pref.StoreID == "" {
		return fmt.Errorf("%w: preference needs user and store ids", common.ErrInvalidInput)
	}
	pref.Key = models.PreferenceKey(pref.UserID, pref.StoreID)
	return a.storage.StoreDirectory().SavePreference(ctx, pref)
}

// AgentAvailable reports whether the agent discovery tier is usable
func (a *App) AgentAvailable() bool {
	return a.engine.AgentAvailable()
}

// validateJobInput rejects payloads that could never execute, before they
// enter the queue
func validateJobInput(jobType models.JobType, input interface{}) error {
	switch jobType {
	case models.JobTypeIdentifyProduct:
		in, ok := input.(models.IdentifyProductInput)
		if !ok {
			return fmt.Errorf("%w: identify_product input has wrong type", common.ErrInvalidInput)
		}
		if len(in.ImageData) == 0 && strings.TrimSpace(in.Description) == "" {
			return fmt.Errorf("%w: identify_product needs an image or a description", common.ErrInvalidInput)
		}
	case models.JobTypeDiscoverPrices:
		in, ok := input.(models.DiscoverPricesInput)
		if !ok {
			return fmt.Errorf("%w: discover_prices input has wrong type", common.ErrInvalidInput)
		}
		if strings.TrimSpace(in.Query) == "" {
			return fmt.Errorf("%w: discover_prices needs a query", common.ErrInvalidInput)
		}
	case models.JobTypeRefreshPrices:
		in, ok := input.(models.RefreshPricesInput)
		if !ok {
			return fmt.Errorf("%w: refresh_prices input has wrong type", common.ErrInvalidInput)
		}
		if strings.TrimSpace(in.Query) == "" || strings.TrimSpace(in.ItemID) == "" {
			return fmt.Errorf("%w: refresh_prices needs an item and a query", common.ErrInvalidInput)
		}
	case models.JobTypeTestConnection:
		if _, ok := input.(models.TestConnectionInput); !ok {
			return fmt.Errorf("%w: test_connection input has wrong type", common.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown job type %q", common.ErrInvalidInput, jobType)
	}
	return nil
}
