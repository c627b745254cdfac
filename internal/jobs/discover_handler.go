// -----------------------------------------------------------------------
// discover_prices and refresh_prices job handlers
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"

	"github.com/ternarybob/merx/internal/models"
	"github.com/ternarybob/merx/internal/services/discovery"
	"github.com/ternarybob/merx/internal/services/prices"
)

// DiscoverHandler runs tiered price discovery for an item and reconciles
// the results into stored vendor records
type DiscoverHandler struct {
	engine     *discovery.Engine
	reconciler *prices.Reconciler
}

// NewDiscoverHandler creates the discover_prices handler
func NewDiscoverHandler(engine *discovery.Engine, reconciler *prices.Reconciler) *DiscoverHandler {
	return &DiscoverHandler{engine: engine, reconciler: reconciler}
}

func (h *DiscoverHandler) Type() models.JobType {
	return models.JobTypeDiscoverPrices
}

func (h *DiscoverHandler) Execute(ctx context.Context, jc *JobContext) (interface{}, error) {
	var input models.DiscoverPricesInput
	if err := jc.Job().DecodeInput(&input); err != nil {
		return nil, err
	}

	return runDiscovery(ctx, jc, h.engine, h.reconciler, discovery.Request{
		UserID:       jc.Job().UserID,
		Query:        input.Query,
		ShopLocal:    input.ShopLocal,
		IncludeAgent: input.IncludeAgent,
	}, input.ItemID)
}

// RefreshHandler re-runs discovery for an already-tracked item. Refresh
// never escalates to the agent tier.
type RefreshHandler struct {
	engine     *discovery.Engine
	reconciler *prices.Reconciler
}

// NewRefreshHandler creates the refresh_prices handler
func NewRefreshHandler(engine *discovery.Engine, reconciler *prices.Reconciler) *RefreshHandler {
	return &RefreshHandler{engine: engine, reconciler: reconciler}
}

func (h *RefreshHandler) Type() models.JobType {
	return models.JobTypeRefreshPrices
}

func (h *RefreshHandler) Execute(ctx context.Context, jc *JobContext) (interface{}, error) {
	var input models.RefreshPricesInput
	if err := jc.Job().DecodeInput(&input); err != nil {
		return nil, err
	}

	return runDiscovery(ctx, jc, h.engine, h.reconciler, discovery.Request{
		UserID:    jc.Job().UserID,
		Query:     input.Query,
		ShopLocal: input.ShopLocal,
	}, input.ItemID)
}

// runDiscovery is the shared discover/refresh body: tiered discovery with
// progress checkpoints, then reconciliation
func runDiscovery(ctx context.Context, jc *JobContext, engine *discovery.Engine, reconciler *prices.Reconciler, req discovery.Request, itemID string) (interface{}, error) {
	if err := jc.Checkpoint(ctx); err != nil {
		return nil, err
	}
	jc.ReportProgress(ctx, 5, fmt.Sprintf("Starting price discovery for %q", req.Query))

	tierCeilings := map[models.DiscoveryTier]int{
		models.TierTemplate: 40,
		models.TierSearch:   65,
		models.TierAgent:    85,
	}
	progress := discovery.Progress{
		OnTierStart: func(tier models.DiscoveryTier) {
			jc.Log(ctx, models.LogLevelInfo, fmt.Sprintf("Running %s tier", tier))
		},
		OnTierResult: func(tier models.DiscoveryTier, entries int) {
			jc.ReportProgress(ctx, tierCeilings[tier], fmt.Sprintf("%s tier returned %d offers", tier, entries))
		},
		Checkpoint: jc.Checkpoint,
	}

	result := engine.Discover(ctx, req, progress)
	if result.Err != nil {
		return nil, result.Err
	}

	if err := jc.Checkpoint(ctx); err != nil {
		return nil, err
	}
	jc.ReportProgress(ctx, 90, fmt.Sprintf("Reconciling %d offers", len(result.Entries)))

	summary, err := reconciler.ApplyDiscoveryResult(ctx, itemID, result)
	if err != nil {
		return nil, err
	}

	tiers := make([]string, 0, len(result.SourceTiers))
	for _, t := range result.SourceTiers {
		tiers = append(tiers, string(t))
	}

	return &models.DiscoverPricesOutput{
		VendorCount:    summary.VendorCount,
		LowestPrice:    summary.HeadlinePrice,
		LowestVendor:   summary.HeadlineVendor,
		TiersAttempted: tiers,
		AgentAvailable: result.AgentAvailable,
		LocalOnly:      result.LocalOnly,
	}, nil
}
