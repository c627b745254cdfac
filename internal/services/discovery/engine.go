// -----------------------------------------------------------------------
// Tiered price discovery engine
// -----------------------------------------------------------------------

package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
	"github.com/ternarybob/merx/internal/services/stores"
)

// Request describes one discovery run
type Request struct {
	UserID string
	Query  string

	// ShopLocal restricts discovery to local stores; zero results is a
	// valid outcome and never falls back to the full store set
	ShopLocal bool

	// IncludeAgent opts in to the agent tier. The engine never escalates
	// to it on its own.
	IncludeAgent bool
}

// Progress receives tier-level progress callbacks during a run. Any
// callback may be nil.
type Progress struct {
	OnTierStart  func(tier models.DiscoveryTier)
	OnTierResult func(tier models.DiscoveryTier, entries int)

	// Checkpoint is consulted at every tier boundary; a non-nil return
	// aborts escalation with that error. Callers use it to surface
	// cooperative cancellation between tiers.
	Checkpoint func(ctx context.Context) error
}

// Engine escalates through discovery tiers cheapest-first until enough
// distinct vendors carry a price
type Engine struct {
	registry *stores.Registry
	scraper  interfaces.ScrapeService
	provider interfaces.AIProvider
	config   *common.DiscoveryConfig
	logger   arbor.ILogger
}

// NewEngine creates the discovery engine. The provider is used for offer
// extraction and the agent tier.
func NewEngine(registry *stores.Registry, scrapeService interfaces.ScrapeService, provider interfaces.AIProvider, config *common.DiscoveryConfig, logger arbor.ILogger) *Engine {
	return &Engine{
		registry: registry,
		scraper:  scrapeService,
		provider: provider,
		config:   config,
		logger:   logger,
	}
}

// AgentAvailable reports whether the agent tier could serve a request
func (e *Engine) AgentAvailable() bool {
	return e.provider != nil
}

// Discover runs tiered discovery for a query. Tiers run cheapest-first and
// escalation stops as soon as the distinct-vendor threshold is met. A tier
// that fails contributes nothing; the run errors only when every attempted
// tier failed outright.
func (e *Engine) Discover(ctx context.Context, req Request, progress Progress) *models.DiscoveryResult {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return &models.DiscoveryResult{Err: fmt.Errorf("%w: empty discovery query", common.ErrInvalidInput)}
	}

	result := &models.DiscoveryResult{
		AgentAvailable: e.AgentAvailable() && !req.IncludeAgent,
		LocalOnly:      req.ShopLocal,
	}

	suppressed, err := e.registry.SuppressedVendors(ctx, req.UserID)
	if err != nil {
		result.Err = fmt.Errorf("load vendor suppressions: %w", err)
		return result
	}

	collected := make(map[string]models.VendorPriceEntry)
	tiersAttempted := 0
	tiersFailed := 0

	// Tier 1: templated store scrapes
	candidates, err := e.registry.RankedCandidates(ctx, req.UserID, stores.CandidateFilter{
		TemplateOnly: true,
		LocalOnly:    req.ShopLocal,
	})
	if err != nil {
		result.Err = fmt.Errorf("rank stores: %w", err)
		return result
	}

	if len(candidates) > 0 {
		notifyStart(progress, models.TierTemplate)
		entries, failed := e.runTemplateTier(ctx, query, candidates)
		result.SourceTiers = append(result.SourceTiers, models.TierTemplate)
		tiersAttempted++
		if failed {
			tiersFailed++
		}
		added := e.absorb(collected, entries, suppressed)
		notifyResult(progress, models.TierTemplate, added)
	}

	if err := tierCheckpoint(ctx, progress); err != nil {
		result.Err = err
		return result
	}

	// Shopping local means exactly the local stores, nothing wider: the
	// search and agent tiers cannot honor the restriction
	if req.ShopLocal {
		return e.finish(result, collected, tiersAttempted, tiersFailed)
	}

	// Tier 2: web search
	if e.distinctVendors(collected) < e.config.MinVendorThreshold {
		notifyStart(progress, models.TierSearch)
		entries, err := e.runSearchTier(ctx, query)
		result.SourceTiers = append(result.SourceTiers, models.TierSearch)
		tiersAttempted++
		if err != nil {
			tiersFailed++
			e.logger.Warn().Err(err).Str("query", query).Msg("Search tier failed")
			notifyResult(progress, models.TierSearch, 0)
		} else {
			added := e.absorb(collected, entries, suppressed)
			notifyResult(progress, models.TierSearch, added)
		}
	}

	if err := tierCheckpoint(ctx, progress); err != nil {
		result.Err = err
		return result
	}

	// Tier 3: agent, explicit opt-in only
	if req.IncludeAgent && e.AgentAvailable() && e.distinctVendors(collected) < e.config.MinVendorThreshold {
		notifyStart(progress, models.TierAgent)
		entries, err := e.runAgentTier(ctx, query)
		result.SourceTiers = append(result.SourceTiers, models.TierAgent)
		result.AgentAvailable = false
		tiersAttempted++
		if err != nil && len(entries) == 0 {
			tiersFailed++
			e.logger.Warn().Err(err).Str("query", query).Msg("Agent tier failed")
			notifyResult(progress, models.TierAgent, 0)
		} else {
			added := e.absorb(collected, entries, suppressed)
			notifyResult(progress, models.TierAgent, added)
		}
	}

	return e.finish(result, collected, tiersAttempted, tiersFailed)
}

// absorb normalizes, filters and dedupes tier entries into the collected
// map, keeping the lowest price per vendor. Returns how many entries were
// accepted.
func (e *Engine) absorb(collected map[string]models.VendorPriceEntry, entries []models.VendorPriceEntry, suppressed []string) int {
	added := 0
	for _, entry := range entries {
		if entry.Price <= 0 {
			continue
		}
		vendor := NormalizeVendor(entry.Vendor)
		if vendor == "" {
			continue
		}
		if stores.IsSuppressed(vendor, suppressed) {
			e.logger.Debug().Str("vendor", vendor).Msg("Vendor suppressed by user preference")
			continue
		}
		entry.Vendor = vendor

		existing, ok := collected[vendor]
		if !ok || entry.Price < existing.Price {
			collected[vendor] = entry
			added++
		}
	}
	return added
}

// finish assembles the result, deciding between entries and a terminal
// error. A run with zero entries only errors when every attempted tier
// failed; an empty-but-clean run is a valid outcome.
func (e *Engine) finish(result *models.DiscoveryResult, collected map[string]models.VendorPriceEntry, tiersAttempted, tiersFailed int) *models.DiscoveryResult {
	for _, entry := range collected {
		result.Entries = append(result.Entries, entry)
	}

	if len(result.Entries) == 0 && tiersAttempted > 0 && tiersFailed == tiersAttempted {
		result.Err = fmt.Errorf("%w: all discovery tiers failed", common.ErrDiscoveryExhausted)
		result.Entries = nil
	}
	return result
}

func (e *Engine) distinctVendors(collected map[string]models.VendorPriceEntry) int {
	return len(collected)
}

// learnRetailer records a retailer surfaced by a wider tier so future runs
// can reach it through the template tier's ranking. Learning is best
// effort: a failure never disturbs the discovery result.
func (e *Engine) learnRetailer(ctx context.Context, vendor, pageURL string) {
	if pageURL == "" {
		return
	}
	if _, err := e.registry.LearnStore(ctx, NormalizeVendor(vendor), pageURL, false); err != nil {
		e.logger.Warn().Err(err).Str("url", pageURL).Msg("Store learning failed, continuing")
	}
}

// tierCheckpoint consults the caller's cancellation check between tiers,
// falling back to the context when none is wired
func tierCheckpoint(ctx context.Context, p Progress) error {
	if p.Checkpoint != nil {
		return p.Checkpoint(ctx)
	}
	return ctx.Err()
}

func notifyStart(p Progress, tier models.DiscoveryTier) {
	if p.OnTierStart != nil {
		p.OnTierStart(tier)
	}
}

func notifyResult(p Progress, tier models.DiscoveryTier, entries int) {
	if p.OnTierResult != nil {
		p.OnTierResult(tier, entries)
	}
}

// IsExhausted reports whether a discovery error is the terminal
// all-tiers-failed condition
func IsExhausted(err error) bool {
	return errors.Is(err, common.ErrDiscoveryExhausted)
}
