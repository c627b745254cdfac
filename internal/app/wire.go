// -----------------------------------------------------------------------
// Service wiring - configuration to fully-assembled App
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/jobs"
	"github.com/ternarybob/merx/internal/services/aggregator"
	"github.com/ternarybob/merx/internal/services/discovery"
	"github.com/ternarybob/merx/internal/services/llm"
	"github.com/ternarybob/merx/internal/services/prices"
	"github.com/ternarybob/merx/internal/services/scraper"
	"github.com/ternarybob/merx/internal/services/stores"
	badgerstorage "github.com/ternarybob/merx/internal/storage/badger"
)

// Build wires every service from configuration and returns the assembled
// App. The caller owns Start/Stop.
func Build(ctx context.Context, config *common.Config, logger arbor.ILogger) (*App, error) {
	storage, err := badgerstorage.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	secrets, err := buildSecrets(config)
	if err != nil {
		storage.Close()
		return nil, err
	}

	providers, err := llm.BuildProviders(ctx, config, storage.KeyValueStorage(), secrets, logger)
	if err != nil {
		storage.Close()
		return nil, err
	}

	scrapeService := buildScraper(config, logger)

	registry := stores.NewRegistry(storage.StoreDirectory(), logger)
	defaultProvider := llm.DefaultProvider(providers, config.LLM.DefaultProvider)
	engine := discovery.NewEngine(registry, scrapeService, defaultProvider, &config.Discovery, logger)
	reconciler := prices.NewReconciler(storage.PriceStorage(), storage.ItemDirectory(), logger)
	agg := aggregator.New(providers, nil, logger)

	handlers := jobs.NewHandlerRegistry(
		jobs.NewIdentifyHandler(agg),
		jobs.NewDiscoverHandler(engine, reconciler),
		jobs.NewRefreshHandler(engine, reconciler),
		jobs.NewTestConnectionHandler(providers, scrapeService),
	)

	orchestrator := jobs.NewOrchestrator(storage.JobStorage(), handlers, &config.Workers, logger)
	scheduler := jobs.NewScheduler(storage.JobStorage(), storage.ItemDirectory(), &config.Scheduler, &config.Workers, logger)

	return New(storage, registry, engine, orchestrator, scheduler, logger), nil
}

// buildSecrets selects sealed or plaintext secret handling based on
// whether an encryption key is configured
func buildSecrets(config *common.Config) (interfaces.SecretStore, error) {
	if config.Secrets.Key == "" {
		return common.PlainSecretBox{}, nil
	}
	box, err := common.NewSecretBox(config.Secrets.Key)
	if err != nil {
		return nil, fmt.Errorf("secrets key: %w", err)
	}
	return box, nil
}

// buildScraper composes the sidecar client with the optional local
// headless-browser fallback
func buildScraper(config *common.Config, logger arbor.ILogger) interfaces.ScrapeService {
	sidecar := scraper.NewSidecarClient(&config.Scraper, logger)
	if !config.Scraper.LocalFallback {
		return sidecar
	}
	local := scraper.NewLocalScraper(&config.Scraper, logger)
	return scraper.NewFallbackScraper(sidecar, local, logger)
}
