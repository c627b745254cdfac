// -----------------------------------------------------------------------
// Tier 1 - templated store search URLs
// -----------------------------------------------------------------------

package discovery

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
)

// BuildSearchURL substitutes the URL-escaped query into a store's search
// template. Returns "" when the template has no placeholder.
func BuildSearchURL(template, query string) string {
	if !strings.Contains(template, "{query}") {
		return ""
	}
	return strings.ReplaceAll(template, "{query}", url.QueryEscape(query))
}

// runTemplateTier scrapes the top-ranked template stores in parallel and
// extracts offers from each result page. A failing store contributes zero
// entries and never aborts the others; the tier as a whole is failed only
// when every store errored.
func (e *Engine) runTemplateTier(ctx context.Context, query string, candidates []models.StoreCandidate) ([]models.VendorPriceEntry, bool) {
	if len(candidates) > e.config.MaxTemplateStores {
		candidates = candidates[:e.config.MaxTemplateStores]
	}

	type storeOutcome struct {
		store   models.StoreCandidate
		entries []models.VendorPriceEntry
		err     error
	}

	outcomes := make([]storeOutcome, len(candidates))
	sem := make(chan struct{}, e.config.StoreConcurrency)
	var wg sync.WaitGroup

	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c models.StoreCandidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcomes[i].store = c
			outcomes[i].entries, outcomes[i].err = e.scrapeStore(ctx, query, c)
		}(i, c)
	}
	wg.Wait()

	var entries []models.VendorPriceEntry
	failedStores := 0
	for _, o := range outcomes {
		if o.err != nil {
			failedStores++
			e.logger.Warn().Err(o.err).
				Str("store", o.store.Name).
				Str("domain", o.store.Domain).
				Msg("Template store failed, continuing with remaining stores")
			continue
		}
		entries = append(entries, o.entries...)
	}

	tierFailed := len(candidates) > 0 && failedStores == len(candidates)
	return entries, tierFailed
}

// scrapeStore fetches one store's templated search page and extracts offers
func (e *Engine) scrapeStore(ctx context.Context, query string, c models.StoreCandidate) ([]models.VendorPriceEntry, error) {
	searchURL := BuildSearchURL(c.SearchTemplate, query)
	if searchURL == "" {
		return nil, nil
	}

	result, err := e.scraper.ScrapeURL(ctx, searchURL, interfaces.ScrapeOptions{})
	if err != nil {
		return nil, err
	}

	entries, err := extractOffers(ctx, e.provider, query, c.Name, result.Markdown)
	if err != nil {
		return nil, err
	}

	// Template scrapes are store-scoped; an offer with no usable vendor
	// name belongs to the store being scraped
	for i := range entries {
		if strings.TrimSpace(entries[i].Vendor) == "" {
			entries[i].Vendor = c.Name
		}
	}
	return entries, nil
}
