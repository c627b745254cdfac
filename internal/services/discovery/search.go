// -----------------------------------------------------------------------
// Tier 2 - web search across result pages
// -----------------------------------------------------------------------

package discovery

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
)

const (
	searchEndpoint   = "https://html.duckduckgo.com/html/"
	maxSearchResults = 5
)

// runSearchTier queries a web search engine for the product, scrapes the
// top result pages and extracts offers from each. Individual result pages
// fail independently; the tier errors only when the search page itself
// could not be fetched or parsed.
func (e *Engine) runSearchTier(ctx context.Context, query string) ([]models.VendorPriceEntry, error) {
	searchURL := fmt.Sprintf("%s?q=%s", searchEndpoint, url.QueryEscape(query+" price buy"))

	page, err := e.scraper.ScrapeURL(ctx, searchURL, interfaces.ScrapeOptions{})
	if err != nil {
		return nil, fmt.Errorf("search tier: %w", err)
	}

	links := extractResultLinks(page.HTML, maxSearchResults)
	if len(links) == 0 {
		return nil, fmt.Errorf("search tier: no usable results for %q", query)
	}

	items := e.scraper.ScrapeBatch(ctx, links, interfaces.ScrapeOptions{})

	var entries []models.VendorPriceEntry
	for _, item := range items {
		if item.Err != nil {
			e.logger.Warn().Err(item.Err).Str("url", item.URL).Msg("Search result scrape failed, continuing")
			continue
		}

		vendor := models.NormalizeDomain(item.URL)
		found, err := extractOffers(ctx, e.provider, query, vendor, item.Result.Markdown)
		if err != nil {
			e.logger.Warn().Err(err).Str("url", item.URL).Msg("Offer extraction failed, continuing")
			continue
		}
		for i := range found {
			if found[i].ProductURL == "" {
				found[i].ProductURL = item.URL
			}
		}
		if len(found) > 0 {
			e.learnRetailer(ctx, found[0].Vendor, item.URL)
		}
		entries = append(entries, found...)
	}
	return entries, nil
}

// extractResultLinks pulls outbound result URLs from a DuckDuckGo HTML
// results page, skipping ads and same-engine links
func extractResultLinks(html string, limit int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a.result__a, a.result__url").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		resolved := resolveResultURL(href)
		if resolved == "" || seen[resolved] {
			return true
		}
		seen[resolved] = true
		links = append(links, resolved)
		return len(links) < limit
	})
	return links
}

// resolveResultURL unwraps DuckDuckGo's redirect links (/l/?uddg=...) and
// drops anything that is not a plain http(s) URL
func resolveResultURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	if uddg := u.Query().Get("uddg"); uddg != "" {
		inner, err := url.QueryUnescape(uddg)
		if err != nil {
			return ""
		}
		u, err = url.Parse(inner)
		if err != nil {
			return ""
		}
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	if strings.Contains(u.Host, "duckduckgo.com") {
		return ""
	}
	return u.String()
}
