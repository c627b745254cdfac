package interfaces

import (
	"context"
	"time"
)

// ScrapeOptions controls a single page fetch
type ScrapeOptions struct {
	// WaitFor is an optional CSS selector the scraper waits for before
	// capturing the page
	WaitFor string

	// Timeout bounds the fetch; zero means the client default
	Timeout time.Duration
}

// ScrapeResult is the content captured from one URL
type ScrapeResult struct {
	Markdown string
	HTML     string
	Title    string
}

// BatchScrapeItem is one element of a batch scrape. Each element carries
// its own success or error; the batch itself never fails as a whole.
type BatchScrapeItem struct {
	URL    string
	Result *ScrapeResult
	Err    error
}

// ScrapeService is the contract over the scraping backend. URL validation
// (http/https scheme, host present) happens before any network call.
type ScrapeService interface {
	ScrapeURL(ctx context.Context, url string, opts ScrapeOptions) (*ScrapeResult, error)
	ScrapeBatch(ctx context.Context, urls []string, opts ScrapeOptions) []BatchScrapeItem

	// HealthCheck reports backend reachability and never returns an error
	HealthCheck(ctx context.Context) bool
}
