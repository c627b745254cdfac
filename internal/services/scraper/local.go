// -----------------------------------------------------------------------
// Local fallback scraper - headless Chrome used when the sidecar is down
// -----------------------------------------------------------------------

package scraper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
)

const localUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// LocalScraper implements the ScrapeService interface with an in-process
// headless Chrome instance. It trades the sidecar's isolation for
// availability when the sidecar is unreachable.
type LocalScraper struct {
	config    *common.ScraperConfig
	logger    arbor.ILogger
	converter *md.Converter

	// One browser allocation at a time; template-tier batches bound their
	// own concurrency above this layer
	mu sync.Mutex
}

// NewLocalScraper creates the fallback scraper
func NewLocalScraper(config *common.ScraperConfig, logger arbor.ILogger) *LocalScraper {
	return &LocalScraper{
		config:    config,
		logger:    logger,
		converter: md.NewConverter("", true, nil),
	}
}

// ScrapeURL fetches one page with headless Chrome and converts it to
// markdown
func (s *LocalScraper) ScrapeURL(ctx context.Context, rawURL string, opts interfaces.ScrapeOptions) (*interfaces.ScrapeResult, error) {
	if err := ValidateScrapeURL(rawURL); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.config.TimeoutDuration()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, buildAllocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	runCtx, runCancel := context.WithTimeout(browserCtx, timeout)
	defer runCancel()

	actions := []chromedp.Action{
		emulation.SetUserAgentOverride(localUserAgent),
		chromedp.Navigate(rawURL),
	}
	if opts.WaitFor != "" {
		actions = append(actions, chromedp.WaitVisible(opts.WaitFor, chromedp.ByQuery))
	}

	var html, title string
	actions = append(actions,
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	startTime := time.Now()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, common.WrapProviderError("local-scraper", err)
	}

	markdown, err := s.converter.ConvertString(html)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", rawURL).Msg("Markdown conversion failed, returning raw HTML only")
		markdown = ""
	}

	if title == "" {
		title = titleFromHTML(html)
	}

	s.logger.Debug().
		Str("url", rawURL).
		Int("html_length", len(html)).
		Str("duration", time.Since(startTime).String()).
		Msg("Local scrape completed")

	return &interfaces.ScrapeResult{
		Markdown: markdown,
		HTML:     html,
		Title:    title,
	}, nil
}

// ScrapeBatch fetches URLs sequentially; each element carries its own
// success or error
func (s *LocalScraper) ScrapeBatch(ctx context.Context, urls []string, opts interfaces.ScrapeOptions) []interfaces.BatchScrapeItem {
	items := make([]interfaces.BatchScrapeItem, len(urls))
	for i, u := range urls {
		items[i].URL = u
		result, err := s.ScrapeURL(ctx, u, opts)
		if err != nil {
			items[i].Err = err
			continue
		}
		items[i].Result = result
	}
	return items
}

// HealthCheck verifies a browser can be allocated
func (s *LocalScraper) HealthCheck(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(probeCtx, buildAllocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		s.logger.Warn().Err(err).Msg("Local scraper health check failed")
		return false
	}
	return true
}

// buildAllocatorOptions returns headless Chrome flags for scraping
func buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Headless,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.UserAgent(localUserAgent),
	}
}

// titleFromHTML extracts the page title when CDP returned none
func titleFromHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// FallbackScraper tries the sidecar first and falls back to the local
// headless browser when the sidecar is unreachable
type FallbackScraper struct {
	primary  interfaces.ScrapeService
	fallback interfaces.ScrapeService
	logger   arbor.ILogger
}

// NewFallbackScraper composes the sidecar client with the local scraper
func NewFallbackScraper(primary, fallback interfaces.ScrapeService, logger arbor.ILogger) *FallbackScraper {
	return &FallbackScraper{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (s *FallbackScraper) ScrapeURL(ctx context.Context, rawURL string, opts interfaces.ScrapeOptions) (*interfaces.ScrapeResult, error) {
	result, err := s.primary.ScrapeURL(ctx, rawURL, opts)
	if err == nil {
		return result, nil
	}
	// Only transport-level failures trigger fallback; rejected scrapes and
	// invalid URLs would fail the same way locally
	if !isUnreachable(err) {
		return nil, err
	}

	s.logger.Warn().Err(err).Str("url", rawURL).Msg("Sidecar unreachable, using local scraper")
	return s.fallback.ScrapeURL(ctx, rawURL, opts)
}

func (s *FallbackScraper) ScrapeBatch(ctx context.Context, urls []string, opts interfaces.ScrapeOptions) []interfaces.BatchScrapeItem {
	items := s.primary.ScrapeBatch(ctx, urls, opts)

	allUnreachable := len(items) > 0
	for _, item := range items {
		if item.Err == nil || !isUnreachable(item.Err) {
			allUnreachable = false
			break
		}
	}
	if !allUnreachable {
		return items
	}

	s.logger.Warn().Int("url_count", len(urls)).Msg("Sidecar unreachable, using local scraper for batch")
	return s.fallback.ScrapeBatch(ctx, urls, opts)
}

func (s *FallbackScraper) HealthCheck(ctx context.Context) bool {
	if s.primary.HealthCheck(ctx) {
		return true
	}
	return s.fallback.HealthCheck(ctx)
}

func isUnreachable(err error) bool {
	return err != nil && errors.Is(err, common.ErrProviderUnreachable)
}
