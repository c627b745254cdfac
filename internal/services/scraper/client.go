// -----------------------------------------------------------------------
// Scrape sidecar client - HTTP client for the local crawl4ai service
// -----------------------------------------------------------------------

package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
)

// scrapeRequest is the sidecar's single-URL request body
type scrapeRequest struct {
	URL     string `json:"url"`
	WaitFor string `json:"wait_for,omitempty"` // CSS selector to wait for
	Timeout int    `json:"timeout"`            // milliseconds
}

// scrapeResponse is the sidecar's per-URL result
type scrapeResponse struct {
	Success  bool   `json:"success"`
	Markdown string `json:"markdown,omitempty"`
	HTML     string `json:"html,omitempty"`
	Title    string `json:"title,omitempty"`
	Error    string `json:"error,omitempty"`
}

// batchScrapeRequest is the sidecar's batch request body
type batchScrapeRequest struct {
	URLs    []string `json:"urls"`
	Timeout int      `json:"timeout"`
}

// batchScrapeResponse wraps the per-URL results
type batchScrapeResponse struct {
	Results []scrapeResponse `json:"results"`
}

// SidecarClient implements the ScrapeService interface over the local
// scraping sidecar's HTTP API
type SidecarClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     arbor.ILogger
}

// NewSidecarClient creates a scrape client for the sidecar service
func NewSidecarClient(config *common.ScraperConfig, logger arbor.ILogger) *SidecarClient {
	timeout := config.TimeoutDuration()
	return &SidecarClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		// The HTTP client timeout sits above the per-request scrape
		// timeout so the sidecar can report its own timeout error first
		httpClient: &http.Client{Timeout: timeout + 10*time.Second},
		timeout:    timeout,
		logger:     logger,
	}
}

// ValidateScrapeURL rejects URLs before any network call: the scheme must
// be http or https and a host must be present
func ValidateScrapeURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid URL %q: %v", common.ErrInvalidInput, rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: URL must use http or https scheme: %q", common.ErrInvalidInput, rawURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: URL has no host: %q", common.ErrInvalidInput, rawURL)
	}
	return nil
}

// ScrapeURL scrapes a single URL via the sidecar
func (c *SidecarClient) ScrapeURL(ctx context.Context, rawURL string, opts interfaces.ScrapeOptions) (*interfaces.ScrapeResult, error) {
	if err := ValidateScrapeURL(rawURL); err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	reqBody := scrapeRequest{
		URL:     rawURL,
		WaitFor: opts.WaitFor,
		Timeout: int(timeout.Milliseconds()),
	}

	var resp scrapeResponse
	if err := c.post(ctx, "/scrape", reqBody, &resp); err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("%w: scrape failed for %s: %s", common.ErrProviderRejected, rawURL, resp.Error)
	}

	return &interfaces.ScrapeResult{
		Markdown: resp.Markdown,
		HTML:     resp.HTML,
		Title:    resp.Title,
	}, nil
}

// ScrapeBatch scrapes multiple URLs via the sidecar's batch endpoint.
// Each element carries its own success or error; the batch never fails as
// a whole. Invalid URLs are rejected locally without a network call.
func (c *SidecarClient) ScrapeBatch(ctx context.Context, urls []string, opts interfaces.ScrapeOptions) []interfaces.BatchScrapeItem {
	items := make([]interfaces.BatchScrapeItem, len(urls))

	valid := make([]string, 0, len(urls))
	validIdx := make([]int, 0, len(urls))
	for i, u := range urls {
		items[i].URL = u
		if err := ValidateScrapeURL(u); err != nil {
			items[i].Err = err
			continue
		}
		valid = append(valid, u)
		validIdx = append(validIdx, i)
	}
	if len(valid) == 0 {
		return items
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	reqBody := batchScrapeRequest{
		URLs:    valid,
		Timeout: int(timeout.Milliseconds()),
	}

	var resp batchScrapeResponse
	if err := c.post(ctx, "/batch", reqBody, &resp); err != nil {
		// Transport failure: every pending element carries the same error
		for _, i := range validIdx {
			items[i].Err = err
		}
		return items
	}

	for n, i := range validIdx {
		if n >= len(resp.Results) {
			items[i].Err = fmt.Errorf("%w: batch response missing result for %s", common.ErrProviderRejected, items[i].URL)
			continue
		}
		r := resp.Results[n]
		if !r.Success {
			items[i].Err = fmt.Errorf("%w: scrape failed for %s: %s", common.ErrProviderRejected, items[i].URL, r.Error)
			continue
		}
		items[i].Result = &interfaces.ScrapeResult{
			Markdown: r.Markdown,
			HTML:     r.HTML,
			Title:    r.Title,
		}
	}

	return items
}

// HealthCheck probes the sidecar's health endpoint
func (c *SidecarClient) HealthCheck(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Scrape sidecar health check failed")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// post sends one JSON request to the sidecar
func (c *SidecarClient) post(ctx context.Context, path string, reqBody, respBody interface{}) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return common.WrapProviderError("scraper", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return common.WrapProviderError("scraper", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: scraper: status %d: %s", common.ErrProviderRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("%w: scraper: invalid response: %v", common.ErrProviderRejected, err)
	}
	return nil
}
