package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
)

func newTestClient(t *testing.T, handler http.Handler) (*SidecarClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	config := &common.ScraperConfig{BaseURL: server.URL, Timeout: "5s", MaxConcurrent: 3}
	return NewSidecarClient(config, common.GetLogger()), server
}

func TestValidateScrapeURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://example.com/product", true},
		{"http://example.com", true},
		{"ftp://example.com", false},
		{"file:///etc/passwd", false},
		{"example.com", false}, // no scheme
		{"https://", false},    // no host
		{"", false},
	}
	for _, tt := range tests {
		err := ValidateScrapeURL(tt.url)
		if tt.valid && err != nil {
			t.Errorf("ValidateScrapeURL(%q) unexpected error: %v", tt.url, err)
		}
		if !tt.valid && !errors.Is(err, common.ErrInvalidInput) {
			t.Errorf("ValidateScrapeURL(%q) expected ErrInvalidInput, got %v", tt.url, err)
		}
	}
}

func TestSidecarClient_ScrapeURL(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scrape" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req scrapeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Bad request body: %v", err)
		}
		if req.URL != "https://example.com/p" {
			t.Errorf("Unexpected URL in body: %s", req.URL)
		}
		if req.Timeout <= 0 {
			t.Error("Expected a millisecond timeout in the request")
		}
		json.NewEncoder(w).Encode(scrapeResponse{
			Success:  true,
			Markdown: "# Product",
			HTML:     "<h1>Product</h1>",
			Title:    "Product",
		})
	}))

	result, err := client.ScrapeURL(context.Background(), "https://example.com/p", interfaces.ScrapeOptions{})
	if err != nil {
		t.Fatalf("ScrapeURL failed: %v", err)
	}
	if result.Markdown != "# Product" || result.Title != "Product" {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestSidecarClient_ScrapeURLRejected(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scrapeResponse{Success: false, Error: "blocked by robots"})
	}))

	_, err := client.ScrapeURL(context.Background(), "https://example.com/p", interfaces.ScrapeOptions{})
	if !errors.Is(err, common.ErrProviderRejected) {
		t.Errorf("Expected ErrProviderRejected, got %v", err)
	}
}

func TestSidecarClient_InvalidURLNoNetworkCall(t *testing.T) {
	called := false
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	_, err := client.ScrapeURL(context.Background(), "file:///etc/passwd", interfaces.ScrapeOptions{})
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if called {
		t.Error("Invalid URL must be rejected before any network call")
	}
}

func TestSidecarClient_ScrapeBatch(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/batch" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		var req batchScrapeRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.URLs) != 2 {
			t.Errorf("Expected 2 valid URLs forwarded, got %d", len(req.URLs))
		}
		json.NewEncoder(w).Encode(batchScrapeResponse{Results: []scrapeResponse{
			{Success: true, Markdown: "page one"},
			{Success: false, Error: "timeout"},
		}})
	}))

	items := client.ScrapeBatch(context.Background(), []string{
		"https://a.com",
		"not-a-url",
		"https://b.com",
	}, interfaces.ScrapeOptions{})

	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	if items[0].Err != nil || items[0].Result.Markdown != "page one" {
		t.Errorf("Expected first URL to succeed: %+v", items[0])
	}
	if !errors.Is(items[1].Err, common.ErrInvalidInput) {
		t.Errorf("Expected local rejection for invalid URL, got %v", items[1].Err)
	}
	if !errors.Is(items[2].Err, common.ErrProviderRejected) {
		t.Errorf("Expected per-URL failure, got %v", items[2].Err)
	}
}

func TestSidecarClient_BatchTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // sidecar down
	config := &common.ScraperConfig{BaseURL: server.URL, Timeout: "1s"}
	client := NewSidecarClient(config, common.GetLogger())

	items := client.ScrapeBatch(context.Background(), []string{"https://a.com", "https://b.com"}, interfaces.ScrapeOptions{})
	for _, item := range items {
		if !errors.Is(item.Err, common.ErrProviderUnreachable) {
			t.Errorf("Expected ErrProviderUnreachable for %s, got %v", item.URL, item.Err)
		}
	}
}

func TestSidecarClient_HealthCheck(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	if !client.HealthCheck(context.Background()) {
		t.Error("Expected healthy sidecar")
	}

	down := NewSidecarClient(&common.ScraperConfig{BaseURL: "http://127.0.0.1:1", Timeout: "1s"}, common.GetLogger())
	if down.HealthCheck(context.Background()) {
		t.Error("Expected unreachable sidecar to report unhealthy")
	}
}
