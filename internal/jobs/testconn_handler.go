// -----------------------------------------------------------------------
// test_connection job handler
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"

	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
)

// TestConnectionHandler probes configured AI providers and the scrape
// service. Probes never error the job; each backend reports healthy or not.
type TestConnectionHandler struct {
	providers []interfaces.AIProvider
	scraper   interfaces.ScrapeService
}

// NewTestConnectionHandler creates the test_connection handler
func NewTestConnectionHandler(providers []interfaces.AIProvider, scrapeService interfaces.ScrapeService) *TestConnectionHandler {
	return &TestConnectionHandler{providers: providers, scraper: scrapeService}
}

func (h *TestConnectionHandler) Type() models.JobType {
	return models.JobTypeTestConnection
}

func (h *TestConnectionHandler) Execute(ctx context.Context, jc *JobContext) (interface{}, error) {
	var input models.TestConnectionInput
	if err := jc.Job().DecodeInput(&input); err != nil {
		return nil, err
	}

	probeProviders := input.Target == "providers" || input.Target == "all" || input.Target == ""
	probeScraper := input.Target == "scraper" || input.Target == "all" || input.Target == ""
	if !probeProviders && !probeScraper {
		return nil, fmt.Errorf("%w: unknown test target %q", common.ErrInvalidInput, input.Target)
	}

	results := make(map[string]bool)
	total := len(h.providers) + 1

	if probeProviders {
		for i, p := range h.providers {
			if err := jc.Checkpoint(ctx); err != nil {
				return nil, err
			}
			healthy := p.HealthCheck(ctx)
			results[p.ID()] = healthy
			jc.ReportProgress(ctx, (i+1)*90/total, fmt.Sprintf("Provider %s: %s", p.ID(), healthLabel(healthy)))
		}
	}

	if probeScraper {
		if err := jc.Checkpoint(ctx); err != nil {
			return nil, err
		}
		healthy := h.scraper.HealthCheck(ctx)
		results["scraper"] = healthy
		jc.ReportProgress(ctx, 95, fmt.Sprintf("Scraper: %s", healthLabel(healthy)))
	}

	return &models.TestConnectionOutput{Results: results}, nil
}

func healthLabel(healthy bool) string {
	if healthy {
		return "healthy"
	}
	return "unreachable"
}
