// -----------------------------------------------------------------------
// Tier 3 - AI agent with iterative browsing
// -----------------------------------------------------------------------

package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
	"github.com/ternarybob/merx/internal/services/aggregator"
	"github.com/ternarybob/merx/internal/services/scraper"
)

// The agent gets a fixed step budget; each step is one page fetch
const maxAgentSteps = 6

// agentAction is the structured reply the agent must emit each step
type agentAction struct {
	Action string           `json:"action"` // "visit" or "done"
	URL    string           `json:"url,omitempty"`
	Offers []extractedOffer `json:"offers,omitempty"`
}

// runAgentTier drives a provider through an iterative browse loop: the
// model names a URL to visit, receives the scraped content and repeats
// until it reports its collected offers or exhausts the step budget. This
// tier is the most expensive and only runs on explicit caller opt-in.
func (e *Engine) runAgentTier(ctx context.Context, query string) ([]models.VendorPriceEntry, error) {
	var transcript strings.Builder
	fmt.Fprintf(&transcript, "You are a price research agent. Find current prices for: %s\n\n", query)
	transcript.WriteString("Each turn, respond with ONLY one JSON object:\n")
	transcript.WriteString(`  {"action": "visit", "url": "https://..."} to fetch a page, or` + "\n")
	transcript.WriteString(`  {"action": "done", "offers": [{"vendor": "...", "price": 12.99, "stock": "in_stock|out_of_stock|unknown", "product_url": "https://..."}]}` + "\n")
	transcript.WriteString("\nRules:\n")
	transcript.WriteString("- Visit retailer search or product pages likely to show prices.\n")
	transcript.WriteString("- price is numeric with no currency symbol; omit offers without a visible price.\n")
	fmt.Fprintf(&transcript, "- You have at most %d page visits.\n", maxAgentSteps)

	var collected []models.VendorPriceEntry
	for step := 0; step < maxAgentSteps; step++ {
		if err := ctx.Err(); err != nil {
			return collected, err
		}

		reply, err := e.provider.Complete(ctx, transcript.String())
		if err != nil {
			return collected, fmt.Errorf("agent tier step %d: %w", step+1, err)
		}

		action, err := parseAgentAction(reply)
		if err != nil {
			return collected, fmt.Errorf("agent tier step %d: %w", step+1, err)
		}

		if action.Action == "done" {
			for _, o := range action.Offers {
				if o.Price <= 0 || strings.TrimSpace(o.Vendor) == "" {
					continue
				}
				collected = append(collected, models.VendorPriceEntry{
					Vendor:     o.Vendor,
					Price:      o.Price,
					Stock:      parseStock(o.Stock),
					ProductURL: o.ProductURL,
				})
				e.learnRetailer(ctx, o.Vendor, o.ProductURL)
			}
			return collected, nil
		}

		page, err := e.scraper.ScrapeURL(ctx, action.URL, interfaces.ScrapeOptions{})
		if err != nil {
			// Tell the agent the fetch failed and let it pick another page
			fmt.Fprintf(&transcript, "\n\nassistant: %s\n\nuser: Fetching %s failed: %s. Choose a different page or finish.\n",
				strings.TrimSpace(reply), action.URL, common.UserMessage(err))
			continue
		}

		content := truncateContent(page.Markdown)
		fmt.Fprintf(&transcript, "\n\nassistant: %s\n\nuser: Content of %s:\n%s\n",
			strings.TrimSpace(reply), action.URL, content)
	}

	return collected, nil
}

func parseAgentAction(reply string) (*agentAction, error) {
	payload := aggregator.ExtractJSON(reply)
	if payload == "" {
		return nil, fmt.Errorf("%w: agent reply carried no JSON action", common.ErrProviderRejected)
	}

	var action agentAction
	if err := json.Unmarshal([]byte(payload), &action); err != nil {
		return nil, fmt.Errorf("%w: malformed agent action: %v", common.ErrProviderRejected, err)
	}

	switch action.Action {
	case "done":
		return &action, nil
	case "visit":
		if err := validateAgentURL(action.URL); err != nil {
			return nil, err
		}
		return &action, nil
	default:
		return nil, fmt.Errorf("%w: unknown agent action %q", common.ErrProviderRejected, action.Action)
	}
}

func validateAgentURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: agent visit action carried no url", common.ErrProviderRejected)
	}
	return scraper.ValidateScrapeURL(raw)
}
