// -----------------------------------------------------------------------
// AI price extraction from scraped page content
// -----------------------------------------------------------------------

package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
	"github.com/ternarybob/merx/internal/services/aggregator"
)

// Page content beyond this is truncated before prompting; prices sit near
// the top of search and product pages
const maxExtractContent = 12000

const extractSchema = `{
  "offers": [
    {
      "vendor": "retailer name",
      "price": 12.99,
      "stock": "in_stock|out_of_stock|unknown",
      "product_url": "https://..."
    }
  ]
}`

type extractedOffer struct {
	Vendor     string  `json:"vendor"`
	Price      float64 `json:"price"`
	Stock      string  `json:"stock"`
	ProductURL string  `json:"product_url"`
}

type extractedOffers struct {
	Offers []extractedOffer `json:"offers"`
}

// extractOffers asks the provider to pull product offers for the query out
// of scraped page content and parses the structured reply
func extractOffers(ctx context.Context, provider interfaces.AIProvider, query, vendor, content string) ([]models.VendorPriceEntry, error) {
	content = truncateContent(content)

	var b strings.Builder
	b.WriteString("Extract product offers matching the shopping query from the page content below.\n\n")
	fmt.Fprintf(&b, "Shopping query: %s\n", query)
	if vendor != "" {
		fmt.Fprintf(&b, "The page belongs to the retailer %q; use that as the vendor unless the page clearly lists other sellers.\n", vendor)
	}
	b.WriteString("\nRespond with ONLY a JSON object in exactly this shape:\n")
	b.WriteString(extractSchema)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Include only offers for products that match the query.\n")
	b.WriteString("- price is the numeric amount with no currency symbol.\n")
	b.WriteString("- Omit offers where no price is shown.\n")
	b.WriteString("- Use stock \"unknown\" when availability is not stated.\n")
	b.WriteString("- Return {\"offers\": []} when the page has no matching offers.\n")
	b.WriteString("\nPage content:\n")
	b.WriteString(content)

	reply, err := provider.Complete(ctx, b.String())
	if err != nil {
		return nil, err
	}
	return parseOffers(reply)
}

// truncateContent cuts page content to the extraction budget, backing off
// to the previous rune boundary so the provider never receives a split
// UTF-8 sequence
func truncateContent(content string) string {
	if len(content) <= maxExtractContent {
		return content
	}
	cut := maxExtractContent
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

// parseOffers decodes the provider reply against the offer schema,
// dropping entries with no vendor or a non-positive price
func parseOffers(reply string) ([]models.VendorPriceEntry, error) {
	payload := aggregator.ExtractJSON(reply)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON object in extraction reply", common.ErrProviderRejected)
	}

	var parsed extractedOffers
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed extraction reply: %v", common.ErrProviderRejected, err)
	}

	entries := make([]models.VendorPriceEntry, 0, len(parsed.Offers))
	for _, o := range parsed.Offers {
		if o.Price <= 0 || strings.TrimSpace(o.Vendor) == "" {
			continue
		}
		entries = append(entries, models.VendorPriceEntry{
			Vendor:     o.Vendor,
			Price:      o.Price,
			Stock:      parseStock(o.Stock),
			ProductURL: o.ProductURL,
		})
	}
	return entries, nil
}

func parseStock(s string) models.StockStatus {
	switch models.StockStatus(strings.ToLower(strings.TrimSpace(s))) {
	case models.StockInStock:
		return models.StockInStock
	case models.StockOutOfStock:
		return models.StockOutOfStock
	default:
		return models.StockUnknown
	}
}
