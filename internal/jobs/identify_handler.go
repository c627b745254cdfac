// -----------------------------------------------------------------------
// identify_product job handler
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/models"
	"github.com/ternarybob/merx/internal/services/aggregator"
)

const identifySchema = `{
  "product_name": "specific product name",
  "brand": "brand if identifiable",
  "category": "product category",
  "confidence": 0.0
}`

// IdentifyHandler resolves a photo or free-text description into a
// concrete product by fanning the request out across all AI providers
type IdentifyHandler struct {
	aggregator *aggregator.Aggregator
}

// NewIdentifyHandler creates the identify_product handler
func NewIdentifyHandler(agg *aggregator.Aggregator) *IdentifyHandler {
	return &IdentifyHandler{aggregator: agg}
}

func (h *IdentifyHandler) Type() models.JobType {
	return models.JobTypeIdentifyProduct
}

func (h *IdentifyHandler) Execute(ctx context.Context, jc *JobContext) (interface{}, error) {
	var input models.IdentifyProductInput
	if err := jc.Job().DecodeInput(&input); err != nil {
		return nil, err
	}
	if len(input.ImageData) == 0 && strings.TrimSpace(input.Description) == "" {
		return nil, fmt.Errorf("%w: identify_product needs an image or a description", common.ErrInvalidInput)
	}

	if err := jc.Checkpoint(ctx); err != nil {
		return nil, err
	}
	jc.ReportProgress(ctx, 10, fmt.Sprintf("Identifying product across %d providers", len(h.aggregator.ProviderIDs())))

	prompt := buildIdentifyPrompt(input.Description)

	var result models.AggregatedResult
	if len(input.ImageData) > 0 {
		result = h.aggregator.AnalyzeImage(ctx, input.ImageData, input.MimeType, prompt)
	} else {
		result = h.aggregator.Complete(ctx, prompt)
	}
	if result.Err != nil {
		return nil, result.Err
	}

	if err := jc.Checkpoint(ctx); err != nil {
		return nil, err
	}
	jc.ReportProgress(ctx, 80, fmt.Sprintf("Merged responses from %s", strings.Join(result.Contributing, ", ")))

	output, err := parseIdentifyReply(result.Merged)
	if err != nil {
		return nil, err
	}
	output.Contributing = result.Contributing
	return output, nil
}

func buildIdentifyPrompt(description string) string {
	var b strings.Builder
	b.WriteString("Identify the specific retail product shown or described.\n")
	if description != "" {
		fmt.Fprintf(&b, "\nDescription: %s\n", description)
	}
	b.WriteString("\nRespond with ONLY a JSON object in exactly this shape:\n")
	b.WriteString(identifySchema)
	b.WriteString("\n\nconfidence is 0.0-1.0. Use the most specific product name the evidence supports.")
	return b.String()
}

func parseIdentifyReply(merged string) (*models.IdentifyProductOutput, error) {
	payload := aggregator.ExtractJSON(merged)
	if payload == "" {
		return nil, fmt.Errorf("%w: identification reply carried no JSON", common.ErrProviderRejected)
	}
	var output models.IdentifyProductOutput
	if err := json.Unmarshal([]byte(payload), &output); err != nil {
		return nil, fmt.Errorf("%w: malformed identification reply: %v", common.ErrProviderRejected, err)
	}
	if strings.TrimSpace(output.ProductName) == "" {
		return nil, fmt.Errorf("%w: identification reply named no product", common.ErrProviderRejected)
	}
	return &output, nil
}
