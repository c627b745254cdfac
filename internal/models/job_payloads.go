// -----------------------------------------------------------------------
// Typed job input/output payloads, one pair per job type
// -----------------------------------------------------------------------

package models

// IdentifyProductInput is the input for identify_product jobs
type IdentifyProductInput struct {
	// ImageData is the raw image to analyze, base64-handled by JSON encoding
	ImageData []byte `json:"image_data,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`

	// Description is a free-text alternative to an image
	Description string `json:"description,omitempty"`
}

// IdentifyProductOutput is the output of identify_product jobs
type IdentifyProductOutput struct {
	ProductName  string   `json:"product_name"`
	Brand        string   `json:"brand,omitempty"`
	Category     string   `json:"category,omitempty"`
	Confidence   float64  `json:"confidence"`
	Contributing []string `json:"contributing_providers"`
}

// DiscoverPricesInput is the input for discover_prices jobs
type DiscoverPricesInput struct {
	ItemID string `json:"item_id"`
	Query  string `json:"query"`

	// ShopLocal restricts discovery to local-flagged stores; with zero
	// local candidates the job completes with zero entries rather than
	// silently widening the search
	ShopLocal bool `json:"shop_local"`

	// IncludeAgent opts in to the expensive autonomous agent tier
	IncludeAgent bool `json:"include_agent"`
}

// DiscoverPricesOutput is the output of discover_prices and refresh_prices jobs
type DiscoverPricesOutput struct {
	VendorCount    int      `json:"vendor_count"`
	LowestPrice    float64  `json:"lowest_price,omitempty"`
	LowestVendor   string   `json:"lowest_vendor,omitempty"`
	TiersAttempted []string `json:"tiers_attempted"`
	AgentAvailable bool     `json:"agent_available"`
	LocalOnly      bool     `json:"local_only,omitempty"`
}

// RefreshPricesInput is the input for refresh_prices jobs
type RefreshPricesInput struct {
	ItemID    string `json:"item_id"`
	Query     string `json:"query"`
	ShopLocal bool   `json:"shop_local"`
}

// TestConnectionInput is the input for test_connection jobs
type TestConnectionInput struct {
	// Target selects what to probe: "providers", "scraper" or "all"
	Target string `json:"target"`
}

// TestConnectionOutput reports per-backend health
type TestConnectionOutput struct {
	Results map[string]bool `json:"results"`
}
