// -----------------------------------------------------------------------
// Price records, discovery results and tiers
// -----------------------------------------------------------------------

package models

import (
	"time"
)

// DiscoveryTier is one discovery strategy, ordered by ascending cost
type DiscoveryTier string

const (
	TierTemplate DiscoveryTier = "template"
	TierSearch   DiscoveryTier = "search"
	TierAgent    DiscoveryTier = "agent"
)

// CostWeight returns the approximate relative cost of a tier
func (t DiscoveryTier) CostWeight() int {
	switch t {
	case TierTemplate:
		return 1
	case TierSearch:
		return 5
	case TierAgent:
		return 25
	default:
		return 0
	}
}

// StockStatus describes vendor stock for a price entry
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockUnknown    StockStatus = "unknown"
)

// VendorPriceEntry is one (vendor, price) observation from a discovery tier
type VendorPriceEntry struct {
	Vendor     string      `json:"vendor"`
	Price      float64     `json:"price"`
	Stock      StockStatus `json:"stock"`
	ProductURL string      `json:"product_url,omitempty"`
}

// InStock reports whether the entry should be eligible as a headline price
func (e VendorPriceEntry) InStock() bool {
	return e.Stock != StockOutOfStock
}

// DiscoveryResult is the outcome of one tiered discovery run.
// A result with Err set never also carries entries.
type DiscoveryResult struct {
	SourceTiers []DiscoveryTier    `json:"source_tiers"`
	Entries     []VendorPriceEntry `json:"entries"`

	// AgentAvailable reports whether the agent tier could still be invoked
	// by an explicit caller opt-in; it is never invoked automatically
	AgentAvailable bool `json:"agent_available"`

	// LocalOnly marks a run restricted to local stores; zero entries with
	// LocalOnly set is an explicit outcome, not a silent fallback
	LocalOnly bool `json:"local_only,omitempty"`

	Err error `json:"-"`
}

// VendorPriceRecord tracks price state per (item, normalized vendor).
// Invariant after every update: LowestPrice <= CurrentPrice <= HighestPrice.
type VendorPriceRecord struct {
	Key           string      `json:"key" badgerhold:"key"` // itemID + "|" + vendor
	ItemID        string      `json:"item_id"`
	Vendor        string      `json:"vendor"`
	CurrentPrice  float64     `json:"current_price"`
	PreviousPrice float64     `json:"previous_price"`
	LowestPrice   float64     `json:"lowest_price"`
	HighestPrice  float64     `json:"highest_price"`
	OnSale        bool        `json:"on_sale"`
	SalePercent   float64     `json:"sale_percent_off"`
	Stock         StockStatus `json:"stock"`
	ProductURL    string      `json:"product_url,omitempty"`
	LastCheckedAt time.Time   `json:"last_checked_at"`
}

// VendorRecordKey builds the storage key for a (item, vendor) pair
func VendorRecordKey(itemID, vendor string) string {
	return itemID + "|" + vendor
}

// NewVendorPriceRecord seeds a record with lowest = highest = current = price
func NewVendorPriceRecord(itemID, vendor string, entry VendorPriceEntry) *VendorPriceRecord {
	r := &VendorPriceRecord{
		Key:           VendorRecordKey(itemID, vendor),
		ItemID:        itemID,
		Vendor:        vendor,
		CurrentPrice:  entry.Price,
		PreviousPrice: entry.Price,
		LowestPrice:   entry.Price,
		HighestPrice:  entry.Price,
		Stock:         entry.Stock,
		ProductURL:    entry.ProductURL,
		LastCheckedAt: time.Now(),
	}
	r.recomputeSale()
	return r
}

// UpdatePrice applies a new observation: shifts current to previous,
// clamps lowest/highest and recomputes the sale state
func (r *VendorPriceRecord) UpdatePrice(entry VendorPriceEntry) {
	r.PreviousPrice = r.CurrentPrice
	r.CurrentPrice = entry.Price
	if entry.Price < r.LowestPrice {
		r.LowestPrice = entry.Price
	}
	if entry.Price > r.HighestPrice {
		r.HighestPrice = entry.Price
	}
	r.Stock = entry.Stock
	if entry.ProductURL != "" {
		r.ProductURL = entry.ProductURL
	}
	r.LastCheckedAt = time.Now()
	r.recomputeSale()
}

// recomputeSale derives OnSale and SalePercent. A record is on sale iff the
// current price is strictly below the highest price ever seen.
func (r *VendorPriceRecord) recomputeSale() {
	r.OnSale = r.CurrentPrice < r.HighestPrice
	if r.OnSale && r.HighestPrice > 0 {
		r.SalePercent = (r.HighestPrice - r.CurrentPrice) / r.HighestPrice * 100
	} else {
		r.SalePercent = 0
	}
}

// PriceSnapshot is one append-only price-history observation for an item
type PriceSnapshot struct {
	ID          string    `json:"id" badgerhold:"key"`
	ItemID      string    `json:"item_id"`
	Vendor      string    `json:"vendor"`
	Price       float64   `json:"price"`
	VendorCount int       `json:"vendor_count"`
	RecordedAt  time.Time `json:"recorded_at"`
}
