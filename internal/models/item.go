package models

import (
	"time"
)

// TrackedItem is a shopping-list item whose price is tracked. The web
// layer owns list membership and user settings; the core only reads the
// fields that drive discovery and refresh.
type TrackedItem struct {
	ID     string `json:"id" badgerhold:"key"`
	UserID string `json:"user_id"`
	ListID string `json:"list_id,omitempty"`

	// Query is the product description used for price discovery
	Query string `json:"query"`

	ShopLocal bool `json:"shop_local"`
	Purchased bool `json:"purchased"`

	// DiscoveryEnabled mirrors the owning user's discovery availability;
	// the scheduler skips items where it is false
	DiscoveryEnabled bool `json:"discovery_enabled"`

	// Headline price: the lowest current in-stock price across vendors
	HeadlinePrice  float64 `json:"headline_price,omitempty"`
	HeadlineVendor string  `json:"headline_vendor,omitempty"`

	LastRefreshedAt *time.Time `json:"last_refreshed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
