// -----------------------------------------------------------------------
// Stores and per-user store preferences
// -----------------------------------------------------------------------

package models

import (
	"strings"
	"time"
)

// FavoriteBoost is the fixed priority increment that makes user-favorited
// stores always outrank non-favorites regardless of explicit priority
const FavoriteBoost = 1000

// Store is a known retailer that discovery can query
type Store struct {
	ID     string `json:"id" badgerhold:"key"`
	Name   string `json:"name"`
	Domain string `json:"domain"` // normalized, lowercase, no scheme or www

	// SearchTemplate builds a deterministic search URL; "{query}" is
	// replaced with the URL-escaped product query. Empty means the store
	// has no template and is skipped by the template tier.
	SearchTemplate string `json:"search_template,omitempty"`

	DefaultPriority int  `json:"default_priority"`
	IsLocal         bool `json:"is_local"`
	Active          bool `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTemplate reports whether the store supports the template tier
func (s Store) HasTemplate() bool {
	return s.SearchTemplate != ""
}

// NormalizeDomain lowercases a domain and strips scheme, www and trailing
// slashes so learned stores are keyed consistently
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if idx := strings.IndexAny(d, "/?#"); idx >= 0 {
		d = d[:idx]
	}
	return d
}

// UserStorePreference holds one user's settings for one store
type UserStorePreference struct {
	Key      string `json:"key" badgerhold:"key"` // userID + "|" + storeID
	UserID   string `json:"user_id"`
	StoreID  string `json:"store_id"`
	Priority *int   `json:"priority,omitempty"` // nil means use the store default
	Enabled  bool   `json:"enabled"`
	Favorite bool   `json:"favorite"`
}

// PreferenceKey builds the storage key for a (user, store) pair
func PreferenceKey(userID, storeID string) string {
	return userID + "|" + storeID
}

// StoreCandidate is a ranked store as returned by the registry.
// Callers only read the ordered sequence; ranking is owned by the registry.
type StoreCandidate struct {
	StoreID        string `json:"store_id"`
	Name           string `json:"name"`
	Domain         string `json:"domain"`
	SearchTemplate string `json:"search_template,omitempty"`
	Priority       int    `json:"priority"` // effective: favorite boost + explicit-or-default
	HasTemplate    bool   `json:"has_template"`
	IsLocal        bool   `json:"is_local"`
}
