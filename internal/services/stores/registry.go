// -----------------------------------------------------------------------
// Store registry - ranking, learning, vendor suppression
// -----------------------------------------------------------------------

package stores

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
)

// CandidateFilter narrows the ranked store list for a discovery tier
type CandidateFilter struct {
	// TemplateOnly keeps only stores with a search URL template
	TemplateOnly bool

	// LocalOnly keeps only stores flagged as local retailers
	LocalOnly bool
}

// Registry ranks known stores per user and learns new ones as discovery
// encounters them
type Registry struct {
	directory interfaces.StoreDirectory
	logger    arbor.ILogger
}

// NewRegistry creates the store registry
func NewRegistry(directory interfaces.StoreDirectory, logger arbor.ILogger) *Registry {
	return &Registry{
		directory: directory,
		logger:    logger,
	}
}

// RankedCandidates returns stores for a user ordered by effective priority
// descending, ties broken by store ID ascending. Effective priority is the
// user's explicit priority (or the store default when unset) plus the
// favorite boost. Stores the user disabled are excluded entirely.
func (r *Registry) RankedCandidates(ctx context.Context, userID string, filter CandidateFilter) ([]models.StoreCandidate, error) {
	storeList, err := r.directory.ListActiveStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}

	prefs, err := r.directory.UserPreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load store preferences: %w", err)
	}
	prefByStore := make(map[string]*models.UserStorePreference, len(prefs))
	for _, p := range prefs {
		prefByStore[p.StoreID] = p
	}

	candidates := make([]models.StoreCandidate, 0, len(storeList))
	for _, s := range storeList {
		pref := prefByStore[s.ID]
		if pref != nil && !pref.Enabled {
			continue
		}
		if filter.TemplateOnly && !s.HasTemplate() {
			continue
		}
		if filter.LocalOnly && !s.IsLocal {
			continue
		}

		priority := s.DefaultPriority
		if pref != nil && pref.Priority != nil {
			priority = *pref.Priority
		}
		if pref != nil && pref.Favorite {
			priority += models.FavoriteBoost
		}

		candidates = append(candidates, models.StoreCandidate{
			StoreID:        s.ID,
			Name:           s.Name,
			Domain:         s.Domain,
			SearchTemplate: s.SearchTemplate,
			Priority:       priority,
			HasTemplate:    s.HasTemplate(),
			IsLocal:        s.IsLocal,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].StoreID < candidates[j].StoreID
	})

	return candidates, nil
}

// LearnStore records a retailer seen during discovery. Learning is
// idempotent: the same domain never produces a second store, and an
// existing store's name is only filled in when it was empty.
func (r *Registry) LearnStore(ctx context.Context, name, domain string, isLocal bool) (*models.Store, error) {
	normalized := models.NormalizeDomain(domain)
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty store domain", common.ErrInvalidInput)
	}

	now := time.Now()
	store := &models.Store{
		ID:        common.NewStoreID(),
		Name:      name,
		Domain:    normalized,
		IsLocal:   isLocal,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	saved, err := r.directory.UpsertStore(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("learn store %s: %w", normalized, err)
	}

	r.logger.Debug().Str("domain", normalized).Str("store_id", saved.ID).Msg("Store learned")
	return saved, nil
}

// SuppressedVendors returns the vendor names a user has effectively opted
// out of by disabling the corresponding store
func (r *Registry) SuppressedVendors(ctx context.Context, userID string) ([]string, error) {
	storeList, err := r.directory.ListActiveStores(ctx)
	if err != nil {
		return nil, err
	}
	prefs, err := r.directory.UserPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	storeByID := make(map[string]*models.Store, len(storeList))
	for _, s := range storeList {
		storeByID[s.ID] = s
	}

	var suppressed []string
	for _, p := range prefs {
		if p.Enabled {
			continue
		}
		if s := storeByID[p.StoreID]; s != nil {
			suppressed = append(suppressed, s.Name)
		}
	}
	return suppressed, nil
}

// IsSuppressed matches a discovered vendor name against a suppression
// list. Matching is case-insensitive and bidirectional on substrings, so
// a disabled "Walmart" store suppresses the vendor "Walmart Supercenter"
// and vice versa. Empty names never match.
func IsSuppressed(vendor string, suppressed []string) bool {
	v := strings.ToLower(strings.TrimSpace(vendor))
	if v == "" {
		return false
	}
	for _, s := range suppressed {
		name := strings.ToLower(strings.TrimSpace(s))
		if name == "" {
			continue
		}
		if strings.Contains(v, name) || strings.Contains(name, v) {
			return true
		}
	}
	return false
}
