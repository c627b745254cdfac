package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// StoreStorage implements the StoreDirectory interface for Badger
type StoreStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewStoreStorage creates a new StoreStorage instance
func NewStoreStorage(db *BadgerDB, logger arbor.ILogger) interfaces.StoreDirectory {
	return &StoreStorage{
		db:     db,
		logger: logger,
	}
}

func (s *StoreStorage) ListActiveStores(ctx context.Context) ([]*models.Store, error) {
	var stores []models.Store
	query := badgerhold.Where("Active").Eq(true).SortBy("ID")
	if err := s.db.Store().Find(&stores, query); err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	result := make([]*models.Store, len(stores))
	for i := range stores {
		result[i] = &stores[i]
	}
	return result, nil
}

func (s *StoreStorage) GetStoreByDomain(ctx context.Context, domain string) (*models.Store, error) {
	normalized := models.NormalizeDomain(domain)
	var stores []models.Store
	query := badgerhold.Where("Domain").Eq(normalized).Limit(1)
	if err := s.db.Store().Find(&stores, query); err != nil {
		return nil, fmt.Errorf("failed to query store by domain: %w", err)
	}
	if len(stores) == 0 {
		return nil, nil
	}
	return &stores[0], nil
}

// UpsertStore creates or updates a store keyed by normalized domain.
// Upserting the same domain twice updates the existing record in place.
func (s *StoreStorage) UpsertStore(ctx context.Context, store *models.Store) (*models.Store, error) {
	store.Domain = models.NormalizeDomain(store.Domain)
	if store.Domain == "" {
		return nil, fmt.Errorf("store domain is required")
	}

	existing, err := s.GetStoreByDomain(ctx, store.Domain)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if existing != nil {
		if store.Name != "" {
			existing.Name = store.Name
		}
		if store.SearchTemplate != "" {
			existing.SearchTemplate = store.SearchTemplate
		}
		if store.DefaultPriority != 0 {
			existing.DefaultPriority = store.DefaultPriority
		}
		existing.IsLocal = existing.IsLocal || store.IsLocal
		existing.Active = true
		existing.UpdatedAt = now
		if err := s.db.Store().Upsert(existing.ID, existing); err != nil {
			return nil, fmt.Errorf("failed to update store: %w", err)
		}
		return existing, nil
	}

	if store.ID == "" {
		store.ID = common.NewStoreID()
	}
	if store.Name == "" {
		store.Name = store.Domain
	}
	store.Active = true
	store.CreatedAt = now
	store.UpdatedAt = now
	if err := s.db.Store().Insert(store.ID, store); err != nil {
		return nil, fmt.Errorf("failed to insert store: %w", err)
	}

	s.logger.Debug().Str("domain", store.Domain).Str("store_id", store.ID).Msg("Store learned")
	return store, nil
}

func (s *StoreStorage) UserPreferences(ctx context.Context, userID string) ([]*models.UserStorePreference, error) {
	var prefs []models.UserStorePreference
	query := badgerhold.Where("UserID").Eq(userID)
	if err := s.db.Store().Find(&prefs, query); err != nil {
		return nil, fmt.Errorf("failed to list user preferences: %w", err)
	}

	result := make([]*models.UserStorePreference, len(prefs))
	for i := range prefs {
		result[i] = &prefs[i]
	}
	return result, nil
}

func (s *StoreStorage) SavePreference(ctx context.Context, pref *models.UserStorePreference) error {
	if pref.Key == "" {
		pref.Key = models.PreferenceKey(pref.UserID, pref.StoreID)
	}
	if err := s.db.Store().Upsert(pref.Key, pref); err != nil {
		return fmt.Errorf("failed to save preference: %w", err)
	}
	return nil
}
