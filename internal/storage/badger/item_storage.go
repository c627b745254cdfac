package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ItemStorage implements the ItemDirectory interface for Badger
type ItemStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewItemStorage creates a new ItemStorage instance
func NewItemStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ItemDirectory {
	return &ItemStorage{
		db:     db,
		logger: logger,
	}
}

// ListRefreshTargets returns non-purchased items with discovery enabled,
// oldest-refreshed first so stale items are scheduled ahead of fresh ones
func (s *ItemStorage) ListRefreshTargets(ctx context.Context) ([]*models.TrackedItem, error) {
	var items []models.TrackedItem
	query := badgerhold.Where("Purchased").Eq(false).
		And("DiscoveryEnabled").Eq(true).
		SortBy("LastRefreshedAt")
	if err := s.db.Store().Find(&items, query); err != nil {
		return nil, fmt.Errorf("failed to list refresh targets: %w", err)
	}

	result := make([]*models.TrackedItem, len(items))
	for i := range items {
		result[i] = &items[i]
	}
	return result, nil
}

func (s *ItemStorage) GetItem(ctx context.Context, itemID string) (*models.TrackedItem, error) {
	var item models.TrackedItem
	if err := s.db.Store().Get(itemID, &item); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("item not found: %s", itemID)
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

func (s *ItemStorage) SaveItem(ctx context.Context, item *models.TrackedItem) error {
	if item.ID == "" {
		return fmt.Errorf("item ID is required")
	}
	if err := s.db.Store().Upsert(item.ID, item); err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}
