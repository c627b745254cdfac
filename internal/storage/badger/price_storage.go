package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// PriceStorage implements the PriceStorage interface for Badger
type PriceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPriceStorage creates a new PriceStorage instance
func NewPriceStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PriceStorage {
	return &PriceStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PriceStorage) FindVendorRecord(ctx context.Context, itemID, vendor string) (*models.VendorPriceRecord, error) {
	var record models.VendorPriceRecord
	err := s.db.Store().Get(models.VendorRecordKey(itemID, vendor), &record)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vendor record: %w", err)
	}
	return &record, nil
}

func (s *PriceStorage) UpsertVendorRecord(ctx context.Context, record *models.VendorPriceRecord) error {
	if record.Key == "" {
		record.Key = models.VendorRecordKey(record.ItemID, record.Vendor)
	}
	if err := s.db.Store().Upsert(record.Key, record); err != nil {
		return fmt.Errorf("failed to upsert vendor record: %w", err)
	}
	return nil
}

func (s *PriceStorage) ListVendorRecords(ctx context.Context, itemID string) ([]*models.VendorPriceRecord, error) {
	var records []models.VendorPriceRecord
	query := badgerhold.Where("ItemID").Eq(itemID).SortBy("Vendor")
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list vendor records: %w", err)
	}

	result := make([]*models.VendorPriceRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

func (s *PriceStorage) AppendPriceHistory(ctx context.Context, snapshot *models.PriceSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = common.NewSnapshotID()
	}
	// Insert, not upsert: history is append-only and never mutated
	if err := s.db.Store().Insert(snapshot.ID, snapshot); err != nil {
		return fmt.Errorf("failed to append price history: %w", err)
	}
	return nil
}

func (s *PriceStorage) ListPriceHistory(ctx context.Context, itemID string, limit int) ([]*models.PriceSnapshot, error) {
	var snapshots []models.PriceSnapshot
	query := badgerhold.Where("ItemID").Eq(itemID).SortBy("RecordedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&snapshots, query); err != nil {
		return nil, fmt.Errorf("failed to list price history: %w", err)
	}

	result := make([]*models.PriceSnapshot, len(snapshots))
	for i := range snapshots {
		result[i] = &snapshots[i]
	}
	return result, nil
}
