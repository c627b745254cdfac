// -----------------------------------------------------------------------
// Vendor price reconciliation
// -----------------------------------------------------------------------

package prices

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
)

// Reconciler folds discovery results into per-vendor price records and
// keeps each item's headline price current
type Reconciler struct {
	priceStorage interfaces.PriceStorage
	items        interfaces.ItemDirectory
	logger       arbor.ILogger

	// Per-(item, vendor) locks serialize concurrent updates to the same
	// record so the lowest <= current <= highest invariant survives races
	locks   map[string]*sync.Mutex
	locksMu sync.Mutex
}

// NewReconciler creates the price reconciler
func NewReconciler(priceStorage interfaces.PriceStorage, items interfaces.ItemDirectory, logger arbor.ILogger) *Reconciler {
	return &Reconciler{
		priceStorage: priceStorage,
		items:        items,
		logger:       logger,
		locks:        make(map[string]*sync.Mutex),
	}
}

// Summary reports what one reconciliation changed
type Summary struct {
	ItemID         string  `json:"item_id"`
	VendorCount    int     `json:"vendor_count"`
	HeadlinePrice  float64 `json:"headline_price"`
	HeadlineVendor string  `json:"headline_vendor"`
	NewVendors     int     `json:"new_vendors"`
	UpdatedVendors int     `json:"updated_vendors"`
}

// ApplyDiscoveryResult merges a discovery run into stored vendor records,
// recomputes the item's headline price and appends one history snapshot.
// A result with zero entries updates nothing and records nothing.
func (r *Reconciler) ApplyDiscoveryResult(ctx context.Context, itemID string, result *models.DiscoveryResult) (*Summary, error) {
	if result == nil || result.Err != nil {
		return nil, fmt.Errorf("%w: reconciling a failed discovery result", common.ErrInvalidInput)
	}

	summary := &Summary{ItemID: itemID}
	if len(result.Entries) == 0 {
		return summary, nil
	}

	for _, entry := range result.Entries {
		created, err := r.applyEntry(ctx, itemID, entry)
		if err != nil {
			return nil, err
		}
		if created {
			summary.NewVendors++
		} else {
			summary.UpdatedVendors++
		}
	}

	records, err := r.priceStorage.ListVendorRecords(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list vendor records: %w", err)
	}
	summary.VendorCount = len(records)

	headline := HeadlineRecord(records)
	if headline != nil {
		summary.HeadlinePrice = headline.CurrentPrice
		summary.HeadlineVendor = headline.Vendor

		if err := r.updateItemHeadline(ctx, itemID, headline); err != nil {
			return nil, err
		}

		snapshot := &models.PriceSnapshot{
			ID:          common.NewSnapshotID(),
			ItemID:      itemID,
			Vendor:      headline.Vendor,
			Price:       headline.CurrentPrice,
			VendorCount: len(records),
			RecordedAt:  time.Now(),
		}
		if err := r.priceStorage.AppendPriceHistory(ctx, snapshot); err != nil {
			return nil, fmt.Errorf("append price history: %w", err)
		}
	}

	r.logger.Info().
		Str("item_id", itemID).
		Int("vendors", summary.VendorCount).
		Float64("headline", summary.HeadlinePrice).
		Str("headline_vendor", summary.HeadlineVendor).
		Msg("Prices reconciled")

	return summary, nil
}

// applyEntry updates or creates the record for one (item, vendor) pair
// under that pair's lock. Returns whether a new record was created.
func (r *Reconciler) applyEntry(ctx context.Context, itemID string, entry models.VendorPriceEntry) (bool, error) {
	key := models.VendorRecordKey(itemID, entry.Vendor)
	lock := r.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	record, err := r.priceStorage.FindVendorRecord(ctx, itemID, entry.Vendor)
	if err != nil {
		return false, fmt.Errorf("find vendor record %s: %w", key, err)
	}

	created := false
	if record == nil {
		record = models.NewVendorPriceRecord(itemID, entry.Vendor, entry)
		created = true
	} else {
		record.UpdatePrice(entry)
	}

	if err := r.priceStorage.UpsertVendorRecord(ctx, record); err != nil {
		return false, fmt.Errorf("save vendor record %s: %w", key, err)
	}
	return created, nil
}

func (r *Reconciler) lockFor(key string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}

func (r *Reconciler) updateItemHeadline(ctx context.Context, itemID string, headline *models.VendorPriceRecord) error {
	item, err := r.items.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("load item %s: %w", itemID, err)
	}
	if item == nil {
		return nil
	}

	item.HeadlinePrice = headline.CurrentPrice
	item.HeadlineVendor = headline.Vendor
	now := time.Now()
	item.LastRefreshedAt = &now
	if err := r.items.SaveItem(ctx, item); err != nil {
		return fmt.Errorf("save item %s: %w", itemID, err)
	}
	return nil
}

// HeadlineRecord picks the record whose price represents the item: the
// lowest current price among in-stock vendors. Out-of-stock vendors are
// considered only when every vendor is out of stock.
func HeadlineRecord(records []*models.VendorPriceRecord) *models.VendorPriceRecord {
	var best *models.VendorPriceRecord
	var bestOutOfStock *models.VendorPriceRecord

	for _, rec := range records {
		if rec.Stock == models.StockOutOfStock {
			if bestOutOfStock == nil || rec.CurrentPrice < bestOutOfStock.CurrentPrice {
				bestOutOfStock = rec
			}
			continue
		}
		if best == nil || rec.CurrentPrice < best.CurrentPrice {
			best = rec
		}
	}

	if best != nil {
		return best
	}
	return bestOutOfStock
}
