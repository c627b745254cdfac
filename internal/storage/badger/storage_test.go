package badger

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
)

func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := NewManager(common.GetLogger(), &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { manager.Close() })
	return manager
}

func TestJobStorage_ClaimOrderAndAtomicity(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.JobStorage()
	ctx := context.Background()

	first, _ := models.NewJob("user-1", models.JobTypeDiscoverPrices, models.DiscoverPricesInput{Query: "first"})
	second, _ := models.NewJob("user-1", models.JobTypeDiscoverPrices, models.DiscoverPricesInput{Query: "second"})
	second.CreatedAt = first.CreatedAt.Add(time.Second)

	if err := storage.CreateJob(ctx, second); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if err := storage.CreateJob(ctx, first); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	claimed, err := storage.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("ClaimNextPending failed: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("Expected oldest job first, got %+v", claimed)
	}
	if claimed.Status != models.JobStatusProcessing {
		t.Errorf("Claimed job must be processing, got %s", claimed.Status)
	}

	// Second claim gets the second job, third finds the queue empty
	claimed2, err := storage.ClaimNextPending(ctx)
	if err != nil || claimed2 == nil || claimed2.ID != second.ID {
		t.Fatalf("Expected second job, got %v, %v", claimed2, err)
	}
	empty, err := storage.ClaimNextPending(ctx)
	if err != nil || empty != nil {
		t.Errorf("Expected empty queue (nil, nil), got %v, %v", empty, err)
	}
}

func TestJobStorage_CancelPendingImmediately(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.JobStorage()
	ctx := context.Background()

	job, _ := models.NewJob("user-1", models.JobTypeDiscoverPrices, models.DiscoverPricesInput{Query: "milk"})
	if err := storage.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if err := storage.RequestCancel(ctx, job.ID); err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}

	stored, err := storage.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if stored.Status != models.JobStatusCancelled {
		t.Errorf("Pending job must cancel immediately, got %s", stored.Status)
	}

	// A cancelled job is never claimed
	claimed, err := storage.ClaimNextPending(ctx)
	if err != nil || claimed != nil {
		t.Errorf("Cancelled job must not be claimable, got %v", claimed)
	}
}

func TestJobStorage_CancelProcessingSetsFlag(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.JobStorage()
	ctx := context.Background()

	job, _ := models.NewJob("user-1", models.JobTypeDiscoverPrices, models.DiscoverPricesInput{Query: "milk"})
	storage.CreateJob(ctx, job)
	claimed, _ := storage.ClaimNextPending(ctx)

	if err := storage.RequestCancel(ctx, claimed.ID); err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	flagged, err := storage.IsCancelRequested(ctx, claimed.ID)
	if err != nil || !flagged {
		t.Errorf("Expected cancel flag set, got %v, %v", flagged, err)
	}

	stored, _ := storage.GetJob(ctx, claimed.ID)
	if stored.Status != models.JobStatusProcessing {
		t.Errorf("Processing job must stay processing until its checkpoint, got %s", stored.Status)
	}
}

func TestJobStorage_RetentionSweep(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.JobStorage()
	ctx := context.Background()

	old, _ := models.NewJob("user-1", models.JobTypeTestConnection, models.TestConnectionInput{})
	storage.CreateJob(ctx, old)
	claimed, _ := storage.ClaimNextPending(ctx)
	claimed.MarkCompleted(models.TestConnectionOutput{})
	finished := time.Now().Add(-10 * 24 * time.Hour)
	claimed.FinishedAt = &finished
	storage.SaveJob(ctx, claimed)

	active, _ := models.NewJob("user-1", models.JobTypeTestConnection, models.TestConnectionInput{})
	storage.CreateJob(ctx, active)

	removed, err := storage.DeleteTerminalBefore(ctx, time.Now().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteTerminalBefore failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 job removed, got %d", removed)
	}
	if _, err := storage.GetJob(ctx, active.ID); err != nil {
		t.Error("Active job must survive the sweep")
	}
}

func TestStoreDirectory_UpsertIdempotent(t *testing.T) {
	manager := newTestManager(t)
	directory := manager.StoreDirectory()
	ctx := context.Background()

	store := &models.Store{
		ID:     common.NewStoreID(),
		Name:   "Fresh Mart",
		Domain: "freshmart.com",
		Active: true,
	}
	first, err := directory.UpsertStore(ctx, store)
	if err != nil {
		t.Fatalf("UpsertStore failed: %v", err)
	}

	dup := &models.Store{ID: common.NewStoreID(), Name: "Fresh Mart", Domain: "freshmart.com", Active: true}
	second, err := directory.UpsertStore(ctx, dup)
	if err != nil {
		t.Fatalf("UpsertStore failed: %v", err)
	}
	if second.ID != first.ID {
		t.Error("Upserting the same domain must not create a second store")
	}

	all, _ := directory.ListActiveStores(ctx)
	if len(all) != 1 {
		t.Errorf("Expected 1 store, got %d", len(all))
	}
}

func TestPriceStorage_MissingRecordIsNil(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.PriceStorage()

	record, err := storage.FindVendorRecord(context.Background(), "item-x", "Amazon")
	if err != nil {
		t.Fatalf("FindVendorRecord errored for missing record: %v", err)
	}
	if record != nil {
		t.Errorf("Expected nil for missing record, got %+v", record)
	}
}

func TestPriceStorage_RoundTrip(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.PriceStorage()
	ctx := context.Background()

	record := models.NewVendorPriceRecord("item-1", "Amazon", models.VendorPriceEntry{
		Vendor: "Amazon", Price: 12.5, Stock: models.StockInStock,
	})
	if err := storage.UpsertVendorRecord(ctx, record); err != nil {
		t.Fatalf("UpsertVendorRecord failed: %v", err)
	}

	found, err := storage.FindVendorRecord(ctx, "item-1", "Amazon")
	if err != nil || found == nil {
		t.Fatalf("FindVendorRecord failed: %v, %v", found, err)
	}
	if found.CurrentPrice != 12.5 {
		t.Errorf("Expected price 12.5, got %v", found.CurrentPrice)
	}

	records, err := storage.ListVendorRecords(ctx, "item-1")
	if err != nil || len(records) != 1 {
		t.Errorf("Expected 1 record, got %d, %v", len(records), err)
	}
}

func TestKVStorage_RoundTrip(t *testing.T) {
	manager := newTestManager(t)
	kv := manager.KeyValueStorage()
	ctx := context.Background()

	if err := kv.Set(ctx, "Anthropic_API_Key", "sealed-value"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	// Keys are case-normalized
	got, err := kv.Get(ctx, "anthropic_api_key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "sealed-value" {
		t.Errorf("Expected sealed-value, got %q", got)
	}

	if err := kv.Delete(ctx, "anthropic_api_key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := kv.Get(ctx, "anthropic_api_key"); err == nil {
		t.Error("Expected error for deleted key")
	}
}

func TestItemDirectory_RefreshTargets(t *testing.T) {
	manager := newTestManager(t)
	items := manager.ItemDirectory()
	ctx := context.Background()

	eligible := &models.TrackedItem{ID: "item-1", UserID: "user-1", Query: "milk", DiscoveryEnabled: true}
	purchased := &models.TrackedItem{ID: "item-2", UserID: "user-1", Query: "eggs", DiscoveryEnabled: true, Purchased: true}
	disabled := &models.TrackedItem{ID: "item-3", UserID: "user-1", Query: "bread"}

	for _, item := range []*models.TrackedItem{eligible, purchased, disabled} {
		if err := items.SaveItem(ctx, item); err != nil {
			t.Fatalf("SaveItem failed: %v", err)
		}
	}

	targets, err := items.ListRefreshTargets(ctx)
	if err != nil {
		t.Fatalf("ListRefreshTargets failed: %v", err)
	}
	if len(targets) != 1 || targets[0].ID != "item-1" {
		t.Errorf("Expected only the eligible item, got %v", targets)
	}
}
