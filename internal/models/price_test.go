package models

import (
	"testing"
)

func TestVendorPriceRecord_Sequence(t *testing.T) {
	// Observed prices 50, 80, 40, 60 must leave current=60, lowest=40,
	// highest=80 and a 25% sale
	record := NewVendorPriceRecord("item-1", "Amazon", VendorPriceEntry{Vendor: "Amazon", Price: 50, Stock: StockInStock})
	for _, p := range []float64{80, 40, 60} {
		record.UpdatePrice(VendorPriceEntry{Vendor: "Amazon", Price: p, Stock: StockInStock})
	}

	if record.CurrentPrice != 60 {
		t.Errorf("Expected current 60, got %v", record.CurrentPrice)
	}
	if record.PreviousPrice != 40 {
		t.Errorf("Expected previous 40, got %v", record.PreviousPrice)
	}
	if record.LowestPrice != 40 {
		t.Errorf("Expected lowest 40, got %v", record.LowestPrice)
	}
	if record.HighestPrice != 80 {
		t.Errorf("Expected highest 80, got %v", record.HighestPrice)
	}
	if !record.OnSale {
		t.Error("Expected record on sale (60 < 80)")
	}
	if record.SalePercent != 25.0 {
		t.Errorf("Expected 25.0%% off, got %v", record.SalePercent)
	}
}

func TestVendorPriceRecord_Invariant(t *testing.T) {
	sequences := [][]float64{
		{10},
		{10, 10, 10},
		{5, 100, 1, 50, 0.5},
		{99.99, 0.01, 42},
	}

	for _, seq := range sequences {
		record := NewVendorPriceRecord("item-1", "Target", VendorPriceEntry{Vendor: "Target", Price: seq[0]})
		for _, p := range seq[1:] {
			record.UpdatePrice(VendorPriceEntry{Vendor: "Target", Price: p})
		}
		if record.LowestPrice > record.CurrentPrice || record.CurrentPrice > record.HighestPrice {
			t.Errorf("Invariant violated for %v: lowest=%v current=%v highest=%v",
				seq, record.LowestPrice, record.CurrentPrice, record.HighestPrice)
		}
	}
}

func TestVendorPriceRecord_SaleStrictness(t *testing.T) {
	t.Run("Not on sale at all-time high", func(t *testing.T) {
		record := NewVendorPriceRecord("item-1", "Costco", VendorPriceEntry{Vendor: "Costco", Price: 20})
		record.UpdatePrice(VendorPriceEntry{Vendor: "Costco", Price: 25})
		if record.OnSale {
			t.Error("Current price equal to highest must not be on sale")
		}
		if record.SalePercent != 0 {
			t.Errorf("Expected 0%% off, got %v", record.SalePercent)
		}
	})

	t.Run("Single observation is not a sale", func(t *testing.T) {
		record := NewVendorPriceRecord("item-1", "Costco", VendorPriceEntry{Vendor: "Costco", Price: 20})
		if record.OnSale {
			t.Error("Seed record must not be on sale")
		}
	})
}

func TestVendorPriceEntry_InStock(t *testing.T) {
	tests := []struct {
		stock    StockStatus
		eligible bool
	}{
		{StockInStock, true},
		{StockUnknown, true},
		{StockOutOfStock, false},
	}
	for _, tt := range tests {
		e := VendorPriceEntry{Vendor: "Amazon", Price: 1, Stock: tt.stock}
		if e.InStock() != tt.eligible {
			t.Errorf("Stock %s: expected InStock=%v", tt.stock, tt.eligible)
		}
	}
}

func TestDiscoveryTier_CostOrdering(t *testing.T) {
	if !(TierTemplate.CostWeight() < TierSearch.CostWeight() && TierSearch.CostWeight() < TierAgent.CostWeight()) {
		t.Error("Tier cost weights must increase template < search < agent")
	}
}
