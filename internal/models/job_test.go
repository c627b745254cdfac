package models

import (
	"testing"
)

func TestJob_Lifecycle(t *testing.T) {
	t.Run("New job starts pending", func(t *testing.T) {
		job, err := NewJob("user-1", JobTypeDiscoverPrices, DiscoverPricesInput{Query: "olive oil"})
		if err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}
		if job.Status != JobStatusPending {
			t.Errorf("Expected pending, got %s", job.Status)
		}
		if job.Progress != 0 {
			t.Errorf("Expected progress 0, got %d", job.Progress)
		}
		if job.IsTerminal() {
			t.Error("New job must not be terminal")
		}
	})

	t.Run("Completed sets progress to 100", func(t *testing.T) {
		job, _ := NewJob("user-1", JobTypeTestConnection, TestConnectionInput{Target: "all"})
		if err := job.MarkProcessing(); err != nil {
			t.Fatalf("MarkProcessing failed: %v", err)
		}
		job.UpdateProgress(40)
		if err := job.MarkCompleted(TestConnectionOutput{Results: map[string]bool{"claude": true}}); err != nil {
			t.Fatalf("MarkCompleted failed: %v", err)
		}
		if job.Progress != 100 {
			t.Errorf("Expected progress 100 on completion, got %d", job.Progress)
		}
		if job.FinishedAt == nil {
			t.Error("Expected FinishedAt to be set")
		}
	})

	t.Run("Terminal states are final", func(t *testing.T) {
		job, _ := NewJob("user-1", JobTypeDiscoverPrices, DiscoverPricesInput{Query: "milk"})
		job.MarkProcessing()
		if err := job.MarkFailed("providers unreachable"); err != nil {
			t.Fatalf("MarkFailed failed: %v", err)
		}
		if err := job.MarkCompleted(nil); err == nil {
			t.Error("Expected completing a failed job to error")
		}
		if err := job.MarkCancelled(nil); err == nil {
			t.Error("Expected cancelling a failed job to error")
		}
		if job.Status != JobStatusFailed {
			t.Errorf("Terminal status changed to %s", job.Status)
		}
	})

	t.Run("Claiming a non-pending job fails", func(t *testing.T) {
		job, _ := NewJob("user-1", JobTypeDiscoverPrices, DiscoverPricesInput{Query: "milk"})
		job.MarkProcessing()
		if err := job.MarkProcessing(); err == nil {
			t.Error("Expected second claim to fail")
		}
	})
}

func TestJob_ProgressMonotonic(t *testing.T) {
	job, _ := NewJob("user-1", JobTypeRefreshPrices, RefreshPricesInput{ItemID: "item-1", Query: "eggs"})
	job.MarkProcessing()

	updates := []int{10, 40, 30, 40, 90, 5, 120}
	expected := []int{10, 40, 40, 40, 90, 90, 100}

	for i, u := range updates {
		job.UpdateProgress(u)
		if job.Progress != expected[i] {
			t.Errorf("After update %d (%d): expected progress %d, got %d", i, u, expected[i], job.Progress)
		}
	}
}

func TestJob_DecodeInput(t *testing.T) {
	job, _ := NewJob("user-1", JobTypeDiscoverPrices, DiscoverPricesInput{
		ItemID:    "item-9",
		Query:     "sourdough bread",
		ShopLocal: true,
	})

	var decoded DiscoverPricesInput
	if err := job.DecodeInput(&decoded); err != nil {
		t.Fatalf("DecodeInput failed: %v", err)
	}
	if decoded.Query != "sourdough bread" || !decoded.ShopLocal {
		t.Errorf("Decoded payload mismatch: %+v", decoded)
	}
}

func TestJob_CancelledKeepsPartialOutput(t *testing.T) {
	job, _ := NewJob("user-1", JobTypeDiscoverPrices, DiscoverPricesInput{Query: "coffee"})
	job.MarkProcessing()
	job.UpdateProgress(55)

	if err := job.MarkCancelled(DiscoverPricesOutput{VendorCount: 1}); err != nil {
		t.Fatalf("MarkCancelled failed: %v", err)
	}
	if job.Status != JobStatusCancelled {
		t.Errorf("Expected cancelled, got %s", job.Status)
	}
	if len(job.Output) == 0 {
		t.Error("Expected partial output to be retained")
	}
	if job.Progress != 55 {
		t.Errorf("Cancellation must not inflate progress, got %d", job.Progress)
	}
}
