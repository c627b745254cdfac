package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/merx/internal/models"
)

// JobStorage persists jobs and owns the atomic state-transition semantics
// the orchestrator relies on
type JobStorage interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	SaveJob(ctx context.Context, job *models.Job) error

	// ClaimNextPending atomically transitions the oldest pending job to
	// processing and returns it. Returns nil with no error when the queue
	// is empty. A job is never claimed by two workers.
	ClaimNextPending(ctx context.Context) (*models.Job, error)

	// RequestCancel flags a job for cooperative cancellation. Pending jobs
	// are cancelled immediately; processing jobs observe the flag at their
	// next checkpoint.
	RequestCancel(ctx context.Context, jobID string) error

	// IsCancelRequested reports the current cancellation flag
	IsCancelRequested(ctx context.Context, jobID string) (bool, error)

	ListActiveJobs(ctx context.Context, userID string) ([]*models.Job, error)

	// DeleteTerminalBefore removes terminal jobs finished before the cutoff
	// and returns how many were removed
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// PriceStorage persists vendor price records and append-only history
type PriceStorage interface {
	// FindVendorRecord returns nil without error when no record exists
	FindVendorRecord(ctx context.Context, itemID, vendor string) (*models.VendorPriceRecord, error)
	UpsertVendorRecord(ctx context.Context, record *models.VendorPriceRecord) error
	ListVendorRecords(ctx context.Context, itemID string) ([]*models.VendorPriceRecord, error)

	// AppendPriceHistory stores one snapshot; snapshots are never mutated
	AppendPriceHistory(ctx context.Context, snapshot *models.PriceSnapshot) error
	ListPriceHistory(ctx context.Context, itemID string, limit int) ([]*models.PriceSnapshot, error)
}

// StoreDirectory persists known stores and per-user preferences
type StoreDirectory interface {
	ListActiveStores(ctx context.Context) ([]*models.Store, error)
	GetStoreByDomain(ctx context.Context, domain string) (*models.Store, error)

	// UpsertStore creates or updates a store keyed by normalized domain.
	// Learning the same domain twice never creates duplicates.
	UpsertStore(ctx context.Context, store *models.Store) (*models.Store, error)

	UserPreferences(ctx context.Context, userID string) ([]*models.UserStorePreference, error)
	SavePreference(ctx context.Context, pref *models.UserStorePreference) error
}

// ItemDirectory enumerates tracked items eligible for scheduled refresh
type ItemDirectory interface {
	ListRefreshTargets(ctx context.Context) ([]*models.TrackedItem, error)
	GetItem(ctx context.Context, itemID string) (*models.TrackedItem, error)
	SaveItem(ctx context.Context, item *models.TrackedItem) error
}

// KeyValueStorage is a small KV store used for sealed credentials
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// SecretStore seals and opens stored secrets. Implementations are injected
// into components needing credentials; there is no global crypto facade.
type SecretStore interface {
	Seal(plaintext string) (string, error)
	Open(ciphertext string) (string, error)
}

// StorageManager bundles the storage interfaces behind one lifecycle
type StorageManager interface {
	JobStorage() JobStorage
	PriceStorage() PriceStorage
	StoreDirectory() StoreDirectory
	ItemDirectory() ItemDirectory
	KeyValueStorage() KeyValueStorage
	Close() error
}
