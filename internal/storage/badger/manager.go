package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db     *BadgerDB
	job    interfaces.JobStorage
	price  interfaces.PriceStorage
	store  interfaces.StoreDirectory
	item   interfaces.ItemDirectory
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		job:    NewJobStorage(db, logger),
		price:  NewPriceStorage(db, logger),
		store:  NewStoreStorage(db, logger),
		item:   NewItemStorage(db, logger),
		kv:     NewKVStorage(db, logger),
		logger: logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// PriceStorage returns the Price storage interface
func (m *Manager) PriceStorage() interfaces.PriceStorage {
	return m.price
}

// StoreDirectory returns the Store directory interface
func (m *Manager) StoreDirectory() interfaces.StoreDirectory {
	return m.store
}

// ItemDirectory returns the Item directory interface
func (m *Manager) ItemDirectory() interfaces.ItemDirectory {
	return m.item
}

// KeyValueStorage returns the KV storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the underlying database
func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing Badger storage manager")
	return m.db.Close()
}
