package badger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// Value-log GC cadence. Badger never reclaims value-log space on its own;
// price snapshots and job logs churn enough to need it.
const gcInterval = 10 * time.Minute

// BadgerDB manages the Badger database connection
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.BadgerConfig
	gcStop chan struct{}
}

// NewBadgerDB creates a new Badger database connection
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	// If reset_on_startup is enabled, delete the existing database
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete database directory")
			}
		}
	}

	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Opening Badger database connection")

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // Disable default badger logger to use arbor

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Badger database initialized")

	db := &BadgerDB{
		store:  store,
		logger: logger,
		config: config,
		gcStop: make(chan struct{}),
	}
	go db.gcLoop()

	return db, nil
}

// gcLoop periodically reclaims value-log space until Close
func (b *BadgerDB) gcLoop() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.gcStop:
			return
		case <-ticker.C:
			// Each call rewrites at most one log file; loop until there
			// is nothing left worth rewriting
			for {
				err := b.store.Badger().RunValueLogGC(0.5)
				if err == nil {
					continue
				}
				if !errors.Is(err, badgerdb.ErrNoRewrite) {
					b.logger.Warn().Err(err).Msg("Badger value log GC failed")
				}
				break
			}
		}
	}
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close closes the database connection
func (b *BadgerDB) Close() error {
	if b.store != nil {
		close(b.gcStop)
		return b.store.Close()
	}
	return nil
}
