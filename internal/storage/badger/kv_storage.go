package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// ErrKeyNotFound is returned when a key does not exist in the KV store
var ErrKeyNotFound = errors.New("key not found")

// keyValuePair is the stored KV record
type keyValuePair struct {
	Key       string    `badgerhold:"key"`
	Value     string
	UpdatedAt time.Time
}

// KVStorage implements the KeyValueStorage interface for Badger. Values
// holding credentials are sealed by the caller before being stored.
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

// normalizeKey converts a key to lowercase for case-insensitive storage
func (s *KVStorage) normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	var pair keyValuePair
	err := s.db.Store().Get(s.normalizeKey(key), &pair)
	if err == badgerhold.ErrNotFound {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return pair.Value, nil
}

func (s *KVStorage) Set(ctx context.Context, key, value string) error {
	pair := keyValuePair{
		Key:       s.normalizeKey(key),
		Value:     value,
		UpdatedAt: time.Now(),
	}
	if err := s.db.Store().Upsert(pair.Key, &pair); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (s *KVStorage) Delete(ctx context.Context, key string) error {
	err := s.db.Store().Delete(s.normalizeKey(key), &keyValuePair{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}
