package common

import (
	"context"
	"fmt"
	"strings"
)

// KeyGetter is the slice of the KV store key resolution needs; the full
// storage contract lives in internal/interfaces
type KeyGetter interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// SecretOpener seals and opens stored secret values
type SecretOpener interface {
	Seal(plaintext string) (string, error)
	Open(ciphertext string) (string, error)
}

// ResolveAPIKey resolves an API key with KV-first resolution order:
// sealed value in the KV store, then the config fallback. The secret store
// opens sealed values; a pass-through store is used when sealing is off.
func ResolveAPIKey(ctx context.Context, kv KeyGetter, secrets SecretOpener, key, configValue string) (string, error) {
	if kv != nil {
		sealed, err := kv.Get(ctx, key)
		if err == nil && sealed != "" {
			plaintext, err := secrets.Open(sealed)
			if err != nil {
				return "", fmt.Errorf("failed to open sealed key %s: %w", key, err)
			}
			return plaintext, nil
		}
	}

	if strings.TrimSpace(configValue) != "" {
		return configValue, nil
	}

	return "", fmt.Errorf("no API key configured for %s", key)
}

// StoreAPIKey seals and stores an API key in the KV store
func StoreAPIKey(ctx context.Context, kv KeyGetter, secrets SecretOpener, key, plaintext string) error {
	sealed, err := secrets.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("failed to seal key %s: %w", key, err)
	}
	return kv.Set(ctx, key, sealed)
}
