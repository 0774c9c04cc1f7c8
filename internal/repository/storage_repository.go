package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
)

const storagePrefix = "pickup:"

// StorageRepository is the app's small key/value store for the persisted
// auth session and the onboarding flag. It uses Redis when a client is
// configured and process memory otherwise.
type StorageRepository struct {
	client *redis.Client
	logger *zap.Logger

	mu     sync.Mutex
	memory map[string]string
}

// NewStorageRepository constructs a storage repository. client may be nil.
func NewStorageRepository(client *redis.Client, logger *zap.Logger) *StorageRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StorageRepository{client: client, logger: logger, memory: make(map[string]string)}
}

// Persistent reports whether values survive a restart.
func (r *StorageRepository) Persistent() bool {
	return r.client != nil
}

// GetItem returns the stored value or appErrors.ErrStorageMiss.
func (r *StorageRepository) GetItem(ctx context.Context, key string) (string, error) {
	if r.client == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		v, ok := r.memory[key]
		if !ok {
			return "", appErrors.ErrStorageMiss
		}
		return v, nil
	}

	v, err := r.client.Get(ctx, storagePrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", appErrors.ErrStorageMiss
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

// SetItem stores value under key without expiry.
func (r *StorageRepository) SetItem(ctx context.Context, key, value string) error {
	if r.client == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.memory[key] = value
		return nil
	}

	if err := r.client.Set(ctx, storagePrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key. Missing keys are not an error.
func (r *StorageRepository) RemoveItem(ctx context.Context, key string) error {
	if r.client == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.memory, key)
		return nil
	}

	if err := r.client.Del(ctx, storagePrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *StorageRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
