// Package cache provides the expiring key-value cache that holds the fetched
// source graph between pipeline runs. The package ships an in-memory
// implementation for tests and single-shot tools and a BadgerDB-backed
// implementation for local persistence; the Redis implementation lives in
// pkg/store/redis.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache is an expiring byte-value store addressed by string keys.
type Cache interface {
	// Get returns the value for key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl. A non-positive ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
