package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rmax-ai/schemabuilder/pkg/api"
	"github.com/rmax-ai/schemabuilder/pkg/blob"
	"github.com/rmax-ai/schemabuilder/pkg/cache"
	"github.com/rmax-ai/schemabuilder/pkg/engine"
	"github.com/rmax-ai/schemabuilder/pkg/logger"
	"github.com/rmax-ai/schemabuilder/pkg/store"
	"github.com/rmax-ai/schemabuilder/pkg/store/redis"
)

// guard is what both the materializer and the admin API need from a run guard.
type guard interface {
	engine.RunGuard
	api.GuardInterface
}

// backends holds everything opened from Config that needs closing.
type backends struct {
	store  *store.Store
	cache  cache.Cache
	guard  guard
	locker store.Locker
	blobs  blob.BlobStore

	redis  *goredis.Client
	badger *cache.Badger
}

func openBackends(ctx context.Context, cfg Config, log *logger.Logger) (*backends, error) {
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}
	b := &backends{store: st, guard: st.Guard(store.GuardInsertedSchemas), locker: st}

	if cfg.RedisAddr != "" && (cfg.CacheKind == "redis" || cfg.GuardKind == "redis") {
		b.redis = goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
	}

	switch cfg.CacheKind {
	case "memory":
		b.cache = cache.NewMemory()
	case "badger":
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
		bc, err := cache.NewBadger(cache.BadgerOptions{Dir: cfg.CacheDir, Logger: log})
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to open badger cache: %w", err)
		}
		b.badger = bc
		b.cache = bc
	case "redis":
		b.cache = redis.NewCache(b.redis)
	}

	if cfg.GuardKind == "redis" {
		b.guard = redis.NewGuard(b.redis, store.GuardInsertedSchemas)
		b.locker = redis.NewLocker(b.redis)
	}

	if cfg.ArchiveDir != "" {
		b.blobs = blob.NewLocalBlobStore(cfg.ArchiveDir)
	}

	log.Info("backends_opened",
		"db", cfg.DBPath,
		"cache", cfg.CacheKind,
		"guard", cfg.GuardKind,
		"archive", cfg.ArchiveDir != "",
	)
	return b, nil
}

// holderID identifies this process in run lock records.
func holderID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "schemabuilder-d"
	}
	return host + "-" + uuid.NewString()[:8]
}

func (b *backends) Close() error {
	var firstErr error
	if b.badger != nil {
		if err := b.badger.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.store != nil {
		if err := b.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
