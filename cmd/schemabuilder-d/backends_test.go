package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/schemabuilder/pkg/cache"
	"github.com/rmax-ai/schemabuilder/pkg/logger"
	"github.com/rmax-ai/schemabuilder/pkg/store"
	"github.com/rmax-ai/schemabuilder/pkg/store/redis"
)

func TestOpenBackends_Local(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		DBPath:     filepath.Join(dir, "sb.db"),
		CacheKind:  "badger",
		CacheDir:   filepath.Join(dir, "cache"),
		GuardKind:  "sqlite",
		ArchiveDir: filepath.Join(dir, "archive"),
	}

	b, err := openBackends(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &cache.Badger{}, b.cache)
	assert.IsType(t, &store.Guard{}, b.guard)
	assert.IsType(t, &store.Store{}, b.locker)
	assert.NotNil(t, b.blobs)
	assert.Nil(t, b.redis)

	ctx := context.Background()
	require.NoError(t, b.cache.Set(ctx, "k", []byte("v"), 0))
	got, err := b.cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestOpenBackends_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	cfg := Config{
		DBPath:    filepath.Join(dir, "sb.db"),
		CacheKind: "redis",
		GuardKind: "redis",
		RedisAddr: mr.Addr(),
	}

	b, err := openBackends(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &redis.Cache{}, b.cache)
	assert.IsType(t, &redis.Guard{}, b.guard)
	assert.IsType(t, &redis.Locker{}, b.locker)

	ctx := context.Background()
	require.NoError(t, b.guard.Set(ctx))
	set, err := b.guard.IsSet(ctx)
	require.NoError(t, err)
	assert.True(t, set)
	assert.True(t, mr.Exists("schemabuilder:flag:"+store.GuardInsertedSchemas))
}

func TestOpenBackends_RedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	cfg := Config{
		DBPath:    filepath.Join(t.TempDir(), "sb.db"),
		CacheKind: "redis",
		GuardKind: "sqlite",
		RedisAddr: addr,
	}
	_, err = openBackends(context.Background(), cfg, logger.Nop())
	assert.ErrorContains(t, err, "failed to reach redis")
}

func TestHolderID(t *testing.T) {
	a, b := holderID(), holderID()
	assert.NotEqual(t, a, b)
}
