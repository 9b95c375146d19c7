package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rmax-ai/schemabuilder/pkg/cache"
	"github.com/rmax-ai/schemabuilder/pkg/store"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCache(t *testing.T) {
	mr, client := setupRedis(t)
	c := NewCache(client)
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		if _, err := c.Get(ctx, "absent"); !errors.Is(err, cache.ErrMiss) {
			t.Errorf("expected ErrMiss, got %v", err)
		}
	})

	t.Run("set and get", func(t *testing.T) {
		if err := c.Set(ctx, "schema-builder-schema", []byte(`[{"@id":"schema:Thing"}]`), time.Hour); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := c.Get(ctx, "schema-builder-schema")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != `[{"@id":"schema:Thing"}]` {
			t.Errorf("unexpected value %s", got)
		}
		if !mr.Exists("schemabuilder:cache:schema-builder-schema") {
			t.Error("expected namespaced key in redis")
		}
	})

	t.Run("expiry", func(t *testing.T) {
		if err := c.Set(ctx, "short", []byte("v"), time.Minute); err != nil {
			t.Fatal(err)
		}
		mr.FastForward(2 * time.Minute)
		if _, err := c.Get(ctx, "short"); !errors.Is(err, cache.ErrMiss) {
			t.Errorf("expected ErrMiss after expiry, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		_ = c.Set(ctx, "gone", []byte("x"), 0)
		if err := c.Delete(ctx, "gone"); err != nil {
			t.Fatal(err)
		}
		if _, err := c.Get(ctx, "gone"); !errors.Is(err, cache.ErrMiss) {
			t.Errorf("expected ErrMiss, got %v", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		mr.SetError("LOADING")
		defer mr.SetError("")
		_, err := c.Get(ctx, "anything")
		if err == nil || errors.Is(err, cache.ErrMiss) {
			t.Errorf("expected a server error, got %v", err)
		}
	})
}

func TestGuard(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()
	g := NewGuard(client, store.GuardInsertedSchemas)

	set, err := g.IsSet(ctx)
	if err != nil || set {
		t.Fatalf("expected unset guard, got %v %v", set, err)
	}
	if err := g.Set(ctx); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if set, _ := g.IsSet(ctx); !set {
		t.Error("expected guard set")
	}
	// A second guard on the same name sees the same state.
	if set, _ := NewGuard(client, store.GuardInsertedSchemas).IsSet(ctx); !set {
		t.Error("expected shared guard state")
	}
	if err := g.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if set, _ := g.IsSet(ctx); set {
		t.Error("expected guard cleared")
	}
}

func TestLocker(t *testing.T) {
	mr, client := setupRedis(t)
	l := NewLocker(client)
	ctx := context.Background()
	ttl := 10 * time.Second

	if ok, err := l.TryLock(ctx, "materialize", "daemon-a", ttl); err != nil || !ok {
		t.Fatalf("expected lock, got %v %v", ok, err)
	}
	if ok, err := l.TryLock(ctx, "materialize", "daemon-a", ttl); err != nil || !ok {
		t.Fatalf("expected re-lock by owner, got %v %v", ok, err)
	}
	if ok, err := l.TryLock(ctx, "materialize", "daemon-b", ttl); err != nil || ok {
		t.Fatalf("expected other holder refused, got %v %v", ok, err)
	}
	if got := mr.TTL("schemabuilder:lock:materialize"); got != ttl {
		t.Errorf("expected key ttl %v, got %v", ttl, got)
	}

	h, err := l.Holder(ctx, "materialize")
	if err != nil || h == nil || h.Holder != "daemon-a" {
		t.Fatalf("unexpected holder %+v %v", h, err)
	}

	if err := l.Extend(ctx, "materialize", "daemon-b", ttl); !errors.Is(err, store.ErrLockLost) {
		t.Errorf("expected ErrLockLost for non-owner, got %v", err)
	}
	if err := l.Extend(ctx, "materialize", "daemon-a", ttl); err != nil {
		t.Errorf("Extend failed: %v", err)
	}

	mr.FastForward(time.Minute)
	if h, _ := l.Holder(ctx, "materialize"); h != nil {
		t.Errorf("expired lock must read as free, got %+v", h)
	}
	if err := l.Extend(ctx, "materialize", "daemon-a", ttl); !errors.Is(err, store.ErrLockLost) {
		t.Errorf("expected ErrLockLost after expiry, got %v", err)
	}
	if ok, _ := l.TryLock(ctx, "materialize", "daemon-b", ttl); !ok {
		t.Fatal("expected takeover after expiry")
	}

	if err := l.Unlock(ctx, "materialize", "daemon-a"); err != nil {
		t.Fatal(err)
	}
	if h, _ := l.Holder(ctx, "materialize"); h == nil || h.Holder != "daemon-b" {
		t.Errorf("stale unlock must not drop the lock, got %+v", h)
	}
	if err := l.Unlock(ctx, "materialize", "daemon-b"); err != nil {
		t.Fatal(err)
	}
	if h, _ := l.Holder(ctx, "materialize"); h != nil {
		t.Errorf("expected free lock, got %+v", h)
	}
}
