package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// expire backdates a lock so the next TryLock sees it as stale.
func expire(t *testing.T, s *Store, name string) {
	t.Helper()
	past := time.Now().Add(-time.Minute).UnixMilli()
	if _, err := s.db.Exec(`UPDATE run_locks SET expires_ms = ? WHERE name = ?`, past, name); err != nil {
		t.Fatalf("expire: %v", err)
	}
}

func TestTryLock(t *testing.T) {
	s, _, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	ok, err := s.TryLock(ctx, "materialize", "daemon-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first lock, got %v %v", ok, err)
	}
	l, err := s.Holder(ctx, "materialize")
	if err != nil || l == nil {
		t.Fatalf("expected holder, got %v %v", l, err)
	}
	if l.Holder != "daemon-a" || l.Epoch != 1 || l.Version != 1 {
		t.Errorf("unexpected lock %+v", l)
	}
	if time.Until(l.ExpiresAt) < 50*time.Second {
		t.Errorf("expiry too early: %v", l.ExpiresAt)
	}

	// Re-locking by the owner extends without a new epoch.
	if ok, _ := s.TryLock(ctx, "materialize", "daemon-a", time.Minute); !ok {
		t.Error("expected owner to re-lock")
	}
	if l, _ := s.Holder(ctx, "materialize"); l.Epoch != 1 || l.Version != 2 {
		t.Errorf("expected epoch 1 version 2, got %+v", l)
	}

	if ok, _ := s.TryLock(ctx, "materialize", "daemon-b", time.Minute); ok {
		t.Error("a live lock must not change hands")
	}

	expire(t, s, "materialize")
	if l, _ := s.Holder(ctx, "materialize"); l != nil {
		t.Errorf("expired lock must read as free, got %+v", l)
	}
	if ok, _ := s.TryLock(ctx, "materialize", "daemon-b", time.Minute); !ok {
		t.Fatal("expected takeover of expired lock")
	}
	if l, _ := s.Holder(ctx, "materialize"); l.Holder != "daemon-b" || l.Epoch != 2 {
		t.Errorf("expected daemon-b at epoch 2, got %+v", l)
	}
}

func TestExtend(t *testing.T) {
	s, _, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := s.Extend(ctx, "materialize", "daemon-a", time.Minute); !errors.Is(err, ErrLockLost) {
		t.Errorf("extending a missing lock: expected ErrLockLost, got %v", err)
	}

	s.TryLock(ctx, "materialize", "daemon-a", time.Minute)
	if err := s.Extend(ctx, "materialize", "daemon-a", time.Minute); err != nil {
		t.Errorf("Extend failed: %v", err)
	}
	if err := s.Extend(ctx, "materialize", "daemon-b", time.Minute); !errors.Is(err, ErrLockLost) {
		t.Errorf("non-owner: expected ErrLockLost, got %v", err)
	}

	expire(t, s, "materialize")
	if err := s.Extend(ctx, "materialize", "daemon-a", time.Minute); !errors.Is(err, ErrLockLost) {
		t.Errorf("expired: expected ErrLockLost, got %v", err)
	}
}

func TestUnlock(t *testing.T) {
	s, _, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	s.TryLock(ctx, "materialize", "daemon-a", time.Minute)

	if err := s.Unlock(ctx, "materialize", "daemon-b"); err != nil {
		t.Fatalf("Unlock by non-owner: %v", err)
	}
	if l, _ := s.Holder(ctx, "materialize"); l == nil {
		t.Fatal("non-owner unlock must not free the lock")
	}

	if err := s.Unlock(ctx, "materialize", "daemon-a"); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if l, _ := s.Holder(ctx, "materialize"); l != nil {
		t.Errorf("expected free lock, got %+v", l)
	}
	if err := s.Unlock(ctx, "materialize", "daemon-a"); err != nil {
		t.Errorf("second Unlock should be a no-op, got %v", err)
	}
}
