package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ Locker = (*Store)(nil)

// TryLock inserts the lock row, or takes it over in the same statement when
// holder already owns it or the current owner's lock has expired.
func (s *Store) TryLock(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO run_locks (name, holder, expires_ms) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			epoch = CASE WHEN run_locks.holder = excluded.holder THEN run_locks.epoch ELSE run_locks.epoch + 1 END,
			holder = excluded.holder,
			expires_ms = excluded.expires_ms,
			version = run_locks.version + 1
		WHERE run_locks.holder = excluded.holder OR run_locks.expires_ms < ?
	`, name, holder, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to take lock %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to take lock %q: %w", name, err)
	}
	return n == 1, nil
}

// Extend pushes the expiry of a lock holder still owns.
func (s *Store) Extend(ctx context.Context, name, holder string, ttl time.Duration) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE run_locks SET expires_ms = ?, version = version + 1
		WHERE name = ? AND holder = ? AND expires_ms >= ?
	`, now.Add(ttl).UnixMilli(), name, holder, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to extend lock %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to extend lock %q: %w", name, err)
	} else if n == 0 {
		return fmt.Errorf("lock %q: %w", name, ErrLockLost)
	}
	return nil
}

func (s *Store) Unlock(ctx context.Context, name, holder string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_locks WHERE name = ? AND holder = ?`, name, holder); err != nil {
		return fmt.Errorf("failed to unlock %q: %w", name, err)
	}
	return nil
}

// Holder returns the owner of an unexpired lock, or nil.
func (s *Store) Holder(ctx context.Context, name string) (*RunLock, error) {
	var (
		l  RunLock
		ms int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, holder, expires_ms, version, epoch FROM run_locks
		WHERE name = ? AND expires_ms >= ?
	`, name, time.Now().UnixMilli()).Scan(&l.Name, &l.Holder, &ms, &l.Version, &l.Epoch)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read lock %q: %w", name, err)
	}
	l.ExpiresAt = time.UnixMilli(ms).UTC()
	return &l, nil
}
