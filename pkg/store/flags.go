package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetFlag reports whether the named flag is set. An absent flag is unset.
func (s *Store) GetFlag(ctx context.Context, name string) (bool, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM flags WHERE name = ?`, name).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read flag %q: %w", name, err)
	}
	return v != 0, nil
}

// SetFlag sets the named flag.
func (s *Store) SetFlag(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flags (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = 1, updated_at = CURRENT_TIMESTAMP
	`, name)
	if err != nil {
		return fmt.Errorf("failed to set flag %q: %w", name, err)
	}
	return nil
}

// ClearFlag removes the named flag.
func (s *Store) ClearFlag(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM flags WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to clear flag %q: %w", name, err)
	}
	return nil
}

// Guard is a durable boolean run guard backed by the flags table.
type Guard struct {
	s    *Store
	name string
}

// Guard returns the run guard stored under name.
func (s *Store) Guard(name string) *Guard {
	return &Guard{s: s, name: name}
}

func (g *Guard) Name() string { return g.name }

func (g *Guard) IsSet(ctx context.Context) (bool, error) {
	return g.s.GetFlag(ctx, g.name)
}

func (g *Guard) Set(ctx context.Context) error {
	return g.s.SetFlag(ctx, g.name)
}

func (g *Guard) Clear(ctx context.Context) error {
	return g.s.ClearFlag(ctx, g.name)
}
