package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// FindPropertyByName returns the property with this name, or ErrNotFound.
func (s *Store) FindPropertyByName(ctx context.Context, name string) (*Property, error) {
	return s.getProperty(ctx, `name = ?`, name)
}

// GetProperty returns the property by id, or ErrNotFound.
func (s *Store) GetProperty(ctx context.Context, id int64) (*Property, error) {
	return s.getProperty(ctx, `id = ?`, id)
}

func (s *Store) getProperty(ctx context.Context, cond string, arg any) (*Property, error) {
	var p Property
	err := s.db.QueryRowContext(ctx, `SELECT id, name, iri FROM properties WHERE `+cond, arg).
		Scan(&p.ID, &p.Name, &p.IRI)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	if p.Meta, err = s.propertyMeta(ctx, p.ID); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProperty inserts a property. A duplicate name fails on the unique index.
func (s *Store) CreateProperty(ctx context.Context, name, iri string) (int64, error) {
	if name == "" {
		return 0, errors.New("property name is required")
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO properties (name, iri) VALUES (?, ?)`, name, iri)
	if err != nil {
		return 0, fmt.Errorf("failed to insert property %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read property id: %w", err)
	}
	return id, nil
}

// AddPropertyMeta attaches a metadata value. Existing values for the key are kept.
func (s *Store) AddPropertyMeta(ctx context.Context, propertyID int64, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO property_meta (property_id, key, value) VALUES (?, ?, ?)
	`, propertyID, key, value)
	if err != nil {
		return fmt.Errorf("failed to add property meta %q: %w", key, err)
	}
	return nil
}

// ListProperties returns one page of properties ordered by name.
func (s *Store) ListProperties(ctx context.Context, f PropertyFilter) (*PropertyPage, error) {
	page, perPage := normalizePage(f.Page, f.PerPage)

	var where []string
	var args []any
	if len(f.Include) > 0 {
		where = append(where, `id IN (`+placeholders(len(f.Include))+`)`)
		for _, id := range f.Include {
			args = append(args, id)
		}
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		where = append(where, `name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(search)+"%")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM properties`+clause, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count properties: %w", err)
	}

	qargs := append(append([]any{}, args...), perPage, (page-1)*perPage)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, iri FROM properties`+clause+` ORDER BY name ASC LIMIT ? OFFSET ?
	`, qargs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	out := &PropertyPage{Items: []Property{}, Total: total, TotalPages: totalPages(total, perPage)}
	for rows.Next() {
		var p Property
		if err := rows.Scan(&p.ID, &p.Name, &p.IRI); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		out.Items = append(out.Items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate properties: %w", err)
	}
	rows.Close()

	for i := range out.Items {
		meta, err := s.propertyMeta(ctx, out.Items[i].ID)
		if err != nil {
			return nil, err
		}
		out.Items[i].Meta = meta
	}
	return out, nil
}

func (s *Store) propertyMeta(ctx context.Context, propertyID int64) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM property_meta WHERE property_id = ?`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load property meta: %w", err)
	}
	defer rows.Close()

	meta := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan property meta: %w", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}
