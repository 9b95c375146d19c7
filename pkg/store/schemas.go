package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const schemaColumns = `id, title, description, enabled, mapping, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchema(row rowScanner) (*Schema, error) {
	var sc Schema
	var enabled sql.NullInt64
	if err := row.Scan(&sc.ID, &sc.Title, &sc.Description, &enabled, &sc.Mapping, &sc.CreatedAt); err != nil {
		return nil, err
	}
	sc.Enabled = !enabled.Valid || enabled.Int64 != 0
	return &sc, nil
}

// FindSchemaByTitle returns the schema with exactly this title, or ErrNotFound.
func (s *Store) FindSchemaByTitle(ctx context.Context, title string) (*Schema, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+schemaColumns+` FROM schemas WHERE title = ?`, title)
	sc, err := scanSchema(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find schema: %w", err)
	}
	if sc.PropertyIDs, err = s.schemaPropertyIDs(ctx, sc.ID); err != nil {
		return nil, err
	}
	return sc, nil
}

// GetSchema returns the schema by id, or ErrNotFound.
func (s *Store) GetSchema(ctx context.Context, id int64) (*Schema, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+schemaColumns+` FROM schemas WHERE id = ?`, id)
	sc, err := scanSchema(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}
	if sc.PropertyIDs, err = s.schemaPropertyIDs(ctx, sc.ID); err != nil {
		return nil, err
	}
	return sc, nil
}

// CreateSchema inserts a schema and its property references in one transaction.
// A duplicate title fails on the unique index.
func (s *Store) CreateSchema(ctx context.Context, in SchemaInput) (int64, error) {
	if in.Title == "" {
		return 0, errors.New("schema title is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO schemas (title, description) VALUES (?, ?)
	`, in.Title, in.Description)
	if err != nil {
		return 0, fmt.Errorf("failed to insert schema %q: %w", in.Title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read schema id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO schema_properties (schema_id, property_id, position) VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare property link: %w", err)
	}
	defer stmt.Close()

	for i, pid := range in.PropertyIDs {
		if _, err := stmt.ExecContext(ctx, id, pid, i); err != nil {
			return 0, fmt.Errorf("failed to link property %d: %w", pid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit schema: %w", err)
	}
	return id, nil
}

// UpdateSchema applies a patch and returns the updated schema.
func (s *Store) UpdateSchema(ctx context.Context, id int64, patch SchemaPatch) (*Schema, error) {
	var sets []string
	var args []any
	if patch.Enabled != nil {
		v := 0
		if *patch.Enabled {
			v = 1
		}
		sets = append(sets, "enabled = ?")
		args = append(args, v)
	}
	if patch.Mapping != nil {
		sets = append(sets, "mapping = ?")
		args = append(args, *patch.Mapping)
	}
	if len(sets) == 0 {
		return s.GetSchema(ctx, id)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE schemas SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update schema: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}
	return s.GetSchema(ctx, id)
}

// ListSchemas returns one page of schemas matching the filter.
func (s *Store) ListSchemas(ctx context.Context, f SchemaFilter) (*SchemaPage, error) {
	page, perPage := normalizePage(f.Page, f.PerPage)

	var where []string
	var args []any
	search := strings.TrimSpace(f.Search)
	if search != "" {
		like := "%" + escapeLike(search) + "%"
		where = append(where, `(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	if f.Enabled != nil {
		if *f.Enabled {
			where = append(where, `(enabled = 1 OR enabled IS NULL)`)
		} else {
			where = append(where, `enabled = 0`)
		}
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	dir := "ASC"
	switch strings.ToLower(f.Order) {
	case "", "asc":
	case "desc":
		dir = "DESC"
	default:
		return nil, fmt.Errorf("%w: order %q", ErrInvalidFilter, f.Order)
	}

	var orderBy string
	var orderArgs []any
	switch f.OrderBy {
	case "", OrderByTitle:
		orderBy = "title " + dir
	case OrderByID:
		orderBy = "id " + dir
	case OrderByRelevance:
		if search == "" {
			return nil, fmt.Errorf("%w: relevance ordering requires a search term", ErrInvalidFilter)
		}
		esc := escapeLike(search)
		orderBy = `CASE
			WHEN title = ? COLLATE NOCASE THEN 0
			WHEN title LIKE ? ESCAPE '\' THEN 1
			WHEN title LIKE ? ESCAPE '\' THEN 2
			ELSE 3 END ` + dir + `, title ASC`
		orderArgs = append(orderArgs, search, esc+"%", "%"+esc+"%")
	default:
		return nil, fmt.Errorf("%w: orderby %q", ErrInvalidFilter, f.OrderBy)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schemas`+clause, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count schemas: %w", err)
	}

	q := `SELECT ` + schemaColumns + ` FROM schemas` + clause + ` ORDER BY ` + orderBy + ` LIMIT ? OFFSET ?`
	qargs := append(append(append([]any{}, args...), orderArgs...), perPage, (page-1)*perPage)
	rows, err := s.db.QueryContext(ctx, q, qargs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	defer rows.Close()

	out := &SchemaPage{Items: []Schema{}, Total: total, TotalPages: totalPages(total, perPage)}
	for rows.Next() {
		sc, err := scanSchema(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schema: %w", err)
		}
		out.Items = append(out.Items, *sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schemas: %w", err)
	}
	rows.Close()

	for i := range out.Items {
		ids, err := s.schemaPropertyIDs(ctx, out.Items[i].ID)
		if err != nil {
			return nil, err
		}
		out.Items[i].PropertyIDs = ids
	}
	return out, nil
}

func (s *Store) schemaPropertyIDs(ctx context.Context, schemaID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT property_id FROM schema_properties WHERE schema_id = ? ORDER BY position
	`, schemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema properties: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan property id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
