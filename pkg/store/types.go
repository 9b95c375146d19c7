package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a schema or property does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidFilter is returned for filter combinations the store cannot serve.
	ErrInvalidFilter = errors.New("store: invalid filter")

	// ErrLockLost is returned by Extend when the lock expired or changed hands.
	ErrLockLost = errors.New("store: run lock lost")
)

const (
	// GuardInsertedSchemas is the run guard flag set after a completed materialization.
	GuardInsertedSchemas = "inserted_schemas"

	// MetaAllowedTypes holds the comma-joined allowed type identifiers of a property.
	MetaAllowedTypes = "allowed_types"

	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Schema is a persisted entity type, one per vocabulary class.
type Schema struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Enabled     bool      `json:"enabled"` // NULL in the database reads as true
	Mapping     string    `json:"mapping"`
	PropertyIDs []int64   `json:"property_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// SchemaInput carries the fields needed to create a schema.
type SchemaInput struct {
	Title       string
	Description string
	PropertyIDs []int64
}

// SchemaPatch updates selected schema fields. Nil fields are left unchanged.
type SchemaPatch struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Mapping *string `json:"mapping,omitempty"`
}

// Schema ordering keys.
const (
	OrderByTitle     = "title"
	OrderByID        = "id"
	OrderByRelevance = "relevance"
)

// SchemaFilter selects and pages schemas.
type SchemaFilter struct {
	Search  string
	Enabled *bool
	OrderBy string // title (default), id, relevance
	Order   string // asc (default), desc
	Page    int
	PerPage int
}

// SchemaPage is one page of ListSchemas results.
type SchemaPage struct {
	Items      []Schema `json:"items"`
	Total      int      `json:"total"`
	TotalPages int      `json:"total_pages"`
}

// Property is a persisted term shared between schemas.
type Property struct {
	ID   int64             `json:"id"`
	Name string            `json:"name"`
	IRI  string            `json:"iri"`
	Meta map[string]string `json:"meta,omitempty"`
}

// AllowedTypes splits the allowed_types metadata.
func (p Property) AllowedTypes() []string {
	raw := p.Meta[MetaAllowedTypes]
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// PropertyFilter selects and pages properties.
type PropertyFilter struct {
	Include []int64
	Search  string
	Page    int
	PerPage int
}

// PropertyPage is one page of ListProperties results.
type PropertyPage struct {
	Items      []Property `json:"items"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
}

// Stats summarizes the store contents.
type Stats struct {
	Schemas    int `json:"schemas"`
	Properties int `json:"properties"`
}

// RunLock is the current owner of a named lock. Epoch moves only when the
// holder changes; Version moves on every write.
type RunLock struct {
	Name      string    `json:"name"`
	Holder    string    `json:"holder"`
	ExpiresAt time.Time `json:"expires_at"`
	Version   int64     `json:"version,omitempty"`
	Epoch     int64     `json:"epoch,omitempty"`
}

// Locker keeps two processes sharing a store from materializing at once.
type Locker interface {
	// TryLock takes the lock, or extends it when holder already owns it.
	TryLock(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	Extend(ctx context.Context, name, holder string, ttl time.Duration) error
	// Unlock is a no-op when holder does not own the lock.
	Unlock(ctx context.Context, name, holder string) error
	// Holder returns nil when the lock is free.
	Holder(ctx context.Context, name string) (*RunLock, error)
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

func totalPages(total, perPage int) int {
	if total == 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
