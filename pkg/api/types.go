package api

import (
	"time"

	"github.com/rmax-ai/schemabuilder/pkg/engine"
)

// SchemaResponse is one schema as served by /v1/schemas.
type SchemaResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Enabled     bool      `json:"enabled"`
	Mapping     string    `json:"mapping"`
	PropertyIDs []int64   `json:"property_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// PropertyResponse is one property as served by /v1/properties.
type PropertyResponse struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	IRI          string   `json:"iri"`
	AllowedTypes []string `json:"allowed_types"`
	DefaultType  string   `json:"default_type,omitempty"`
}

// SchemaPatchRequest matches the PATCH /v1/schemas/{id} body
type SchemaPatchRequest struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Mapping *string `json:"mapping,omitempty"`
}

// MappingRequest matches the PUT /v1/schemas/{id}/mapping body. An empty
// type clears the property's mapping.
type MappingRequest struct {
	Property string `json:"property"`
	Type     string `json:"type"`
}

// HealthResponse matches the response for GET /v1/health
type HealthResponse struct {
	Status     string            `json:"status"`
	Schemas    int               `json:"schemas"`
	Properties int               `json:"properties"`
	GuardSet   *bool             `json:"guard_set,omitempty"`
	LastRun    *engine.RunReport `json:"last_run,omitempty"`
}

// GuardResponse matches the response for /v1/admin/guard
type GuardResponse struct {
	Name string `json:"name"`
	Set  bool   `json:"set"`
}
