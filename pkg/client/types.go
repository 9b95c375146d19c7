package client

import (
	"fmt"

	"github.com/rmax-ai/schemabuilder/pkg/api"
	"github.com/rmax-ai/schemabuilder/pkg/engine"
)

// Wire types are shared with the server.
type (
	Schema    = api.SchemaResponse
	Property  = api.PropertyResponse
	Health    = api.HealthResponse
	Guard     = api.GuardResponse
	RunReport = engine.RunReport
)

// SchemaList is one page of schemas plus the paging headers.
type SchemaList struct {
	Items      []Schema
	Total      int
	TotalPages int
}

// PropertyList is one page of properties plus the paging headers.
type PropertyList struct {
	Items      []Property
	Total      int
	TotalPages int
}

// ListSchemasOptions mirrors the /v1/schemas query parameters. Zero values are omitted.
type ListSchemasOptions struct {
	Search  string
	Enabled *bool
	OrderBy string
	Order   string
	Page    int
	PerPage int
}

// ListPropertiesOptions mirrors the /v1/properties query parameters.
type ListPropertiesOptions struct {
	Include []int64
	Search  string
	Page    int
	PerPage int
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Reason     string `json:"reason,omitempty"`
	Details    string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("unexpected status: %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Code, e.StatusCode)
}
