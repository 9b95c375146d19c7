// Package reports exports the materialized schemas and properties as CSV or
// JSON documents.
package reports

import (
	"context"
	"io"

	"github.com/rmax-ai/schemabuilder/pkg/store"
)

type ReportType string

const (
	ReportTypeSchemas    ReportType = "schemas"
	ReportTypeProperties ReportType = "properties"
)

type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatJSON ReportFormat = "json"
)

// ReportParams narrows a report. Zero values export everything as CSV.
type ReportParams struct {
	Format  ReportFormat
	Search  string
	Enabled *bool
}

// ReportStore defines the interface for data access required by reports.
type ReportStore interface {
	ListSchemas(ctx context.Context, filter store.SchemaFilter) (*store.SchemaPage, error)
	ListProperties(ctx context.Context, filter store.PropertyFilter) (*store.PropertyPage, error)
}

type Generator interface {
	Generate(ctx context.Context, params ReportParams) (io.Reader, error)
}
