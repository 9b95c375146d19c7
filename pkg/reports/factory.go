package reports

import (
	"fmt"

	"github.com/rmax-ai/schemabuilder/pkg/graph"
)

// NewReportGenerator creates a report generator based on the report type.
func NewReportGenerator(reportType ReportType, s ReportStore, vocab graph.Vocabulary) (Generator, error) {
	switch reportType {
	case ReportTypeSchemas:
		return NewSchemaReport(s), nil
	case ReportTypeProperties:
		return NewPropertyReport(s, vocab), nil
	default:
		return nil, fmt.Errorf("unknown report type: %s", reportType)
	}
}
