package reports

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// table is a report body rendered either as CSV with a header row or as a
// JSON array of objects keyed by the headers.
type table struct {
	headers []string
	rows    [][]string
}

func (t *table) add(row ...string) {
	t.rows = append(t.rows, row)
}

func (t *table) render(format ReportFormat) (io.Reader, error) {
	buf := &bytes.Buffer{}
	switch format {
	case "", ReportFormatCSV:
		writer := csv.NewWriter(buf)
		if err := writer.Write(t.headers); err != nil {
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
		if err := writer.WriteAll(t.rows); err != nil {
			return nil, fmt.Errorf("failed to write rows: %w", err)
		}
	case ReportFormatJSON:
		out := make([]map[string]string, 0, len(t.rows))
		for _, row := range t.rows {
			obj := make(map[string]string, len(t.headers))
			for i, h := range t.headers {
				if i < len(row) {
					obj[h] = row[i]
				}
			}
			out = append(out, obj)
		}
		enc := json.NewEncoder(buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return nil, fmt.Errorf("failed to encode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown report format: %s", format)
	}
	return buf, nil
}

// ContentType returns the MIME type of a rendered report.
func ContentType(format ReportFormat) string {
	if format == ReportFormatJSON {
		return "application/json"
	}
	return "text/csv"
}
