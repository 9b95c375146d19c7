package reports

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rmax-ai/schemabuilder/pkg/graph"
	"github.com/rmax-ai/schemabuilder/pkg/store"
)

// SchemaReport lists schemas with their property names.
type SchemaReport struct {
	store ReportStore
}

func NewSchemaReport(s ReportStore) *SchemaReport {
	return &SchemaReport{store: s}
}

func (r *SchemaReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	names, err := propertyNames(ctx, r.store)
	if err != nil {
		return nil, err
	}

	t := &table{headers: []string{"id", "title", "label", "enabled", "mapping", "properties"}}
	filter := store.SchemaFilter{Search: params.Search, Enabled: params.Enabled, PerPage: store.MaxPerPage}
	for page := 1; ; page++ {
		filter.Page = page
		res, err := r.store.ListSchemas(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list schemas: %w", err)
		}
		for _, sc := range res.Items {
			props := make([]string, 0, len(sc.PropertyIDs))
			for _, id := range sc.PropertyIDs {
				props = append(props, names[id])
			}
			t.add(
				strconv.FormatInt(sc.ID, 10),
				sc.Title,
				graph.HumanTitle(sc.Title),
				strconv.FormatBool(sc.Enabled),
				sc.Mapping,
				strings.Join(props, ";"),
			)
		}
		if page >= res.TotalPages {
			break
		}
	}
	return t.render(params.Format)
}

func propertyNames(ctx context.Context, s ReportStore) (map[int64]string, error) {
	names := map[int64]string{}
	err := eachProperty(ctx, s, func(p store.Property) {
		names[p.ID] = p.Name
	})
	return names, err
}

func eachProperty(ctx context.Context, s ReportStore, fn func(store.Property)) error {
	for page := 1; ; page++ {
		res, err := s.ListProperties(ctx, store.PropertyFilter{Page: page, PerPage: store.MaxPerPage})
		if err != nil {
			return fmt.Errorf("failed to list properties: %w", err)
		}
		for _, p := range res.Items {
			fn(p)
		}
		if page >= res.TotalPages {
			return nil
		}
	}
}
