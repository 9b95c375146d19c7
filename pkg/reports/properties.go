package reports

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/rmax-ai/schemabuilder/pkg/graph"
	"github.com/rmax-ai/schemabuilder/pkg/store"
)

// PropertyReport lists properties with their allowed and default types.
type PropertyReport struct {
	store ReportStore
	vocab graph.Vocabulary
}

func NewPropertyReport(s ReportStore, vocab graph.Vocabulary) *PropertyReport {
	return &PropertyReport{store: s, vocab: vocab.WithDefaults()}
}

func (r *PropertyReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	t := &table{headers: []string{"id", "name", "iri", "allowed_types", "default_type"}}
	search := strings.ToLower(params.Search)
	err := eachProperty(ctx, r.store, func(p store.Property) {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			return
		}
		allowed := p.AllowedTypes()
		def, _ := r.vocab.SimplestDataType(allowed)
		t.add(strconv.FormatInt(p.ID, 10), p.Name, p.IRI, strings.Join(allowed, ","), def)
	})
	if err != nil {
		return nil, err
	}
	return t.render(params.Format)
}
