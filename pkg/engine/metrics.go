package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FetchTotal counts graph retrievals by where they were served from.
	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemabuilder_fetch_total",
			Help: "Graph retrievals by source (cache, network, error)",
		},
		[]string{"source"},
	)

	// PipelineRunsTotal counts pipeline cycles by outcome
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemabuilder_pipeline_runs_total",
			Help: "Pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	// PatternEntries is the entry count of the most recent build
	PatternEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schemabuilder_pattern_entries",
			Help: "Pattern entries produced by the last build",
		},
	)

	// MaterializedTotal counts created schemas and properties
	MaterializedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemabuilder_materialized_total",
			Help: "Records created by the materializer, by kind (schema, property)",
		},
		[]string{"kind"},
	)

	MaterializeFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schemabuilder_materialize_failures_total",
			Help: "Store writes that failed during materialization",
		},
	)
)

func init() {
	prometheus.MustRegister(FetchTotal)
	prometheus.MustRegister(PipelineRunsTotal)
	prometheus.MustRegister(PatternEntries)
	prometheus.MustRegister(MaterializedTotal)
	prometheus.MustRegister(MaterializeFailuresTotal)
}
