// Package engine turns a fetched vocabulary graph into persisted schemas and
// properties: the pipeline fetches and builds, the materializer writes, and
// the refresher repeats the cycle on an interval.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rmax-ai/schemabuilder/pkg/graph"
	"github.com/rmax-ai/schemabuilder/pkg/logger"
	"github.com/rmax-ai/schemabuilder/pkg/source"
)

// Pipeline outcomes, used as the outcome metric label.
const (
	OutcomeFetchFailed  = "fetch_failed"
	OutcomeGuardSet     = "guard_set"
	OutcomeLockBusy     = "lock_busy"
	OutcomeMaterialized = "materialized"
	OutcomePartial      = "partial"
	OutcomeError        = "error"
)

// GraphSource supplies the vocabulary nodes for a run.
type GraphSource interface {
	FetchWithOrigin(ctx context.Context) ([]graph.Node, source.Origin, error)
}

// RunReport describes one pipeline cycle.
type RunReport struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Origin    string        `json:"origin,omitempty"`
	Nodes     int           `json:"nodes"`
	Entries   int           `json:"entries"`
	Malformed int           `json:"malformed"`
	Outcome   string        `json:"outcome"`
	Result    Result        `json:"result"`
	Error     string        `json:"error,omitempty"`
}

// Pipeline runs fetch, build and materialize as one serialized cycle.
type Pipeline struct {
	mu    sync.Mutex
	src   GraphSource
	vocab graph.Vocabulary
	mat   *Materializer
	proj  *graph.Projection
	log   *logger.Logger

	lastMu sync.RWMutex
	last   *RunReport
}

func NewPipeline(src GraphSource, vocab graph.Vocabulary, mat *Materializer, proj *graph.Projection, log *logger.Logger) *Pipeline {
	if proj == nil {
		proj = graph.NewProjection()
	}
	return &Pipeline{
		src:   src,
		vocab: vocab.WithDefaults(),
		mat:   mat,
		proj:  proj,
		log:   logger.OrNop(log).Named("pipeline"),
	}
}

// Projection exposes the patterns of the most recent successful build.
func (p *Pipeline) Projection() *graph.Projection { return p.proj }

// LastRun returns the report of the most recent cycle.
func (p *Pipeline) LastRun() (RunReport, bool) {
	p.lastMu.RLock()
	defer p.lastMu.RUnlock()
	if p.last == nil {
		return RunReport{}, false
	}
	return *p.last, true
}

// Run executes one cycle. A fetch failure ends the cycle without building or
// materializing and is returned wrapped in source.ErrFetchFailed.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	report := RunReport{StartedAt: time.Now().UTC()}
	err := p.run(ctx, &report)
	report.Duration = time.Since(report.StartedAt)
	if err != nil {
		report.Error = err.Error()
	}

	PipelineRunsTotal.WithLabelValues(report.Outcome).Inc()
	p.lastMu.Lock()
	p.last = &report
	p.lastMu.Unlock()

	p.log.Info("pipeline_run",
		"outcome", report.Outcome,
		"origin", report.Origin,
		"entries", report.Entries,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, err
}

func (p *Pipeline) run(ctx context.Context, report *RunReport) error {
	nodes, origin, err := p.src.FetchWithOrigin(ctx)
	if err != nil {
		FetchTotal.WithLabelValues("error").Inc()
		report.Outcome = OutcomeFetchFailed
		if errors.Is(err, source.ErrFetchFailed) {
			p.log.Warn("fetch_failed", "error", err)
		} else {
			p.log.Error("fetch_error", "error", err)
		}
		return err
	}
	FetchTotal.WithLabelValues(string(origin)).Inc()
	report.Origin = string(origin)
	report.Nodes = len(nodes)

	patterns := p.vocab.Build(nodes)
	report.Entries = patterns.Len()
	report.Malformed = patterns.Skipped
	PatternEntries.Set(float64(patterns.Len()))
	if patterns.Skipped > 0 {
		p.log.Warn("malformed_nodes_skipped", "count", patterns.Skipped)
	}
	p.proj.Set(patterns)

	res, err := p.mat.Materialize(ctx, patterns)
	report.Result = res
	MaterializedTotal.WithLabelValues("schema").Add(float64(res.SchemasCreated))
	MaterializedTotal.WithLabelValues("property").Add(float64(res.PropertiesCreated))
	MaterializeFailuresTotal.Add(float64(res.Failures))

	switch {
	case err != nil:
		report.Outcome = OutcomeError
		p.log.Error("materialize_failed", "error", err)
		return err
	case res.LockBusy:
		report.Outcome = OutcomeLockBusy
	case res.GuardSet:
		report.Outcome = OutcomeGuardSet
	case res.Failures > 0:
		report.Outcome = OutcomePartial
	default:
		report.Outcome = OutcomeMaterialized
	}
	return nil
}
