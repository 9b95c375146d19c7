package engine

import (
	"context"
	"time"

	"github.com/rmax-ai/schemabuilder/pkg/logger"
)

// Runner is one pipeline cycle.
type Runner interface {
	Run(ctx context.Context) (RunReport, error)
}

// Refresher runs the pipeline once at start and then on every interval tick.
type Refresher struct {
	runner   Runner
	interval time.Duration
	log      *logger.Logger
}

// NewRefresher creates a refresher. A non-positive interval runs only once.
func NewRefresher(runner Runner, interval time.Duration, log *logger.Logger) *Refresher {
	return &Refresher{
		runner:   runner,
		interval: interval,
		log:      logger.OrNop(log).Named("refresher"),
	}
}

// Start blocks until ctx is cancelled, or returns after the first run when
// no interval is configured. Run errors are logged and never stop the loop.
func (r *Refresher) Start(ctx context.Context) {
	r.log.Info("refresher_started", "interval", r.interval.String())
	r.runOnce(ctx)
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("refresher_stopping")
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Refresher) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := r.runner.Run(ctx); err != nil {
		r.log.Warn("refresh_failed", "error", err)
	}
}
