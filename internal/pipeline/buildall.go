package pipeline

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/pipewright/internal/diag"
)

// Result is the outcome of resolving one unit in a batch.
type Result struct {
	Unit string
	Plan *Plan
	// Err is the unit's fatal error, if any. Other units are unaffected.
	Err error
	// Warnings are the messages reported while resolving this unit.
	Warnings []string
	Failures []string
}

// Batch is the outcome of BuildAll.
type Batch struct {
	RunID    string
	Results  []Result
	Duration time.Duration
}

// Failed returns the results that ended in a fatal error.
func (b *Batch) Failed() []Result {
	var out []Result
	for _, r := range b.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// BuildAllOptions tunes BuildAll.
type BuildAllOptions struct {
	// Concurrency bounds the number of units resolved at once. Zero uses
	// GOMAXPROCS.
	Concurrency int
}

// BuildAll resolves every input concurrently against pctx. Results are
// returned in input order. A fatal error in one unit is recorded on its
// result and does not stop the others; only cancellation of ctx aborts the
// batch.
func (b *Builder) BuildAll(ctx context.Context, pctx *Context, inputs []Input, opts BuildAllOptions) (*Batch, error) {
	runID := uuid.NewString()
	logger := pctx.Logger().With("run_id", runID)
	start := time.Now()

	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	batch := &Batch{RunID: runID, Results: make([]Result, len(inputs))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	logger.Debug("resolving units", "units", len(inputs), "concurrency", limit)

	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			collector := &diag.Collector{Next: pctx.Sink()}
			uctx := pctx.WithSink(collector).WithLogger(logger)

			plan, err := b.Plan(uctx, in)
			batch.Results[i] = Result{
				Unit:     in.Unit,
				Plan:     plan,
				Err:      err,
				Warnings: collector.Warnings(),
				Failures: collector.Failures(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return batch, err
	}

	batch.Duration = time.Since(start)
	logger.Info("resolved units", "units", len(inputs), "failed", len(batch.Failed()), "duration", batch.Duration)
	return batch, nil
}
