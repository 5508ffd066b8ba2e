package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/vibeline/internal/health"
	"github.com/MrWong99/vibeline/internal/layout"
	"github.com/MrWong99/vibeline/internal/observe"
)

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	// Processed counts transcripts that completed, including those with
	// failed plugins.
	Processed int

	// Partial counts processed transcripts with at least one failed plugin.
	Partial int

	// Failed maps transcript paths to the error that stopped them.
	Failed map[string]error

	Duration time.Duration
}

// progress counts transcripts across all batch runs of an App.
type progress struct {
	total, done, failed, inFlight atomic.Int64
}

// Progress returns a snapshot of the transcripts queued by [App.ProcessAll].
func (a *App) Progress() health.Progress {
	return health.Progress{
		Total:    int(a.progress.total.Load()),
		Done:     int(a.progress.done.Load()),
		Failed:   int(a.progress.failed.Load()),
		InFlight: int(a.progress.inFlight.Load()),
	}
}

// ProcessDir processes every original transcript directly inside dir.
func (a *App) ProcessDir(ctx context.Context, dir string, opts ProcessOptions) (BatchSummary, error) {
	paths, err := layout.Transcripts(dir)
	if err != nil {
		return BatchSummary{}, err
	}
	return a.ProcessAll(ctx, paths, opts), nil
}

// ProcessAll processes paths with at most batch.workers transcripts in
// flight. A failing transcript is logged and recorded in the summary; it
// never cancels the others. Cancelling ctx stops transcripts that have not
// started yet.
func (a *App) ProcessAll(ctx context.Context, paths []string, opts ProcessOptions) BatchSummary {
	start := time.Now()
	sum := BatchSummary{Failed: make(map[string]error)}
	var mu sync.Mutex

	workers := a.cfg.Batch.Workers
	if workers <= 0 {
		workers = 1
	}

	a.progress.total.Add(int64(len(paths)))

	var g errgroup.Group
	g.SetLimit(workers)
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				a.progress.failed.Add(1)
				mu.Lock()
				sum.Failed[path] = fmt.Errorf("app: not started: %w", err)
				mu.Unlock()
				return nil
			}
			a.progress.inFlight.Add(1)
			out, err := a.Process(ctx, path, opts)
			a.progress.inFlight.Add(-1)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.progress.failed.Add(1)
				observe.Logger(ctx).Error("transcript failed", "transcript", path, "err", err)
				sum.Failed[path] = err
				return nil
			}
			a.progress.done.Add(1)
			sum.Processed++
			if out.Status() == StatusPartial {
				sum.Partial++
			}
			return nil
		})
	}
	_ = g.Wait()

	sum.Duration = time.Since(start)
	observe.Logger(ctx).Info("batch finished",
		"transcripts", len(paths),
		"processed", sum.Processed,
		"partial", sum.Partial,
		"failed", len(sum.Failed),
		"duration", sum.Duration,
	)
	return sum
}
