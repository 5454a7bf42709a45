package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of seeds harvested at the same time when
// WithConcurrency is not given.
const DefaultConcurrency = 2

// BatchHarvester handles concurrent harvesting of multiple seeds.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchHarvester rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-seed execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchHarvester struct {
	// pipelineFactory creates a new pipeline for each seed.
	// We use a factory so that every seed gets its own settings.
	pipelineFactory func(seed string) *Pipeline

	// concurrency is the maximum number of concurrent crawls.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchHarvester.
type BatchOption func(*BatchHarvester)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchHarvester) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchHarvester) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchHarvester creates a new BatchHarvester.
//
// The pipelineFactory function is called once per seed to create a fresh
// pipeline. This ensures that pipeline state doesn't leak between seeds and
// allows per-site settings.
func NewBatchHarvester(pipelineFactory func(seed string) *Pipeline, opts ...BatchOption) *BatchHarvester {
	bh := &BatchHarvester{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bh)
	}

	if bh.logger == nil {
		bh.logger = slog.Default()
	}

	return bh
}

// HarvestAll harvests every seed and returns one Run per seed, in input
// order. Failed seeds are reported through Run.Err and never stop the
// others.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
//
// The returned error is non-nil only when ctx was cancelled. Seeds that had
// not started by then get a Run whose Err is the context error.
func (bh *BatchHarvester) HarvestAll(ctx context.Context, seeds []string) ([]*Run, error) {
	bh.logger.Info("starting batch harvest",
		"total_seeds", len(seeds),
		"concurrency", bh.concurrency,
	)

	startTime := time.Now()
	results := make([]*Run, len(seeds))

	// Each goroutine writes only its own index.
	err := bh.HarvestAllWithCallback(ctx, seeds, func(run *Run, index int) {
		results[index] = run
	})

	bh.logger.Info("batch harvest complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return results, err
}

// HarvestAllWithCallback harvests every seed and calls callback for each
// finished run. This is useful for streaming results.
//
// The callback receives the run and the index of its seed in the original
// slice. It is called from the goroutine that ran the seed, so it must be
// safe for concurrent use if it touches shared state.
func (bh *BatchHarvester) HarvestAllWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(run *Run, index int),
) error {
	g := new(errgroup.Group)
	g.SetLimit(bh.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			run := NewRun(seed)

			if err := ctx.Err(); err != nil {
				run.recordError(err)
				callback(run, i)
				return nil
			}

			bh.logger.Info("harvesting seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			if err := bh.pipelineFactory(seed).Execute(ctx, run); err != nil {
				bh.logger.Warn("harvest failed",
					"seed", seed,
					"error", err,
				)
			} else if run.Harvest != nil {
				bh.logger.Info("harvest completed",
					"seed", seed,
					"images", run.Harvest.ImageCount(),
				)
			}

			callback(run, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines never return errors
	return ctx.Err()
}
